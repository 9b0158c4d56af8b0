//go:build linux

package chroot

import (
	"errors"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// SystemMounter mounts through the kernel.
type SystemMounter struct{}

func (SystemMounter) Mount(source, target, fstype string, flags uintptr) error {
	var sysFlags uintptr
	if flags&FlagBind != 0 {
		sysFlags |= unix.MS_BIND
	}
	return unix.Mount(source, target, fstype, sysFlags, "")
}

// Unmount falls back to a lazy detach when the mount is busy.
func (SystemMounter) Unmount(target string) error {
	err := unix.Unmount(target, 0)
	if errors.Is(err, unix.EBUSY) {
		err = unix.Unmount(target, unix.MNT_DETACH)
	}
	return err
}

func (SystemMounter) IsMounted(target string) (bool, error) {
	return mountinfo.Mounted(target)
}
