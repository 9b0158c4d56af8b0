//go:build !linux

package chroot

import "errors"

var errUnsupported = errors.New("chroot mounts are only supported on linux")

// SystemMounter is unavailable outside linux.
type SystemMounter struct{}

func (SystemMounter) Mount(string, string, string, uintptr) error { return errUnsupported }
func (SystemMounter) Unmount(string) error                        { return errUnsupported }
func (SystemMounter) IsMounted(string) (bool, error)              { return false, errUnsupported }
