// Package chroot mounts the virtual filesystems a chroot into the target
// root needs and tears them down again.
package chroot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cnchi/installer/internal/utils"
)

// Mount flags understood by Mounter implementations.
const (
	FlagBind uintptr = 1 << iota
)

// Mounter performs the actual mount syscalls.
type Mounter interface {
	Mount(source, target, fstype string, flags uintptr) error
	Unmount(target string) error
	IsMounted(target string) (bool, error)
}

// pseudo is one virtual filesystem mounted into the target.
type pseudo struct {
	dir    string
	source string
	fstype string
	flags  uintptr
	mode   os.FileMode // 0 leaves permissions untouched
}

// Mounted in this order, unmounted in reverse.
var pseudoFS = []pseudo{
	{dir: "sys", source: "sysfs", fstype: "sysfs", mode: 0555},
	{dir: "proc", source: "proc", fstype: "proc", mode: 0555},
	{dir: "dev", source: "/dev", flags: FlagBind},
}

// State lists what is currently mounted under Target, in mount order.
type State struct {
	Target  string
	Mounted []string
}

// Empty reports whether nothing is mounted.
func (s State) Empty() bool {
	return len(s.Mounted) == 0
}

// Env manages the chroot mounts of one target root.
type Env struct {
	mounter Mounter
	chmod   func(string, os.FileMode) error
}

// New returns an Env using m.
func New(m Mounter) *Env {
	return &Env{mounter: m, chmod: os.Chmod}
}

// Mount creates and mounts sys, proc and dev under target. On error the
// returned State still lists what was mounted so it can be unmounted.
func (e *Env) Mount(target string) (State, error) {
	state := State{Target: target}

	for _, p := range pseudoFS {
		dir := filepath.Join(target, p.dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return state, fmt.Errorf("create %s: %w", dir, err)
		}

		mounted, err := e.mounter.IsMounted(dir)
		if err != nil {
			utils.Debug("Cannot tell whether %s is mounted: %v", dir, err)
		}
		if mounted {
			utils.Warn("%s is already mounted, reusing it", dir)
		} else if err := e.mounter.Mount(p.source, dir, p.fstype, p.flags); err != nil {
			return state, fmt.Errorf("mount %s on %s: %w", p.source, dir, err)
		}
		state.Mounted = append(state.Mounted, dir)

		if p.mode != 0 {
			if err := e.chmod(dir, p.mode); err != nil {
				utils.Warn("Cannot restrict permissions on %s: %v", dir, err)
			}
		}
		utils.Debug("Mounted %s on %s", p.source, dir)
	}
	return state, nil
}

// Unmount attempts every mount in reverse order, whatever happens to the
// previous ones. Failures are logged and returned, never fatal.
func (e *Env) Unmount(state State) []error {
	var errs []error
	for i := len(state.Mounted) - 1; i >= 0; i-- {
		dir := state.Mounted[i]
		if err := e.mounter.Unmount(dir); err != nil {
			utils.Warn("Cannot unmount %s: %v", dir, err)
			errs = append(errs, fmt.Errorf("unmount %s: %w", dir, err))
			continue
		}
		utils.Debug("Unmounted %s", dir)
	}
	return errs
}
