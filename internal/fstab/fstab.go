package fstab

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cnchi/installer/internal/utils"
)

const (
	DefaultOptions = "defaults"
	SSDOptions     = "defaults,noatime,nodiratime,discard"

	// TmpfsLine is appended when the root device is solid-state.
	TmpfsLine = "tmpfs /tmp tmpfs defaults,noatime,mode=1777 0 0"
)

// Probe resolves filesystem metadata for a block device.
type Probe interface {
	UUID(ctx context.Context, device string) (string, error)
}

// BlkidProbe asks blkid, bypassing its cache so freshly created
// filesystems are seen.
type BlkidProbe struct {
	// Path of the blkid binary; empty means look it up in PATH.
	Path string
}

// UUID returns the filesystem UUID of device.
func (b BlkidProbe) UUID(ctx context.Context, device string) (string, error) {
	bin := b.Path
	if bin == "" {
		bin = "blkid"
	}
	out, err := exec.CommandContext(ctx, bin, "-c", "/dev/null", "-o", "value", "-s", "UUID", device).Output()
	if err != nil {
		return "", fmt.Errorf("blkid %s: %w", device, err)
	}
	uuid := strings.TrimSpace(string(out))
	if uuid == "" {
		return "", fmt.Errorf("blkid %s: no UUID", device)
	}
	return uuid, nil
}

// Entry is one fstab line.
type Entry struct {
	UUID       string
	MountPoint string
	FSType     string
	Options    string
	Pass       int
}

func (e Entry) String() string {
	return fmt.Sprintf("UUID=%s %s %s %s 0 %d", e.UUID, e.MountPoint, e.FSType, e.Options, e.Pass)
}

// Entries builds one entry per mount point in plan order and reports whether
// the root device is solid-state.
func Entries(ctx context.Context, plan MountPlan, probe Probe) ([]Entry, bool, error) {
	if err := plan.Validate(); err != nil {
		return nil, false, err
	}

	var entries []Entry
	rootSSD := false
	for _, mp := range plan.MountPoints() {
		device := plan.Devices[mp]
		uuid, err := probe.UUID(ctx, device)
		if err != nil {
			return nil, false, err
		}

		e := Entry{
			UUID:       uuid,
			MountPoint: mp,
			FSType:     plan.FSType(mp),
			Options:    DefaultOptions,
		}
		if plan.IsSSD(device) {
			e.Options = SSDOptions
			if mp == Root {
				rootSSD = true
			}
		}
		if mp == Root {
			e.Pass = 1
		}
		entries = append(entries, e)
	}
	return entries, rootSSD, nil
}

// Generate renders the fstab contents for plan.
func Generate(ctx context.Context, plan MountPlan, probe Probe) (string, error) {
	entries, rootSSD, err := Entries(ctx, plan, probe)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	if rootSSD {
		lines = append(lines, TmpfsLine)
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// Write creates the directories for non-root mount points under target and
// overwrites <target>/etc/fstab.
func Write(ctx context.Context, target string, plan MountPlan, probe Probe) error {
	content, err := Generate(ctx, plan, probe)
	if err != nil {
		return err
	}

	var errs []error
	for _, mp := range plan.MountPoints() {
		if mp == Root || mp == Swap || !strings.HasPrefix(mp, "/") {
			continue
		}
		dir := filepath.Join(target, mp)
		if err := os.MkdirAll(dir, 0755); err != nil {
			utils.Warn("Cannot create mount point %s: %v", dir, err)
			errs = append(errs, err)
		}
	}

	path := filepath.Join(target, "etc", "fstab")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	utils.Info("Wrote %s with %d entries", path, len(plan.Devices))
	return errors.Join(errs...)
}
