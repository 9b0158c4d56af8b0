package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cnchi/installer/internal/chroot"
	"github.com/cnchi/installer/internal/fstab"
	"github.com/cnchi/installer/internal/utils"
)

// Partitioner prepares the target storage and leaves the root mounted at
// the destination directory.
type Partitioner interface {
	Setup(ctx context.Context, cfg Config) error
}

// ScriptRunner runs the partition script and waits for it.
type ScriptRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runScript(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// AutoPartitioner hands the whole root disk to the partition script.
type AutoPartitioner struct {
	Run ScriptRunner
}

func (p AutoPartitioner) Setup(ctx context.Context, cfg Config) error {
	if _, err := os.Stat(cfg.AutoPartitionScript); err != nil {
		return fmt.Errorf("%w: %s", ErrNoScript, cfg.AutoPartitionScript)
	}
	if cfg.RootDevice == "" {
		return ErrNoRootDevice
	}

	run := p.Run
	if run == nil {
		run = runScript
	}
	utils.Info("Root device: %s", cfg.RootDevice)
	out, err := run(ctx, "/bin/bash", cfg.AutoPartitionScript, cfg.RootDevice)
	if err != nil {
		return fmt.Errorf("auto partition script: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// advancedDirs are created in the target once its root is mounted.
var advancedDirs = []string{"var/lib/pacman", "etc/pacman.d/gnupg", "var/log"}

// AdvancedPartitioner mounts an already partitioned root.
type AdvancedPartitioner struct {
	Mounter chroot.Mounter
}

func (p AdvancedPartitioner) Setup(_ context.Context, cfg Config) error {
	root := cfg.Plan.Devices[fstab.Root]
	if root == "" {
		return ErrNoRootDevice
	}
	if err := os.MkdirAll(cfg.DestDir, 0755); err != nil {
		return err
	}

	mounted, err := p.Mounter.IsMounted(cfg.DestDir)
	if err != nil {
		utils.Debug("Cannot tell whether %s is mounted: %v", cfg.DestDir, err)
	}
	if !mounted {
		if err := p.Mounter.Mount(root, cfg.DestDir, cfg.Plan.FSType(fstab.Root), 0); err != nil {
			return fmt.Errorf("mount %s on %s: %w", root, cfg.DestDir, err)
		}
	}

	for _, d := range advancedDirs {
		if err := os.MkdirAll(filepath.Join(cfg.DestDir, d), 0755); err != nil {
			return err
		}
	}
	return nil
}

// noopPartitioner stands in for modes that do not touch the disks yet.
type noopPartitioner struct {
	mode string
}

func (p noopPartitioner) Setup(context.Context, Config) error {
	utils.Warn("Partition mode %q does nothing, partitions are neither created nor formatted", p.mode)
	return nil
}

// PartitionerFor returns the partitioner implementing mode.
func PartitionerFor(mode string, m chroot.Mounter) Partitioner {
	switch mode {
	case ModeAutomatic:
		return AutoPartitioner{}
	case ModeAdvanced:
		return AdvancedPartitioner{Mounter: m}
	default:
		return noopPartitioner{mode: mode}
	}
}
