// Package fstab turns a mount plan into the target system's /etc/fstab.
package fstab

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Root is the mount point every plan must contain.
const Root = "/"

// Swap is the pseudo mount point for swap devices.
const Swap = "swap"

var (
	ErrNoRoot        = errors.New("mount plan has no root mount point")
	ErrMissingFSType = errors.New("mount point has no filesystem type")
)

// MountPlan is the storage layout decided before installation starts.
type MountPlan struct {
	// Devices maps mount point ("/", "/home", "swap") to block device.
	Devices map[string]string `yaml:"devices"`
	// FSTypes maps block device to filesystem type.
	FSTypes map[string]string `yaml:"fs_types"`
	// SSD maps device (or its parent disk) to the solid-state hint.
	SSD map[string]bool `yaml:"ssd"`
}

// Validate checks that root is present and every non-swap mount point has a
// filesystem type.
func (p MountPlan) Validate() error {
	if p.Devices[Root] == "" {
		return ErrNoRoot
	}
	for _, mp := range p.MountPoints() {
		if mp == Swap {
			continue
		}
		if p.FSTypes[p.Devices[mp]] == "" {
			return fmt.Errorf("%w: %s (%s)", ErrMissingFSType, mp, p.Devices[mp])
		}
	}
	return nil
}

// MountPoints returns the plan's mount points, root first, the rest sorted.
func (p MountPlan) MountPoints() []string {
	points := make([]string, 0, len(p.Devices))
	for mp := range p.Devices {
		points = append(points, mp)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i] == Root || points[j] == Root {
			return points[i] == Root
		}
		return points[i] < points[j]
	})
	return points
}

// IsSSD reports the solid-state hint for device. An exact entry wins;
// otherwise the entry for the disk device is a partition of is used.
func (p MountPlan) IsSSD(device string) bool {
	if v, ok := p.SSD[device]; ok {
		return v
	}
	for disk, v := range p.SSD {
		if isPartitionOf(device, disk) {
			return v
		}
	}
	return false
}

// isPartitionOf reports whether device names a partition of disk: sda1 of
// sda, or nvme0n1p2 of nvme0n1 when the disk name ends in a digit.
func isPartitionOf(device, disk string) bool {
	if disk == "" || !strings.HasPrefix(device, disk) {
		return false
	}
	suffix := device[len(disk):]
	if last := disk[len(disk)-1]; last >= '0' && last <= '9' {
		if !strings.HasPrefix(suffix, "p") {
			return false
		}
		suffix = suffix[1:]
	}
	return suffix != "" && strings.Trim(suffix, "0123456789") == ""
}

// FSType returns the filesystem type for the device mounted at mp.
func (p MountPlan) FSType(mp string) string {
	if fs := p.FSTypes[p.Devices[mp]]; fs != "" {
		return fs
	}
	if mp == Swap {
		return Swap
	}
	return ""
}

// LoadPlan reads a YAML mount plan from path.
func LoadPlan(path string) (MountPlan, error) {
	var plan MountPlan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, err
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("parse mount plan %s: %w", path, err)
	}
	return plan, plan.Validate()
}
