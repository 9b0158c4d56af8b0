// Package install runs the installation sequence: partitions, package
// manager, package set, chroot, packages, fstab, bootloader and system
// configuration.
package install

import (
	"github.com/cnchi/installer/internal/fstab"
	"github.com/cnchi/installer/internal/pacman"
)

// Partition modes.
const (
	ModeAutomatic = "automatic"
	ModeAdvanced  = "advanced"
	ModeEasy      = "easy"
)

// Config is the immutable input of one installation run.
type Config struct {
	PartitionMode       string
	RootDevice          string // disk handed to the auto partition script
	AutoPartitionScript string
	DestDir             string
	Plan                fstab.MountPlan

	PacmanConf   string
	Arch         string // empty detects the running kernel's
	UseNTP       bool
	LanguageCode string

	// Host files copied into the target.
	HostResolvConf string
	HostPacmanDir  string
	HostKeyringDir string
}

// DefaultConfig returns the paths used on the live medium.
func DefaultConfig() Config {
	return Config{
		PartitionMode:       ModeAutomatic,
		AutoPartitionScript: "/usr/share/cnchi/scripts/auto_partition.sh",
		DestDir:             "/install",
		PacmanConf:          pacman.DefaultConfPath,
		HostResolvConf:      "/etc/resolv.conf",
		HostPacmanDir:       "/etc/pacman.d",
		HostKeyringDir:      "/etc/pacman.d/gnupg",
	}
}
