package install

// State is a step of the installation sequence. States only move forward.
type State int

const (
	Idle State = iota
	PartitionSetup
	PackageManagerConfigured
	PackagesResolved
	ChrootMounted
	PackagesInstalled
	FstabWritten
	ChrootUnmounted
	BootloaderInstalled
	SystemConfigured
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:                     "idle",
	PartitionSetup:           "partition-setup",
	PackageManagerConfigured: "package-manager-configured",
	PackagesResolved:         "packages-resolved",
	ChrootMounted:            "chroot-mounted",
	PackagesInstalled:        "packages-installed",
	FstabWritten:             "fstab-written",
	ChrootUnmounted:          "chroot-unmounted",
	BootloaderInstalled:      "bootloader-installed",
	SystemConfigured:         "system-configured",
	Done:                     "done",
	Failed:                   "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
