package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/chroot"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/fstab"
	"github.com/cnchi/installer/internal/pacman"
	"github.com/cnchi/installer/internal/privilege"
	"github.com/cnchi/installer/internal/utils"
)

// PackageManager is the handle used to install into the target.
type PackageManager interface {
	Configure(ctx context.Context, confPath string) error
	RefreshDatabases(ctx context.Context) error
	InstallPackages(ctx context.Context, names []string, ev *events.Channel) error
}

// Resolver produces the package set for this machine.
type Resolver interface {
	Resolve(ctx context.Context, probe catalog.HardwareProbe, opts catalog.Options) ([]string, error)
}

// Chroot mounts and unmounts the target's virtual filesystems.
type Chroot interface {
	Mount(target string) (chroot.State, error)
	Unmount(state chroot.State) []error
}

// Step is a pluggable late stage such as bootloader installation.
type Step interface {
	Name() string
	Run(ctx context.Context, cfg Config) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Partitioner Partitioner // nil picks one from the partition mode
	Packages    PackageManager
	Resolver    Resolver
	Hardware    catalog.HardwareProbe
	Chroot      Chroot
	FSProbe     fstab.Probe
	Mounter     chroot.Mounter // used by the advanced partitioner

	Bootloader   Step // optional
	SystemConfig Step // optional

	Events *events.Channel

	// Privileged wraps the whole run; defaults to privilege.Run.
	Privileged func(func() error) error
	// WriteConfig writes pacman.conf; defaults to pacman.WriteConfig.
	WriteConfig func(path, destDir, arch string) error
}

// Orchestrator runs the installation sequence once.
type Orchestrator struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	state    State
	packages []string
	mounts   chroot.State

	running atomic.Bool
	failed  atomic.Bool
	started atomic.Bool
}

// New validates the collaborators and the mount plan and returns an
// orchestrator for cfg. Nothing touches the disk when either is rejected.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Packages == nil:
		return nil, fmt.Errorf("%w: package manager", errMissingDependency)
	case deps.Resolver == nil:
		return nil, fmt.Errorf("%w: resolver", errMissingDependency)
	case deps.Hardware == nil:
		return nil, fmt.Errorf("%w: hardware probe", errMissingDependency)
	case deps.Chroot == nil:
		return nil, fmt.Errorf("%w: chroot", errMissingDependency)
	case deps.FSProbe == nil:
		return nil, fmt.Errorf("%w: filesystem probe", errMissingDependency)
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mount plan: %w", err)
	}
	if deps.Partitioner == nil {
		deps.Partitioner = PartitionerFor(cfg.PartitionMode, deps.Mounter)
	}
	if deps.Privileged == nil {
		deps.Privileged = privilege.Run
	}
	if deps.WriteConfig == nil {
		deps.WriteConfig = pacman.WriteConfig
	}
	utils.Info("Installing using '%s' method", cfg.PartitionMode)
	return &Orchestrator{cfg: cfg, deps: deps}, nil
}

// IsRunning reports whether the sequence is in progress.
func (o *Orchestrator) IsRunning() bool {
	return o.running.Load()
}

// IsOK reports whether no step has failed so far.
func (o *Orchestrator) IsOK() bool {
	return !o.failed.Load()
}

// State returns the last state reached.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Packages returns the resolved package set.
func (o *Orchestrator) Packages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.packages...)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	utils.Debug("Installation state: %s", s)
}

// Start runs the sequence on its own goroutine. The channel yields the
// result of Run and is then closed.
func (o *Orchestrator) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	if !o.started.CompareAndSwap(false, true) {
		done <- ErrAlreadyRunning
		close(done)
		return done
	}
	o.running.Store(true)
	go func() {
		defer close(done)
		done <- o.run(ctx)
	}()
	return done
}

// Run executes the whole sequence with raised privileges and blocks until it
// ends. The final "finished" event carries 0 on success and 1 otherwise.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	o.running.Store(true)
	return o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) error {
	defer o.running.Store(false)

	err := o.deps.Privileged(func() error {
		return o.sequence(ctx)
	})
	if err != nil {
		o.failed.Store(true)
		o.setState(Failed)
		utils.Error("Installation failed: %v", err)
		o.deps.Events.Send(events.Finished, 1)
		return err
	}

	o.setState(Done)
	utils.Info("Installation finished")
	o.deps.Events.Send(events.Finished, 0)
	return nil
}

type step struct {
	state State
	kind  Kind
	info  string
	run   func(ctx context.Context) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{PartitionSetup, Fatal, "Preparing partitions...", o.setupPartitions},
		{PackageManagerConfigured, Fatal, "Configuring package manager...", o.configurePackageManager},
		{PackagesResolved, Fatal, "Selecting packages...", o.resolvePackages},
		{ChrootMounted, Recoverable, "Preparing chroot...", o.mountChroot},
		{PackagesInstalled, Recoverable, "Installing packages...", o.installPackages},
		{FstabWritten, Recoverable, "Writing fstab...", o.writeFstab},
		{ChrootUnmounted, Recoverable, "Cleaning up chroot...", o.unmountChroot},
		{BootloaderInstalled, Recoverable, "Installing bootloader...", o.stepRunner(o.deps.Bootloader)},
		{SystemConfigured, Recoverable, "Configuring system...", o.stepRunner(o.deps.SystemConfig)},
	}
}

// sequence walks the states in order. A fatal failure returns at once; a
// recoverable one still lets the chroot be unmounted and then stops.
func (o *Orchestrator) sequence(ctx context.Context) error {
	var failure *StepError

	for _, s := range o.steps() {
		cleanup := s.state == ChrootUnmounted
		if failure != nil && !cleanup {
			continue
		}

		if failure == nil {
			if err := ctx.Err(); err != nil && !cleanup {
				failure = &StepError{State: s.state, Kind: s.kind, Err: err}
				if s.kind == Fatal {
					return failure
				}
				continue
			}
		}

		o.deps.Events.Send(events.Info, s.info)
		if err := s.run(ctx); err != nil {
			if cleanup {
				// unmount problems never change the outcome
				continue
			}
			failure = &StepError{State: s.state, Kind: s.kind, Err: err}
			if s.kind == Fatal {
				utils.Error("%v", failure)
				return failure
			}
			utils.Warn("%v; skipping to cleanup", failure)
			continue
		}
		if failure == nil {
			o.setState(s.state)
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}

func (o *Orchestrator) setupPartitions(ctx context.Context) error {
	return o.deps.Partitioner.Setup(ctx, o.cfg)
}

func (o *Orchestrator) configurePackageManager(ctx context.Context) error {
	arch := o.cfg.Arch
	if arch == "" {
		arch = catalog.Arch()
	}
	utils.Info("Creating pacman.conf for %s architecture", arch)

	if err := o.deps.WriteConfig(o.cfg.PacmanConf, o.cfg.DestDir, arch); err != nil {
		return err
	}
	if err := o.deps.Packages.Configure(ctx, o.cfg.PacmanConf); err != nil {
		return err
	}

	for _, d := range []string{"var/cache/pacman/pkg", "var/lib/pacman"} {
		if err := os.MkdirAll(filepath.Join(o.cfg.DestDir, d), 0755); err != nil {
			return err
		}
	}
	o.copyKeyring()

	return o.deps.Packages.RefreshDatabases(ctx)
}

// copyKeyring gives the target the host's pacman keyring. An existing
// keyring in the target is kept.
func (o *Orchestrator) copyKeyring() {
	if o.cfg.HostKeyringDir == "" {
		return
	}
	dst := filepath.Join(o.cfg.DestDir, "etc/pacman.d/gnupg")
	err := copyTree(o.cfg.HostKeyringDir, dst)
	switch {
	case err == nil:
		utils.Debug("Copied pacman keyring to %s", dst)
	case errors.Is(err, fs.ErrExist):
		utils.Debug("Keyring already present in %s", dst)
	default:
		utils.Warn("Cannot copy pacman keyring: %v", err)
	}
}

func (o *Orchestrator) resolvePackages(ctx context.Context) error {
	pkgs, err := o.deps.Resolver.Resolve(ctx, o.deps.Hardware, catalog.Options{
		UseNTP:       o.cfg.UseNTP,
		LanguageCode: o.cfg.LanguageCode,
	})
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return ErrNoPackages
	}

	o.mu.Lock()
	o.packages = pkgs
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) mountChroot(_ context.Context) error {
	state, err := o.deps.Chroot.Mount(o.cfg.DestDir)
	o.mu.Lock()
	o.mounts = state
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) installPackages(ctx context.Context) error {
	return o.deps.Packages.InstallPackages(ctx, o.Packages(), o.deps.Events)
}

func (o *Orchestrator) writeFstab(ctx context.Context) error {
	if err := fstab.Write(ctx, o.cfg.DestDir, o.cfg.Plan, o.deps.FSProbe); err != nil {
		return err
	}
	o.copyHostFiles()
	return nil
}

// copyHostFiles copies network and pacman configuration into the target.
// Failures are logged only.
func (o *Orchestrator) copyHostFiles() {
	if o.cfg.HostResolvConf != "" {
		dst := filepath.Join(o.cfg.DestDir, "etc", "resolv.conf")
		if err := copyFile(o.cfg.HostResolvConf, dst); err != nil {
			utils.Warn("Cannot copy %s: %v", o.cfg.HostResolvConf, err)
		}
	}
	if o.cfg.HostPacmanDir != "" {
		dst := filepath.Join(o.cfg.DestDir, "etc", "pacman.d")
		if err := copyRegularFiles(o.cfg.HostPacmanDir, dst); err != nil {
			utils.Warn("Cannot copy %s: %v", o.cfg.HostPacmanDir, err)
		}
	}
}

func (o *Orchestrator) unmountChroot(_ context.Context) error {
	o.mu.Lock()
	state := o.mounts
	o.mu.Unlock()

	if state.Empty() {
		return nil
	}
	errs := o.deps.Chroot.Unmount(state)
	return errors.Join(errs...)
}

func (o *Orchestrator) stepRunner(s Step) func(context.Context) error {
	return func(ctx context.Context) error {
		if s == nil {
			return nil
		}
		utils.Debug("Running %s", s.Name())
		return s.Run(ctx, o.cfg)
	}
}
