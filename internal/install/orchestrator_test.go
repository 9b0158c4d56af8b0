package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/chroot"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/fstab"
)

// =============================================================================
// Fakes
// =============================================================================

// callLog records collaborator calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakePartitioner struct {
	log *callLog
	err error
}

func (f *fakePartitioner) Setup(context.Context, Config) error {
	f.log.add("partition")
	return f.err
}

type fakePackages struct {
	log        *callLog
	installErr error
	installed  []string
}

func (f *fakePackages) Configure(context.Context, string) error {
	f.log.add("configure")
	return nil
}

func (f *fakePackages) RefreshDatabases(context.Context) error {
	f.log.add("refresh")
	return nil
}

func (f *fakePackages) InstallPackages(_ context.Context, names []string, _ *events.Channel) error {
	f.log.add("install")
	f.installed = names
	return f.installErr
}

type fakeResolver struct {
	log  *callLog
	pkgs []string
	err  error
}

func (f *fakeResolver) Resolve(context.Context, catalog.HardwareProbe, catalog.Options) ([]string, error) {
	f.log.add("resolve")
	return f.pkgs, f.err
}

type fakeHardware struct{}

func (fakeHardware) Detect(context.Context) (catalog.Hardware, error) {
	return catalog.Hardware{}, nil
}

type fakeChroot struct {
	log      *callLog
	mountErr error
}

func (f *fakeChroot) Mount(target string) (chroot.State, error) {
	f.log.add("mount")
	return chroot.State{Target: target, Mounted: []string{target + "/sys"}}, f.mountErr
}

func (f *fakeChroot) Unmount(chroot.State) []error {
	f.log.add("unmount")
	return nil
}

type fakeFSProbe struct {
	log *callLog
}

func (f *fakeFSProbe) UUID(_ context.Context, device string) (string, error) {
	f.log.add("probe " + device)
	return "uuid-" + filepath.Base(device), nil
}

type fakeStep struct {
	log  *callLog
	name string
	err  error
}

func (f *fakeStep) Name() string { return f.name }

func (f *fakeStep) Run(context.Context, Config) error {
	f.log.add(f.name)
	return f.err
}

type fixture struct {
	log      *callLog
	cfg      Config
	ev       *events.Channel
	part     *fakePartitioner
	pkgs     *fakePackages
	resolver *fakeResolver
	chroot   *fakeChroot
	boot     *fakeStep
	sysconf  *fakeStep
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &callLog{}
	dest := t.TempDir()
	host := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(host, "resolv.conf"), []byte("nameserver 10.0.0.1\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(host, "pacman.d", "gnupg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(host, "pacman.d", "mirrorlist"), []byte("Server = http://m/$repo\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(host, "pacman.d", "gnupg", "pubring.gpg"), []byte("keys"), 0644))

	cfg := Config{
		PartitionMode: ModeAdvanced,
		DestDir:       dest,
		Plan: fstab.MountPlan{
			Devices: map[string]string{"/": "/dev/sda1", "/home": "/dev/sda2"},
			FSTypes: map[string]string{"/dev/sda1": "ext4", "/dev/sda2": "ext4"},
			SSD:     map[string]bool{"/dev/sda": true},
		},
		PacmanConf:     filepath.Join(t.TempDir(), "pacman.conf"),
		Arch:           "x86_64",
		HostResolvConf: filepath.Join(host, "resolv.conf"),
		HostPacmanDir:  filepath.Join(host, "pacman.d"),
		HostKeyringDir: filepath.Join(host, "pacman.d", "gnupg"),
	}

	return &fixture{
		log:      log,
		cfg:      cfg,
		ev:       events.NewChannel(1024),
		part:     &fakePartitioner{log: log},
		pkgs:     &fakePackages{log: log},
		resolver: &fakeResolver{log: log, pkgs: []string{"base", "grub", "base"}},
		chroot:   &fakeChroot{log: log},
		boot:     &fakeStep{log: log, name: "bootloader"},
		sysconf:  &fakeStep{log: log, name: "sysconfig"},
	}
}

func (f *fixture) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(f.cfg, Deps{
		Partitioner:  f.part,
		Packages:     f.pkgs,
		Resolver:     f.resolver,
		Hardware:     fakeHardware{},
		Chroot:       f.chroot,
		FSProbe:      &fakeFSProbe{log: f.log},
		Bootloader:   f.boot,
		SystemConfig: f.sysconf,
		Events:       f.ev,
		Privileged: func(fn func() error) error {
			f.log.add("privileged")
			return fn()
		},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) finished() []any {
	f.ev.Close()
	var out []any
	for e := range f.ev.Events() {
		if e.Kind == events.Finished {
			out = append(out, e.Value)
		}
	}
	return out
}

// =============================================================================
// Sequence
// =============================================================================

func TestRun_HappyPathOrder(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, []string{
		"privileged",
		"partition",
		"configure", "refresh",
		"resolve",
		"mount",
		"install",
		"probe /dev/sda1", "probe /dev/sda2",
		"unmount",
		"bootloader",
		"sysconfig",
	}, f.log.list())

	assert.Equal(t, Done, o.State())
	assert.True(t, o.IsOK())
	assert.False(t, o.IsRunning())
	assert.Equal(t, []any{0}, f.finished())
	assert.Equal(t, []string{"base", "grub", "base"}, f.pkgs.installed)

	// Target received fstab, pacman.conf, resolv.conf and the keyring
	fstabData, err := os.ReadFile(filepath.Join(f.cfg.DestDir, "etc", "fstab"))
	require.NoError(t, err)
	assert.Contains(t, string(fstabData), "UUID=uuid-sda1 / ext4 defaults,noatime,nodiratime,discard 0 1")
	assert.Contains(t, string(fstabData), "tmpfs /tmp")

	assert.FileExists(t, f.cfg.PacmanConf)
	assert.FileExists(t, filepath.Join(f.cfg.DestDir, "etc", "resolv.conf"))
	assert.FileExists(t, filepath.Join(f.cfg.DestDir, "etc", "pacman.d", "mirrorlist"))
	assert.FileExists(t, filepath.Join(f.cfg.DestDir, "etc", "pacman.d", "gnupg", "pubring.gpg"))
	assert.DirExists(t, filepath.Join(f.cfg.DestDir, "var", "cache", "pacman", "pkg"))
}

func TestRun_PartitionFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.part.err = errors.New("auto partition script exited 1")
	o := f.orchestrator(t)

	err := o.Run(context.Background())

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, PartitionSetup, se.State)

	assert.Equal(t, []string{"privileged", "partition"}, f.log.list(), "nothing may run after a failed partition setup")
	assert.NoFileExists(t, filepath.Join(f.cfg.DestDir, "etc", "fstab"))
	assert.False(t, o.IsOK())
	assert.False(t, o.IsRunning())
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, []any{1}, f.finished())
}

func TestRun_CatalogFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = &catalog.FetchError{URL: "http://catalog", Err: errors.New("connection refused")}
	o := f.orchestrator(t)

	err := o.Run(context.Background())

	assert.True(t, IsFatal(err))
	var fe *catalog.FetchError
	assert.ErrorAs(t, err, &fe)
	assert.NotContains(t, f.log.list(), "mount")
	assert.NotContains(t, f.log.list(), "install")
	assert.Equal(t, []any{1}, f.finished())
}

func TestRun_EmptyPackageSetIsFatal(t *testing.T) {
	f := newFixture(t)
	f.resolver.pkgs = nil
	o := f.orchestrator(t)

	err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoPackages)
	assert.NotContains(t, f.log.list(), "mount")
}

func TestRun_InstallFailureStillUnmounts(t *testing.T) {
	f := newFixture(t)
	f.pkgs.installErr = errors.New("pacman exit status 1")
	o := f.orchestrator(t)

	err := o.Run(context.Background())

	require.Error(t, err)
	assert.False(t, IsFatal(err))
	calls := f.log.list()
	assert.Contains(t, calls, "unmount")
	assert.NotContains(t, calls, "probe /dev/sda1", "fstab is skipped after a failed install")
	assert.NotContains(t, calls, "bootloader")
	assert.NotContains(t, calls, "sysconfig")
	assert.False(t, o.IsOK())
	assert.Equal(t, []any{1}, f.finished())
}

func TestRun_PartialChrootMountIsCleanedUp(t *testing.T) {
	f := newFixture(t)
	f.chroot.mountErr = errors.New("mount proc: permission denied")
	o := f.orchestrator(t)

	require.Error(t, o.Run(context.Background()))
	calls := f.log.list()
	assert.Equal(t, "unmount", calls[len(calls)-1])
	assert.NotContains(t, calls, "install")
}

func TestRun_BootloaderFailure(t *testing.T) {
	f := newFixture(t)
	f.boot.err = errors.New("grub-install failed")
	o := f.orchestrator(t)

	err := o.Run(context.Background())
	require.Error(t, err)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, BootloaderInstalled, se.State)
	assert.Equal(t, Recoverable, se.Kind)
	assert.NotContains(t, f.log.list(), "sysconfig")
}

func TestRun_OptionalStepsMayBeAbsent(t *testing.T) {
	f := newFixture(t)
	o, err := New(f.cfg, Deps{
		Partitioner: f.part,
		Packages:    f.pkgs,
		Resolver:    f.resolver,
		Hardware:    fakeHardware{},
		Chroot:      f.chroot,
		FSProbe:     &fakeFSProbe{log: f.log},
		Privileged:  func(fn func() error) error { return fn() },
	})
	require.NoError(t, err)

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, Done, o.State())
}

func TestRun_PrivilegeFailure(t *testing.T) {
	f := newFixture(t)
	o, err := New(f.cfg, Deps{
		Partitioner: f.part,
		Packages:    f.pkgs,
		Resolver:    f.resolver,
		Hardware:    fakeHardware{},
		Chroot:      f.chroot,
		FSProbe:     &fakeFSProbe{log: f.log},
		Events:      f.ev,
		Privileged:  func(func() error) error { return errors.New("cannot raise privileges") },
	})
	require.NoError(t, err)

	require.Error(t, o.Run(context.Background()))
	assert.Empty(t, f.log.list())
	assert.Equal(t, []any{1}, f.finished())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsFatal(err))
	assert.Equal(t, []string{"privileged"}, f.log.list())
}

func TestRun_CancelledAfterChrootStillUnmounts(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel as soon as the chroot is up
	f.chroot = &fakeChroot{log: f.log}
	o := f.orchestrator(t)
	o.deps.Chroot = cancellingChroot{fakeChroot: f.chroot, cancel: cancel}

	err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	calls := f.log.list()
	assert.Contains(t, calls, "unmount")
	assert.NotContains(t, calls, "install")
}

type cancellingChroot struct {
	*fakeChroot
	cancel context.CancelFunc
}

func (c cancellingChroot) Mount(target string) (chroot.State, error) {
	defer c.cancel()
	return c.fakeChroot.Mount(target)
}

func TestRun_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	require.NoError(t, o.Run(context.Background()))
	assert.ErrorIs(t, o.Run(context.Background()), ErrAlreadyRunning)
}

// =============================================================================
// Background worker
// =============================================================================

func TestStart_RunsInBackground(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.part.err = nil
	o := f.orchestrator(t)
	o.deps.Partitioner = blockingPartitioner{release: release, log: f.log}

	done := o.Start(context.Background())
	assert.True(t, o.IsRunning())

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("installation did not finish")
	}
	assert.False(t, o.IsRunning())
	assert.True(t, o.IsOK())

	_, open := <-done
	assert.False(t, open, "result channel is closed after the result")
}

type blockingPartitioner struct {
	release chan struct{}
	log     *callLog
}

func (b blockingPartitioner) Setup(ctx context.Context, _ Config) error {
	b.log.add("partition")
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)
}

func TestNew_RejectsPlanWithoutRoot(t *testing.T) {
	f := newFixture(t)
	cfg := f.cfg
	cfg.PartitionMode = ModeAutomatic
	cfg.Plan = fstab.MountPlan{}

	o, err := New(cfg, Deps{
		Partitioner: f.part,
		Packages:    f.pkgs,
		Resolver:    f.resolver,
		Hardware:    fakeHardware{},
		Chroot:      f.chroot,
		FSProbe:     &fakeFSProbe{log: f.log},
	})
	require.ErrorIs(t, err, fstab.ErrNoRoot)
	assert.Nil(t, o)
	assert.Empty(t, f.log.list(), "no step may run for a rejected plan")
}

func TestNew_PicksPartitionerFromMode(t *testing.T) {
	f := newFixture(t)
	deps := Deps{
		Packages: f.pkgs,
		Resolver: f.resolver,
		Hardware: fakeHardware{},
		Chroot:   f.chroot,
		FSProbe:  &fakeFSProbe{log: f.log},
	}

	cfg := f.cfg
	cfg.PartitionMode = ModeAutomatic
	o, err := New(cfg, deps)
	require.NoError(t, err)
	assert.IsType(t, AutoPartitioner{}, o.deps.Partitioner)

	cfg.PartitionMode = ModeEasy
	o, err = New(cfg, deps)
	require.NoError(t, err)
	assert.IsType(t, noopPartitioner{}, o.deps.Partitioner)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "partition-setup", PartitionSetup.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, Failed.Terminal())
	assert.False(t, ChrootMounted.Terminal())
}
