package cmd

import (
	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/chroot"
	"github.com/cnchi/installer/internal/config"
	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/fstab"
	"github.com/cnchi/installer/internal/install"
	"github.com/cnchi/installer/internal/pacman"
)

// newPackageManager builds the pacman handle for destDir together with the
// download manager that fills its cache.
func newPackageManager(s *config.Settings, destDir, arch, runID string, ev *events.Channel, rec downloader.Recorder) (*pacman.Manager, *downloader.Manager) {
	pm := pacman.NewManager(destDir, arch, nil)
	dl := downloader.NewManager(pm.CacheDir(), s.Paths.CacheDir, ev, s.ToRuntimeConfig())
	dl.RunID = runID
	dl.Recorder = rec
	pm.Fetcher = dl
	return pm, dl
}

// newResolver builds the catalog resolver with the download HTTP settings.
func newResolver(s *config.Settings) *catalog.Resolver {
	return catalog.NewResolver(s.Network.CatalogURL, downloader.NewHTTPClient(s.ToRuntimeConfig()))
}

// newOrchestrator wires the production collaborators of one installation.
func newOrchestrator(s *config.Settings, plan fstab.MountPlan, runID string, ev *events.Channel, rec downloader.Recorder) (*install.Orchestrator, error) {
	cfg := s.ToInstallConfig(plan)
	if cfg.Arch == "" {
		cfg.Arch = catalog.Arch()
	}

	pm, _ := newPackageManager(s, cfg.DestDir, cfg.Arch, runID, ev, rec)
	mounter := chroot.SystemMounter{}

	return install.New(cfg, install.Deps{
		Packages: pm,
		Resolver: newResolver(s),
		Hardware: newHardwareProbe(),
		Chroot:   chroot.New(mounter),
		FSProbe:  uuidProbe,
		Mounter:  mounter,
		Events:   ev,
	})
}
