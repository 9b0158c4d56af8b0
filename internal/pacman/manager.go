package pacman

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/utils"
)

// printFormat asks pacman for everything a download task needs.
const printFormat = "%r %n %v %f %s %l"

// ErrNotConfigured is returned when the handle has no configuration bound.
var ErrNotConfigured = errors.New("pacman handle is not configured")

// CommandRunner runs a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Fetcher pre-downloads a queue into the pacman cache.
type Fetcher interface {
	Run(ctx context.Context, queue downloader.Queue) downloader.Summary
}

// Manager drives pacman against a target root.
type Manager struct {
	Binary   string // pacman executable
	DestDir  string // target root
	Arch     string
	Run      CommandRunner
	Fetcher  Fetcher // nil skips the pre-download
	confPath string
}

// NewManager returns a handle for destDir. Packages are pre-downloaded with
// fetcher before pacman installs them from its cache.
func NewManager(destDir, arch string, fetcher Fetcher) *Manager {
	return &Manager{
		Binary:  "pacman",
		DestDir: destDir,
		Arch:    arch,
		Run:     execRunner,
		Fetcher: fetcher,
	}
}

// CacheDir is the pacman package cache inside the target.
func (m *Manager) CacheDir() string {
	return filepath.Join(m.DestDir, "var/cache/pacman/pkg")
}

// Configure binds the handle to a pacman.conf.
func (m *Manager) Configure(_ context.Context, confPath string) error {
	if _, err := os.Stat(confPath); err != nil {
		return fmt.Errorf("pacman config: %w", err)
	}
	m.confPath = confPath
	utils.Debug("pacman handle bound to %s (root %s)", confPath, m.DestDir)
	return nil
}

func (m *Manager) baseArgs() []string {
	return []string{"--root", m.DestDir, "--config", m.confPath, "--noconfirm", "--noprogressbar"}
}

func (m *Manager) pacman(ctx context.Context, args ...string) ([]byte, error) {
	if m.confPath == "" {
		return nil, ErrNotConfigured
	}
	full := append(m.baseArgs(), args...)
	utils.Debug("Running %s %s", m.Binary, strings.Join(full, " "))
	out, err := m.Run(ctx, m.Binary, full...)
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", m.Binary, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// RefreshDatabases synchronizes the repository databases.
func (m *Manager) RefreshDatabases(ctx context.Context) error {
	_, err := m.pacman(ctx, "-Sy")
	return err
}

// InstallPackages installs names into the target. Duplicates are dropped
// first. Files the pre-download could not fetch are left to pacman.
func (m *Manager) InstallPackages(ctx context.Context, names []string, ev *events.Channel) error {
	names = catalog.Dedup(names)
	if len(names) == 0 {
		return nil
	}

	if m.Fetcher != nil {
		ev.Send(events.Info, "Preparing package downloads...")
		queue, err := m.BuildQueue(ctx, names)
		if err != nil {
			utils.Warn("Cannot build download queue, pacman will download by itself: %v", err)
		} else {
			summary := m.Fetcher.Run(ctx, queue)
			if len(summary.Failed) > 0 {
				utils.Warn("%d packages were not pre-downloaded", len(summary.Failed))
			}
		}
	}

	ev.Send(events.Info, fmt.Sprintf("Installing %d packages...", len(names)))
	ev.Send(events.ProgressBar, "show")
	defer ev.Send(events.ProgressBar, "hide")

	args := append([]string{"-S", "--needed"}, names...)
	if _, err := m.pacman(ctx, args...); err != nil {
		return err
	}
	utils.Info("Installed %d packages", len(names))
	return nil
}

// BuildQueue asks pacman which files the packages need and expands every
// mirror of each package's repository into its URL list.
func (m *Manager) BuildQueue(ctx context.Context, names []string) (downloader.Queue, error) {
	out, err := m.pacman(ctx, append([]string{"-Sp", "--print-format", printFormat}, names...)...)
	if err != nil {
		return nil, err
	}

	mirrors, err := m.repoMirrors()
	if err != nil {
		return nil, err
	}

	queue := downloader.NewQueue()
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		repo, name, version, filename, size := fields[0], fields[1], fields[2], fields[3], fields[4]

		task := &downloader.Task{
			Identity: name,
			Version:  version,
			Filename: filename,
			Size:     downloader.ParseSize(name, size),
		}
		for _, server := range mirrors[repo] {
			u, err := utils.MirrorURL(utils.ExpandMirror(server, repo, m.Arch), filename)
			if err != nil {
				utils.Debug("Skipping mirror %s: %v", server, err)
				continue
			}
			task.URLs = append(task.URLs, u)
		}
		if len(fields) > 5 && len(task.URLs) == 0 {
			task.URLs = append(task.URLs, fields[5])
		}
		queue.Add(task)
	}
	utils.Debug("Download queue has %d packages", queue.Len())
	return queue, nil
}

// repoMirrors reads the configured mirrorlists, keyed by repository.
func (m *Manager) repoMirrors() (map[string][]string, error) {
	f, err := os.Open(m.confPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	includes, err := ReadIncludes(f)
	if err != nil {
		return nil, err
	}

	parsed := make(map[string][]string)
	mirrors := make(map[string][]string, len(includes))
	for repo, path := range includes {
		servers, ok := parsed[path]
		if !ok {
			servers, err = readMirrorlist(path)
			if err != nil {
				utils.Warn("Cannot read mirrorlist %s: %v", path, err)
			}
			parsed[path] = servers
		}
		mirrors[repo] = servers
	}
	return mirrors, nil
}

func readMirrorlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMirrorlist(f)
}
