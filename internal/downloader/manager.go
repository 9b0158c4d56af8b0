package downloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/utils"
)

// Status is how a task was resolved.
type Status string

const (
	StatusExisting   Status = "existing"   // already in the destination cache
	StatusCached     Status = "cached"     // copied from the alternate cache
	StatusDownloaded Status = "downloaded" // fetched from a mirror
	StatusFailed     Status = "failed"     // every mirror failed
)

// Outcome describes one resolved task.
type Outcome struct {
	RunID      string
	Identity   string
	Version    string
	Filename   string
	Status     Status
	Mirror     string // URL that succeeded, if any
	Attempts   int    // mirrors tried
	Bytes      int64
	FinishedAt time.Time
}

// Recorder persists outcomes. Recording failures are logged and ignored.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Summary is what a run left behind.
type Summary struct {
	Total     int
	Completed int
	Failed    []string
}

// Manager downloads a queue of package files into the pacman cache.
type Manager struct {
	PacmanCacheDir string // final destination of every file
	CacheDir       string // optional user-supplied cache checked before the network
	RunID          string
	Events         *events.Channel
	Runtime        *RuntimeConfig
	Client         *http.Client
	Recorder       Recorder
}

// NewManager creates a manager writing into pacmanCacheDir and looking into
// cacheDir (may be empty) for already downloaded files.
func NewManager(pacmanCacheDir, cacheDir string, ev *events.Channel, runtime *RuntimeConfig) *Manager {
	return &Manager{
		PacmanCacheDir: pacmanCacheDir,
		CacheDir:       cacheDir,
		Events:         ev,
		Runtime:        runtime,
		Client:         NewHTTPClient(runtime),
	}
}

// Run consumes the whole queue. Errors never reach the caller: a file that
// could not be fetched is simply absent afterwards and pacman gets a chance
// to download it itself. The queue is empty on return.
func (m *Manager) Run(ctx context.Context, queue Queue) Summary {
	total := queue.Len()
	summary := Summary{Total: total}

	if err := os.MkdirAll(m.PacmanCacheDir, 0755); err != nil {
		utils.Warn("Cannot create cache directory %s: %v", m.PacmanCacheDir, err)
	}

	m.Events.Send(events.DownloadsProgressBar, "show")
	m.Events.Send(events.DownloadsPercent, 0.0)

	resolved := 0
	for queue.Len() > 0 {
		t := queue.Pop()

		m.Events.Send(events.Percent, 0.0)
		m.Events.Send(events.Info, fmt.Sprintf("Downloading %s %s (%d/%d)...", t.Identity, t.Version, resolved+1, total))

		outcome := m.process(ctx, t)
		outcome.RunID = m.RunID
		outcome.FinishedAt = time.Now()

		if outcome.Status == StatusFailed {
			summary.Failed = append(summary.Failed, t.Filename)
		} else {
			summary.Completed++
		}
		m.record(ctx, outcome)

		resolved++
		m.Events.Send(events.DownloadsPercent, round2(float64(resolved)/float64(total)))
	}

	m.Events.Send(events.DownloadsProgressBar, "hide")
	utils.Info("Downloads finished: %d/%d available, %d failed", summary.Completed, total, len(summary.Failed))
	return summary
}

// process resolves a single task: destination cache, then alternate cache,
// then mirrors in listed order.
func (m *Manager) process(ctx context.Context, t *Task) Outcome {
	out := Outcome{Identity: t.Identity, Version: t.Version, Filename: t.Filename}
	destPath := filepath.Join(m.PacmanCacheDir, t.Filename)

	if t.Size <= 0 {
		utils.Warn("Package %s has no size info", t.Identity)
	}

	if fileExists(destPath) {
		// File already exists (previous install?), do not download
		utils.Warn("File %s already exists, it will not be overwritten", t.Filename)
		m.Events.Send(events.Percent, 1.0)
		out.Status = StatusExisting
		return out
	}

	if m.CacheDir != "" {
		cachePath := filepath.Join(m.CacheDir, t.Filename)
		if fileExists(cachePath) {
			err := copyFile(cachePath, destPath)
			if err == nil {
				m.Events.Send(events.Percent, 1.0)
				out.Status = StatusCached
				return out
			}
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrExist) {
				utils.Debug("Cache copy of %s skipped: %v", t.Filename, err)
			} else {
				utils.Warn("Cannot copy %s from cache: %v", t.Filename, err)
			}
		}
	}

	for _, rawurl := range t.URLs {
		if err := ctx.Err(); err != nil {
			utils.Warn("Download of %s cancelled: %v", t.Filename, err)
			break
		}
		out.Attempts++
		utils.Debug("Downloading file from url %s", rawurl)

		n, err := m.fetchMirror(ctx, t, rawurl, destPath)
		if err == nil {
			utils.Debug("Downloaded %s (%s) from %s", t.Filename, utils.ConvertBytesToHumanReadable(n), rawurl)
			out.Status = StatusDownloaded
			out.Mirror = rawurl
			out.Bytes = n
			return out
		}

		var oe *openError
		if errors.As(err, &oe) {
			utils.Warn("Can't open %s, will try another mirror if available: %v", rawurl, oe.Err)
		} else {
			utils.Warn("Can't download %s, will try another mirror if available: %v", rawurl, err)
		}
	}

	// Not a disaster: pacman may still be able to fetch it later.
	utils.Warn("Can't download %s, even after trying all available mirrors", t.Filename)
	out.Status = StatusFailed
	return out
}

func (m *Manager) record(ctx context.Context, o Outcome) {
	if m.Recorder == nil {
		return
	}
	if err := m.Recorder.Record(ctx, o); err != nil {
		utils.Debug("Cannot record outcome for %s: %v", o.Filename, err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
