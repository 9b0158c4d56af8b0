package downloader

import (
	"strconv"
	"strings"

	"github.com/cnchi/installer/internal/utils"
)

// Task is one package file to fetch.
type Task struct {
	Identity string   // package name
	Version  string   // package version
	Filename string   // file name inside the cache directories
	Size     int64    // expected size in bytes; <= 0 means unknown
	URLs     []string // candidate mirrors, tried in order
}

// ParseSize converts size metadata into a byte count. Missing or invalid
// values yield 0, which the manager treats as unknown size.
func ParseSize(identity, raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		utils.Warn("Package %s has no size info", identity)
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		utils.Warn("Package %s has invalid size info %q", identity, raw)
		return 0
	}
	return n
}

// Queue maps task identity to the pending task. Items are consumed
// destructively and in no particular order.
type Queue map[string]*Task

// NewQueue builds a queue from tasks. A later task with the same identity
// replaces an earlier one.
func NewQueue(tasks ...*Task) Queue {
	q := make(Queue, len(tasks))
	for _, t := range tasks {
		q.Add(t)
	}
	return q
}

// Add inserts or replaces a task.
func (q Queue) Add(t *Task) {
	if t == nil {
		return
	}
	q[t.Identity] = t
}

// Len returns the number of pending tasks.
func (q Queue) Len() int {
	return len(q)
}

// Pop removes and returns an arbitrary task, or nil when empty.
func (q Queue) Pop() *Task {
	for id, t := range q {
		delete(q, id)
		return t
	}
	return nil
}
