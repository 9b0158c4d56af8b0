// Package events carries installer progress from the worker goroutine to
// whatever front-end is consuming it.
package events

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cnchi/installer/internal/utils"
)

// Kind names the type of a progress event.
type Kind string

const (
	// Info is a human-readable status line.
	Info Kind = "info"
	// Percent is the per-item fraction, 0.0-1.0.
	Percent Kind = "percent"
	// DownloadsPercent is the aggregate download fraction, 0.0-1.0.
	DownloadsPercent Kind = "downloads_percent"
	// DownloadsProgressBar shows or hides the download bar ("show"/"hide").
	DownloadsProgressBar Kind = "downloads_progress_bar"
	// ProgressBar shows or hides the per-item bar ("show"/"hide").
	ProgressBar Kind = "progress_bar"
	// Finished carries the run's exit code; 0 means success.
	Finished Kind = "finished"
)

// DefaultBuffer is the queue depth used when callers don't pick one.
const DefaultBuffer = 100

// Event is one (kind, value) pair.
type Event struct {
	Kind  Kind
	Value any
}

func (e Event) String() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Value)
}

// Channel is a bounded, non-blocking, de-duplicating event sink.
//
// Send never blocks the producer: when the consumer falls behind and the
// buffer is full the event is dropped. Progress is telemetry, so losing an
// intermediate value is preferable to stalling a mount or a download.
// A value equal to the last delivered value of the same kind is suppressed.
type Channel struct {
	ch      chan Event
	mu      sync.Mutex
	last    map[Kind]any
	closed  bool
	dropped atomic.Int64
}

// NewChannel creates a sink with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Channel{
		ch:   make(chan Event, buffer),
		last: make(map[Kind]any),
	}
}

// Send queues an event and reports whether it was delivered. A nil Channel
// only logs, so components can run without a consumer attached.
func (c *Channel) Send(kind Kind, value any) bool {
	if c == nil {
		if kind != Percent {
			utils.Debug("%s : %v", kind, value)
		}
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if prev, ok := c.last[kind]; ok && reflect.DeepEqual(prev, value) {
		return false
	}

	select {
	case c.ch <- Event{Kind: kind, Value: value}:
		c.last[kind] = value
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Events returns the receive side for the consumer.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}

// Close stops delivery and closes the receive side. Later sends are ignored.
func (c *Channel) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
