package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval = 500 * time.Millisecond

	// Layout Offsets and Padding
	HeaderWidthOffset      = 2
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0

	// History sizes
	MaxLogLines      = 200
	MaxGraphHistory  = 120
	MinProgressWidth = 20
)
