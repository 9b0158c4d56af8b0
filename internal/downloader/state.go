package downloader

import (
	"math"

	"github.com/cnchi/installer/internal/events"
)

// round2 rounds to two decimals, the resolution of every fraction we emit.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// progressState tracks the per-item fraction for a single mirror attempt and
// only emits when the value changes.
type progressState struct {
	total   int64
	percent float64
	events  *events.Channel
}

func newProgressState(total int64, ev *events.Channel) *progressState {
	return &progressState{total: total, events: ev}
}

// advance records that received bytes have arrived after one more chunk.
func (p *progressState) advance(received int64) {
	old := p.percent
	if p.total > 0 {
		p.percent = round2(float64(received) / float64(p.total))
	} else {
		p.percent += SyntheticStep
	}
	if old != p.percent {
		p.events.Send(events.Percent, p.percent)
	}
}
