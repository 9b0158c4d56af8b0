package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/cnchi/installer/internal/events"
)

// StartHeadlessConsumer prints installer events to w until evs is closed.
// The returned channel yields the exit code from the "finished" event, or
// -1 if none arrived, and is then closed.
func StartHeadlessConsumer(evs <-chan events.Event, w io.Writer) <-chan int {
	done := make(chan int, 1)
	go func() {
		defer close(done)
		code := -1
		lastDecile := -1
		for ev := range evs {
			switch ev.Kind {
			case events.Info:
				fmt.Fprintf(w, "%v\n", ev.Value)
			case events.DownloadsPercent:
				pct, ok := ev.Value.(float64)
				if !ok {
					continue
				}
				// One line per 10% step
				decile := int(math.Floor(pct * 10))
				if decile != lastDecile {
					lastDecile = decile
					fmt.Fprintf(w, "Downloads: %3.0f%%\n", pct*100)
				}
			case events.DownloadsProgressBar:
				if ev.Value == "show" {
					lastDecile = -1
				}
			case events.Finished:
				if c, ok := ev.Value.(int); ok {
					code = c
					if c == 0 {
						fmt.Fprintln(w, "Installation finished")
					} else {
						fmt.Fprintf(w, "Installation failed (exit code %d)\n", c)
					}
				}
			}
		}
		done <- code
	}()
	return done
}
