package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var eighths = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderProgressGraph draws progress fractions as columns of block glyphs,
// newest sample on the right. Empty cells show a dashed rule on alternate rows.
func renderProgressGraph(samples []float64, width, height int, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	rule := lipgloss.NewStyle().Foreground(ColorGray).Render("╌")
	bar := lipgloss.NewStyle().Foreground(color)

	// levels[x] is the column height in eighths of a row.
	levels := make([]int, width)
	offset := width - len(samples)
	for i, v := range samples {
		levels[offset+i] = int(min(max(v, 0), 1) * float64(height*8))
	}

	var b strings.Builder
	for row := 0; row < height; row++ {
		floor := (height - 1 - row) * 8
		for _, level := range levels {
			switch fill := level - floor; {
			case fill <= 0 && row%2 == 0:
				b.WriteString(rule)
			case fill <= 0:
				b.WriteByte(' ')
			default:
				b.WriteString(bar.Render(eighths[min(fill, 8)]))
			}
		}
		if row < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
