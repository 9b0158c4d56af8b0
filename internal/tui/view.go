package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// leftColumnRatio is the share of the width given to status and log.
const leftColumnRatio = 0.55

const logoText = `
 ██████ ███    ██  ██████ ██   ██ ██
██      ████   ██ ██      ██   ██ ██
██      ██ ██  ██ ██      ███████ ██
██      ██  ██ ██ ██      ██   ██ ██
 ██████ ██   ████  ██████ ██   ██ ██`

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.state == SettingsState {
		return m.viewSettings()
	}

	usableHeight := m.height - 2
	usableWidth := m.width - 4

	leftWidth := int(float64(usableWidth) * leftColumnRatio)
	rightWidth := usableWidth - leftWidth - 2

	const headerHeight, statusHeight, progressHeight = 8, 8, 10
	logHeight := max(usableHeight-headerHeight-statusHeight, 6)
	graphHeight := max(usableHeight-progressHeight, 8)

	logo := lipgloss.NewStyle().Width(leftWidth).Height(headerHeight).Padding(0, 2).Render(LogoStyle.Render(logoText))
	statusBox := renderPanel("Status", renderStatus(m, leftWidth-4), leftWidth, statusHeight, ColorNeonPink, false)
	logBox := renderPanel("Log", renderLog(m.log, leftWidth-6, logHeight-2), leftWidth, logHeight, ColorGray, true)

	plotWidth := max(rightWidth-4, 10)
	plotHeight := max(graphHeight-4, 1)
	pctLine := lipgloss.NewStyle().Width(rightWidth - 4).Align(lipgloss.Right).Foreground(ColorNeonPink).Bold(true).
		Render(fmt.Sprintf("Packages: %.0f%%", m.totalPct*100))
	plot := lipgloss.NewStyle().MarginLeft(1).
		Render(renderProgressGraph(m.ProgressHistory, plotWidth-1, plotHeight, ColorNeonPink))
	graphBox := renderPanel("Downloads", pctLine+"\n\n"+plot, rightWidth, graphHeight, ColorNeonCyan, false)

	progressBox := renderPanel("Progress", renderProgress(m, rightWidth-4), rightWidth, progressHeight, ColorGray, true)

	leftColumn := lipgloss.JoinVertical(lipgloss.Left, logo, statusBox, logBox)
	rightColumn := lipgloss.JoinVertical(lipgloss.Left, graphBox, progressBox)
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftColumn, rightColumn)

	return lipgloss.JoinVertical(lipgloss.Left, body, FooterStyle.Render(m.help.View(DashboardKeys)))
}

// renderStatus shows the overall state of the run
func renderStatus(m RootModel, w int) string {
	contentWidth := w - 4

	return lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("State:"), getRunStatus(m)),
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Current:"), StatsValueStyle.Render(truncateString(m.info, contentWidth-15))),
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Elapsed:"), StatsValueStyle.Render(m.elapsed.Round(time.Second).String())),
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Target:"), StatsValueStyle.Render(truncateString(m.Settings.Install.DestDir, contentWidth-15))),
	))
}

// renderLog shows the newest status lines, latest highlighted
func renderLog(lines []logLine, w, h int) string {
	if h < 1 {
		return ""
	}
	if len(lines) == 0 {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("Waiting for installer"))
	}

	visible := lines
	if len(visible) > h {
		visible = visible[len(visible)-h:]
	}

	rendered := make([]string, 0, len(visible))
	for i, l := range visible {
		text := fmt.Sprintf("%s %s", l.At.Format("15:04:05"), truncateString(l.Text, w-12))
		if i == len(visible)-1 {
			rendered = append(rendered, LogLatestStyle.Render(text))
		} else {
			rendered = append(rendered, LogLineStyle.Render(text))
		}
	}
	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(rendered, "\n"))
}

// renderProgress draws the per-item and aggregate bars that are shown
func renderProgress(m RootModel, w int) string {
	progressWidth := w - 12
	if progressWidth < MinProgressWidth {
		progressWidth = MinProgressWidth
	}

	label := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)
	var sections []string

	if m.showItemBar {
		m.itemProgress.Width = progressWidth
		sections = append(sections, "",
			label.Render("Current package"),
			lipgloss.NewStyle().MarginLeft(1).Render(m.itemProgress.ViewAs(m.itemPct)))
	}
	if m.showTotalBar {
		m.totalProgress.Width = progressWidth
		sections = append(sections, "",
			label.Render("All packages"),
			lipgloss.NewStyle().MarginLeft(1).Render(m.totalProgress.ViewAs(m.totalPct)))
	}
	if len(sections) == 0 {
		return lipgloss.Place(w, 4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorLightGray).Render("No download in progress"))
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func getRunStatus(m RootModel) string {
	style := lipgloss.NewStyle()
	switch {
	case m.finished && m.exitCode == 0:
		return style.Foreground(ColorStateDone).Render("✔ Installed")
	case m.finished:
		return style.Foreground(ColorStateError).Render("✖ Failed")
	case m.closed:
		return style.Foreground(ColorStateWarning).Render("⚠ Stopped")
	default:
		return style.Foreground(ColorStateRunning).Render("⬇ Installing")
	}
}

func truncateString(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:max(n, 0)]) + "..."
	}
	return s
}

// renderPanel frames content in a rounded border of the given size with the
// title set into the top edge, left or right aligned.
func renderPanel(title, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	border := lipgloss.RoundedBorder()
	edge := lipgloss.NewStyle().Foreground(borderColor)

	inner := max(width-2, 1)
	label := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true).Render(" " + title + " ")
	fill := max(inner-lipgloss.Width(label)-1, 0)

	var top string
	if titleRight {
		top = edge.Render(border.TopLeft+strings.Repeat(border.Top, fill)) + label + edge.Render(border.Top+border.TopRight)
	} else {
		top = edge.Render(border.TopLeft+border.Top) + label + edge.Render(strings.Repeat(border.Top, fill)+border.TopRight)
	}

	clip := lipgloss.NewStyle().MaxWidth(inner)
	pad := lipgloss.NewStyle().Width(inner)
	lines := strings.Split(content, "\n")
	rows := make([]string, 0, height)
	rows = append(rows, top)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		rows = append(rows, edge.Render(border.Left)+pad.Render(clip.Render(line))+edge.Render(border.Right))
	}
	rows = append(rows, edge.Render(border.BottomLeft+strings.Repeat(border.Bottom, inner)+border.BottomRight))
	return strings.Join(rows, "\n")
}
