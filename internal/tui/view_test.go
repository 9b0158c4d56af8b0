package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cnchi/installer/internal/events"
)

func sized(m RootModel) RootModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	return next.(RootModel)
}

func TestView_Loading(t *testing.T) {
	if got := newTestModel().View(); got != "Loading..." {
		t.Errorf("View() before size = %q", got)
	}
}

func TestView_Dashboard(t *testing.T) {
	m := sized(newTestModel())
	m = send(m, events.Info, "Installing packages...")
	m = send(m, events.DownloadsProgressBar, "show")

	out := m.View()
	for _, want := range []string{"Status", "Log", "Downloads", "Progress", "Installing packages...", "All packages"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestView_SettingsPage(t *testing.T) {
	m := sized(newTestModel())
	m.state = SettingsState
	out := m.View()
	for _, want := range []string{"Settings", "[1] General", "[4] Paths", "Language"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings page should contain %q", want)
		}
	}
}

func TestRenderLog_ShowsNewest(t *testing.T) {
	var lines []logLine
	for _, s := range []string{"one", "two", "three"} {
		lines = append(lines, logLine{At: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Text: s})
	}
	out := renderLog(lines, 60, 2)
	if strings.Contains(out, "one") {
		t.Error("oldest line should be cut")
	}
	if !strings.Contains(out, "three") || !strings.Contains(out, "10:00:00") {
		t.Errorf("unexpected log render: %q", out)
	}
}

func TestRenderPanel_Geometry(t *testing.T) {
	out := renderPanel("Log", "short\n"+strings.Repeat("x", 80), 20, 5, ColorGray, true)
	rows := strings.Split(out, "\n")
	if len(rows) != 5 {
		t.Fatalf("panel rows = %d, want 5", len(rows))
	}
	for i, row := range rows {
		if w := lipgloss.Width(row); w != 20 {
			t.Errorf("row %d width = %d, want 20", i, w)
		}
	}
	if !strings.Contains(rows[0], "Log") {
		t.Errorf("title missing from top edge: %q", rows[0])
	}
}

func TestRenderProgressGraph(t *testing.T) {
	out := renderProgressGraph([]float64{0, 0.5, 1.0}, 10, 4, ColorNeonPink)
	if rows := strings.Count(out, "\n") + 1; rows != 4 {
		t.Errorf("graph rows = %d, want 4", rows)
	}
	if !strings.Contains(out, "█") {
		t.Error("full sample should draw a full block")
	}
	if renderProgressGraph(nil, 0, 4, ColorNeonPink) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		value any
		typ   string
		want  string
	}{
		{true, "bool", "True"},
		{false, "bool", "False"},
		{15 * time.Second, "duration", "15s"},
		{"", "string", "(default)"},
		{"/install", "string", "/install"},
		{8192, "int", "8192"},
		{nil, "string", "-"},
	}
	for _, tt := range tests {
		if got := formatSettingValue(tt.value, tt.typ); got != tt.want {
			t.Errorf("formatSettingValue(%v, %s) = %q, want %q", tt.value, tt.typ, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdef", 3); got != "abc..." {
		t.Errorf("truncateString = %q", got)
	}
	if got := truncateString("abc", 3); got != "abc" {
		t.Errorf("truncateString = %q", got)
	}
}
