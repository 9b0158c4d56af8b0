package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cnchi/installer/internal/config"
	"github.com/cnchi/installer/internal/events"
)

func newTestModel() RootModel {
	return NewModel(make(chan events.Event), config.DefaultSettings(), nil)
}

func send(m RootModel, kind events.Kind, value any) RootModel {
	next, _ := m.Update(eventMsg{event: events.Event{Kind: kind, Value: value}})
	return next.(RootModel)
}

func TestUpdate_InfoAppendsLog(t *testing.T) {
	m := newTestModel()
	m = send(m, events.Info, "Create mount points ...")
	m = send(m, events.Info, "Downloading linux 6.1-1 (1/3)...")

	if m.info != "Downloading linux 6.1-1 (1/3)..." {
		t.Errorf("info = %q", m.info)
	}
	if len(m.log) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(m.log))
	}
	if m.log[0].Text != "Create mount points ..." {
		t.Errorf("first log line = %q", m.log[0].Text)
	}
}

func TestUpdate_LogIsBounded(t *testing.T) {
	m := newTestModel()
	for i := 0; i < MaxLogLines+25; i++ {
		m = send(m, events.Info, strings.Repeat("x", i%7+1))
	}
	if len(m.log) != MaxLogLines {
		t.Errorf("log length = %d, want %d", len(m.log), MaxLogLines)
	}
}

func TestUpdate_ProgressValues(t *testing.T) {
	m := newTestModel()
	m = send(m, events.ProgressBar, "show")
	m = send(m, events.DownloadsProgressBar, "show")
	m = send(m, events.Percent, 0.42)
	m = send(m, events.DownloadsPercent, 0.33)

	if !m.showItemBar || !m.showTotalBar {
		t.Error("both bars should be visible")
	}
	if m.itemPct != 0.42 {
		t.Errorf("itemPct = %v", m.itemPct)
	}
	if m.totalPct != 0.33 {
		t.Errorf("totalPct = %v", m.totalPct)
	}

	m = send(m, events.DownloadsProgressBar, "hide")
	if m.showTotalBar {
		t.Error("downloads bar should be hidden")
	}
}

func TestUpdate_SyntheticProgressIsClamped(t *testing.T) {
	m := newTestModel()
	m = send(m, events.Percent, 1.7)
	if m.itemPct != 1.0 {
		t.Errorf("itemPct = %v, want 1.0", m.itemPct)
	}
}

func TestUpdate_IgnoresMalformedValues(t *testing.T) {
	m := newTestModel()
	m = send(m, events.Percent, "half")
	m = send(m, events.Info, 42)
	m = send(m, events.Finished, "0")

	if m.itemPct != 0 || m.info != "" || m.finished {
		t.Error("malformed values should be ignored")
	}
}

func TestUpdate_Finished(t *testing.T) {
	tests := []struct {
		name string
		code int
		want string
	}{
		{"success", 0, "Installed"},
		{"failure", 1, "Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := send(newTestModel(), events.Finished, tt.code)
			if !m.Finished() {
				t.Fatal("model should be finished")
			}
			if m.ExitCode() != tt.code {
				t.Errorf("ExitCode() = %d, want %d", m.ExitCode(), tt.code)
			}
			if !strings.Contains(getRunStatus(m), tt.want) {
				t.Errorf("status %q should contain %q", getRunStatus(m), tt.want)
			}
		})
	}
}

func TestUpdate_RunningExitCode(t *testing.T) {
	if got := newTestModel().ExitCode(); got != -1 {
		t.Errorf("ExitCode() while running = %d, want -1", got)
	}
}

func TestUpdate_ChannelClosed(t *testing.T) {
	next, cmd := newTestModel().Update(channelClosedMsg{})
	m := next.(RootModel)
	if !m.closed {
		t.Error("model should record the closed channel")
	}
	if cmd != nil {
		t.Error("no further listening after close")
	}
}

func TestListenForActivity(t *testing.T) {
	ch := make(chan events.Event, 1)
	ch <- events.Event{Kind: events.Info, Value: "hello"}

	msg := listenForActivity(ch)()
	ev, ok := msg.(eventMsg)
	if !ok {
		t.Fatalf("expected eventMsg, got %T", msg)
	}
	if ev.event.Value != "hello" {
		t.Errorf("value = %v", ev.event.Value)
	}

	close(ch)
	if _, ok := listenForActivity(ch)().(channelClosedMsg); !ok {
		t.Error("closed channel should yield channelClosedMsg")
	}
}

func TestQuitCancelsRunningInstall(t *testing.T) {
	cancelled := false
	m := NewModel(make(chan events.Event), nil, func() { cancelled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("quitting mid-install should cancel")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestQuitAfterFinishDoesNotCancel(t *testing.T) {
	cancelled := false
	m := NewModel(make(chan events.Event), nil, func() { cancelled = true })
	m = send(m, events.Finished, 0)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cancelled {
		t.Error("finished run should not be cancelled")
	}
}

func TestSettingsNavigation(t *testing.T) {
	m := newTestModel()
	key := func(m RootModel, s string) RootModel {
		var msg tea.KeyMsg
		switch s {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		next, _ := m.Update(msg)
		return next.(RootModel)
	}

	m = key(m, "s")
	if m.state != SettingsState {
		t.Fatal("s should open settings")
	}

	m = key(m, "3")
	if m.SettingsActiveTab != 2 {
		t.Errorf("active tab = %d, want 2", m.SettingsActiveTab)
	}

	for i := 0; i < 20; i++ {
		m = key(m, "down")
	}
	if want := m.getSettingsCount() - 1; m.SettingsSelectedRow != want {
		t.Errorf("selected row = %d, want clamped %d", m.SettingsSelectedRow, want)
	}

	m = key(m, "up")
	if m.SettingsSelectedRow != m.getSettingsCount()-2 {
		t.Errorf("up should move one row, got %d", m.SettingsSelectedRow)
	}

	m = key(m, "esc")
	if m.state != DashboardState {
		t.Error("esc should return to the dashboard")
	}
}

func TestGetSettingsValuesCoverMetadata(t *testing.T) {
	m := newTestModel()
	metadata := config.GetSettingsMetadata()
	for _, category := range config.CategoryOrder() {
		values := m.getSettingsValues(category)
		for _, meta := range metadata[category] {
			if _, ok := values[meta.Key]; !ok {
				t.Errorf("%s.%s has no value", category, meta.Key)
			}
		}
	}
}

func TestTickRecordsHistoryOnlyWhileDownloading(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(tickMsg{})
	m = next.(RootModel)
	if len(m.ProgressHistory) != 0 {
		t.Error("no samples while the downloads bar is hidden")
	}

	m = send(m, events.DownloadsProgressBar, "show")
	m = send(m, events.DownloadsPercent, 0.5)
	next, _ = m.Update(tickMsg{})
	m = next.(RootModel)
	if len(m.ProgressHistory) != 1 || m.ProgressHistory[0] != 0.5 {
		t.Errorf("history = %v", m.ProgressHistory)
	}
}
