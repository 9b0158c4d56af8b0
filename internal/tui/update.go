package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cnchi/installer/internal/config"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg:
		cmds = append(cmds, m.apply(msg.event))
		cmds = append(cmds, listenForActivity(m.events))

	case channelClosedMsg:
		m.closed = true
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.elapsed = time.Since(m.startTime)
		if m.showTotalBar {
			m.ProgressHistory = append(m.ProgressHistory, m.totalPct)
			if len(m.ProgressHistory) > MaxGraphHistory {
				m.ProgressHistory = m.ProgressHistory[len(m.ProgressHistory)-MaxGraphHistory:]
			}
		}
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case DashboardState:
			if key.Matches(msg, DashboardKeys.Quit) {
				if !m.finished && m.cancel != nil {
					utils.Debug("Quit requested while installing, cancelling")
					m.cancel()
				}
				return m, tea.Quit
			}
			if key.Matches(msg, DashboardKeys.Settings) {
				m.state = SettingsState
				return m, nil
			}

		case SettingsState:
			return m.updateSettings(msg)
		}

	case progress.FrameMsg:
		var cmd tea.Cmd
		var newModel tea.Model
		newModel, cmd = m.itemProgress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.itemProgress = p
		}
		cmds = append(cmds, cmd)

		newModel, cmd = m.totalProgress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.totalProgress = p
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// apply folds one installer event into the model.
func (m *RootModel) apply(ev events.Event) tea.Cmd {
	switch ev.Kind {
	case events.Info:
		text, ok := ev.Value.(string)
		if !ok {
			return nil
		}
		m.info = text
		m.log = append(m.log, logLine{At: time.Now(), Text: text})
		if len(m.log) > MaxLogLines {
			m.log = m.log[len(m.log)-MaxLogLines:]
		}

	case events.Percent:
		pct, ok := toFraction(ev.Value)
		if !ok {
			return nil
		}
		m.itemPct = pct
		return m.itemProgress.SetPercent(pct)

	case events.DownloadsPercent:
		pct, ok := toFraction(ev.Value)
		if !ok {
			return nil
		}
		m.totalPct = pct
		return m.totalProgress.SetPercent(pct)

	case events.ProgressBar:
		m.showItemBar = ev.Value == "show"

	case events.DownloadsProgressBar:
		m.showTotalBar = ev.Value == "show"

	case events.Finished:
		code, ok := ev.Value.(int)
		if !ok {
			return nil
		}
		m.finished = true
		m.exitCode = code
		m.elapsed = time.Since(m.startTime)
	}
	return nil
}

// toFraction accepts the numeric forms a producer may send. Values past
// 1.0 (unknown-size downloads) are clamped for display.
func toFraction(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	default:
		return 0, false
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f, true
}

func (m RootModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	categories := config.CategoryOrder()

	switch {
	case key.Matches(msg, SettingsKeys.Quit):
		if !m.finished && m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, SettingsKeys.Back):
		m.state = DashboardState

	case key.Matches(msg, SettingsKeys.Tab):
		if msg.String() == "tab" {
			m.SettingsActiveTab = (m.SettingsActiveTab + 1) % len(categories)
		} else {
			m.SettingsActiveTab = int(msg.String()[0]-'1') % len(categories)
		}
		m.SettingsSelectedRow = 0

	case key.Matches(msg, SettingsKeys.Up):
		if m.SettingsSelectedRow > 0 {
			m.SettingsSelectedRow--
		}

	case key.Matches(msg, SettingsKeys.Down):
		if m.SettingsSelectedRow < m.getSettingsCount()-1 {
			m.SettingsSelectedRow++
		}
	}

	return m, nil
}
