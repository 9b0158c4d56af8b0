// Package tui renders installer progress in the terminal.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cnchi/installer/internal/config"
	"github.com/cnchi/installer/internal/events"
)

type UIState int //Defines UIState as int to be used in rootModel

const (
	DashboardState UIState = iota //DashboardState is 0 increments after each line
	SettingsState                 //SettingsState is 1
)

// eventMsg wraps one event read from the installer.
type eventMsg struct {
	event events.Event
}

// channelClosedMsg signals that the installer closed its event channel.
type channelClosedMsg struct{}

type tickMsg time.Time

// logLine is one status line with the time it arrived.
type logLine struct {
	At   time.Time
	Text string
}

type RootModel struct {
	width  int
	height int
	state  UIState

	events <-chan events.Event
	cancel func()

	Settings *config.Settings

	// Current status
	info      string
	log       []logLine
	startTime time.Time
	elapsed   time.Duration

	// Bars
	itemProgress  progress.Model
	totalProgress progress.Model
	itemPct       float64
	totalPct      float64
	showItemBar   bool
	showTotalBar  bool

	// Aggregate download fraction sampled on every tick
	ProgressHistory []float64

	finished bool
	exitCode int
	closed   bool

	// Settings page
	SettingsActiveTab   int
	SettingsSelectedRow int

	help help.Model
}

// NewModel builds the dashboard for an installer emitting on evs. cancel,
// when set, is called if the user quits before the run finished.
func NewModel(evs <-chan events.Event, settings *config.Settings, cancel func()) RootModel {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return RootModel{
		state:         DashboardState,
		events:        evs,
		cancel:        cancel,
		Settings:      settings,
		startTime:     time.Now(),
		itemProgress:  progress.New(progress.WithDefaultGradient()),
		totalProgress: progress.New(progress.WithGradient(string(ColorNeonPurple), string(ColorNeonPink))),
		help:          help.New(),
		exitCode:      -1,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(listenForActivity(m.events), tickCmd())
}

// Finished reports whether the installer sent its exit code.
func (m RootModel) Finished() bool {
	return m.finished
}

// ExitCode returns the installer exit code, or -1 while it is still running.
func (m RootModel) ExitCode() int {
	return m.exitCode
}

func listenForActivity(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
