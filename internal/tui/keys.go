package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap holds the bindings of the progress dashboard.
type DashboardKeyMap struct {
	Settings key.Binding
	Quit     key.Binding
}

// SettingsKeyMap holds the bindings of the read-only settings page.
type SettingsKeyMap struct {
	Tab  key.Binding
	Up   key.Binding
	Down key.Binding
	Back key.Binding
	Quit key.Binding
}

var DashboardKeys = DashboardKeyMap{
	Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var SettingsKeys = SettingsKeyMap{
	Tab:  key.NewBinding(key.WithKeys("1", "2", "3", "4", "tab"), key.WithHelp("1-4", "category")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Back: key.NewBinding(key.WithKeys("esc", "s"), key.WithHelp("esc", "back")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Settings, k.Quit}
}

func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func (k SettingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Up, k.Down, k.Back}
}

func (k SettingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Quit}}
}
