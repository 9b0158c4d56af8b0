package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cnchi/installer/internal/config"
)

// viewSettings renders the settings the current run was started with.
// Values are read-only: the installation is already configured.
func (m RootModel) viewSettings() string {
	width := min(76, m.width-4)
	height := min(20, m.height-4)

	categories := config.CategoryOrder()
	category := categories[m.SettingsActiveTab]
	entries := config.GetSettingsMetadata()[category]
	values := m.getSettingsValues(category)

	tabs := make([]string, len(categories))
	for i, cat := range categories {
		style := TabStyle
		if i == m.SettingsActiveTab {
			style = ActiveTabStyle
		}
		tabs[i] = style.Render(fmt.Sprintf("[%d] %s", i+1, cat))
	}

	labelWidth := 0
	for _, e := range entries {
		labelWidth = max(labelWidth, lipgloss.Width(e.Label))
	}
	label := lipgloss.NewStyle().Width(labelWidth + 2)
	valueWidth := max(width-labelWidth-10, 8)

	rows := make([]string, len(entries))
	for i, e := range entries {
		marker, style := "  ", lipgloss.NewStyle().Foreground(ColorLightGray)
		if i == m.SettingsSelectedRow {
			marker, style = "> ", lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true)
		}
		value := truncateString(formatSettingValue(values[e.Key], e.Type), valueWidth)
		rows[i] = style.Render(marker+label.Render(e.Label)) + StatsValueStyle.Render(value)
	}

	var desc string
	if m.SettingsSelectedRow < len(entries) {
		desc = lipgloss.NewStyle().Foreground(ColorNeonCyan).Width(width - 6).
			Render(entries[m.SettingsSelectedRow].Description)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, tabs...),
		"",
		strings.Join(rows, "\n"),
		"",
		desc,
		"",
		m.help.View(SettingsKeys),
	)
	panel := renderPanel("Settings", lipgloss.NewStyle().Padding(0, 1).Render(body), width, height, ColorNeonPink, false)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// getSettingsValues maps the keys of one category to the loaded values.
func (m RootModel) getSettingsValues(category string) map[string]any {
	s := m.Settings
	values := make(map[string]any)

	switch category {
	case "General":
		values["language_code"] = s.General.LanguageCode
		values["use_ntp"] = s.General.UseNTP
		values["verbose"] = s.General.Verbose
		values["theme"] = themeName(s.General.Theme)
	case "Install":
		values["partition_mode"] = s.Install.PartitionMode
		values["root_device"] = s.Install.RootDevice
		values["auto_partition_script"] = s.Install.AutoPartitionScript
		values["dest_dir"] = s.Install.DestDir
		values["mount_plan_file"] = s.Install.MountPlanFile
		values["arch"] = s.Install.Arch
	case "Network":
		values["catalog_url"] = s.Network.CatalogURL
		values["user_agent"] = s.Network.UserAgent
		values["proxy_url"] = s.Network.ProxyURL
		values["skip_tls_verification"] = s.Network.SkipTLSVerification
		values["skip_archive_check"] = s.Network.SkipArchiveCheck
		values["chunk_size"] = s.Network.ChunkSize
		values["dial_timeout"] = s.Network.DialTimeout
		values["response_header_timeout"] = s.Network.ResponseHeaderTimeout
	case "Paths":
		values["pacman_conf"] = s.Paths.PacmanConf
		values["cache_dir"] = s.Paths.CacheDir
		values["state_dir"] = s.Paths.StateDir
		values["log_dir"] = s.Paths.LogDir
		values["resolv_conf"] = s.Paths.ResolvConf
		values["pacman_dir"] = s.Paths.PacmanDir
		values["keyring_dir"] = s.Paths.KeyringDir
	}

	return values
}

func (m RootModel) getSettingsCount() int {
	categories := config.CategoryOrder()
	metadata := config.GetSettingsMetadata()
	return len(metadata[categories[m.SettingsActiveTab]])
}

func themeName(theme int) string {
	switch theme {
	case config.ThemeLight:
		return "Light"
	case config.ThemeDark:
		return "Dark"
	default:
		return "System"
	}
}

func formatSettingValue(value any, typ string) string {
	if value == nil {
		return "-"
	}

	switch typ {
	case "bool":
		if b, ok := value.(bool); ok {
			if b {
				return "True"
			}
			return "False"
		}
	case "duration":
		if d, ok := value.(time.Duration); ok {
			return d.String()
		}
	case "string":
		if s, ok := value.(string); ok {
			if s == "" {
				return "(default)"
			}
			return s
		}
	}

	return fmt.Sprintf("%v", value)
}
