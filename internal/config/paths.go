package config

import (
	"os"
	"path/filepath"
)

const settingsName = "settings"

// configDir is used when CNCHI_CONFIG_DIR is unset.
var configDir = "/etc/cnchi"

// GetConfigDir returns the directory holding settings.yaml.
func GetConfigDir() string {
	if dir := os.Getenv("CNCHI_CONFIG_DIR"); dir != "" {
		return dir
	}
	return configDir
}

// GetSettingsPath returns the path to the settings YAML file.
func GetSettingsPath() string {
	return filepath.Join(GetConfigDir(), settingsName+".yaml")
}

// GetHistoryPath returns the download history database path.
func (s *Settings) GetHistoryPath() string {
	return filepath.Join(s.Paths.StateDir, "history.db")
}

// GetLogPath returns the installer log file path.
func (s *Settings) GetLogPath() string {
	return filepath.Join(s.Paths.LogDir, "cnchi.log")
}

// EnsureDirs creates the state and log directories.
func (s *Settings) EnsureDirs() error {
	for _, dir := range []string{s.Paths.StateDir, s.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
