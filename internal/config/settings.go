package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/fstab"
	"github.com/cnchi/installer/internal/install"
	"github.com/cnchi/installer/internal/pacman"
)

// EnvPrefix prefixes environment overrides, e.g. CNCHI_NETWORK_PROXY_URL.
const EnvPrefix = "CNCHI"

// Settings holds all installer settings organized by category.
type Settings struct {
	General GeneralSettings `mapstructure:"general" yaml:"general"`
	Install InstallSettings `mapstructure:"install" yaml:"install"`
	Network NetworkSettings `mapstructure:"network" yaml:"network"`
	Paths   PathSettings    `mapstructure:"paths" yaml:"paths"`
}

// GeneralSettings contains user choices and front-end behavior.
type GeneralSettings struct {
	LanguageCode string `mapstructure:"language_code" yaml:"language_code"`
	UseNTP       bool   `mapstructure:"use_ntp" yaml:"use_ntp"`
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	Theme        int    `mapstructure:"theme" yaml:"theme"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// InstallSettings describes the target system.
type InstallSettings struct {
	PartitionMode       string `mapstructure:"partition_mode" yaml:"partition_mode"`
	RootDevice          string `mapstructure:"root_device" yaml:"root_device"`
	AutoPartitionScript string `mapstructure:"auto_partition_script" yaml:"auto_partition_script"`
	DestDir             string `mapstructure:"dest_dir" yaml:"dest_dir"`
	MountPlanFile       string `mapstructure:"mount_plan_file" yaml:"mount_plan_file"`
	Arch                string `mapstructure:"arch" yaml:"arch"`
}

// NetworkSettings contains catalog and mirror download parameters.
type NetworkSettings struct {
	CatalogURL            string        `mapstructure:"catalog_url" yaml:"catalog_url"`
	UserAgent             string        `mapstructure:"user_agent" yaml:"user_agent"`
	ProxyURL              string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	SkipTLSVerification   bool          `mapstructure:"skip_tls_verification" yaml:"skip_tls_verification"`
	SkipArchiveCheck      bool          `mapstructure:"skip_archive_check" yaml:"skip_archive_check"`
	ChunkSize             int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout" yaml:"response_header_timeout"`
}

// PathSettings locates host files and installer state.
type PathSettings struct {
	PacmanConf string `mapstructure:"pacman_conf" yaml:"pacman_conf"`
	CacheDir   string `mapstructure:"cache_dir" yaml:"cache_dir"`
	StateDir   string `mapstructure:"state_dir" yaml:"state_dir"`
	LogDir     string `mapstructure:"log_dir" yaml:"log_dir"`
	ResolvConf string `mapstructure:"resolv_conf" yaml:"resolv_conf"`
	PacmanDir  string `mapstructure:"pacman_dir" yaml:"pacman_dir"`
	KeyringDir string `mapstructure:"keyring_dir" yaml:"keyring_dir"`
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // YAML key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "language_code", Label: "Language", Description: "Locale code of the installed system (e.g. en_US, zh_CN).", Type: "string"},
			{Key: "use_ntp", Label: "Use NTP", Description: "Install and enable network time synchronization.", Type: "bool"},
			{Key: "verbose", Label: "Verbose Log", Description: "Write debug entries to the installer log.", Type: "bool"},
			{Key: "theme", Label: "Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
		},
		"Install": {
			{Key: "partition_mode", Label: "Partition Mode", Description: "automatic, advanced or easy. Only automatic and advanced touch the disks.", Type: "string"},
			{Key: "root_device", Label: "Root Device", Description: "Disk handed to the auto partition script.", Type: "string"},
			{Key: "auto_partition_script", Label: "Partition Script", Description: "Script run in automatic mode.", Type: "string"},
			{Key: "dest_dir", Label: "Target Root", Description: "Where the target root filesystem is mounted.", Type: "string"},
			{Key: "mount_plan_file", Label: "Mount Plan", Description: "YAML file mapping mount points to devices.", Type: "string"},
			{Key: "arch", Label: "Architecture", Description: "Target architecture. Leave empty to detect.", Type: "string"},
		},
		"Network": {
			{Key: "catalog_url", Label: "Catalog URL", Description: "Location of the package catalog.", Type: "string"},
			{Key: "user_agent", Label: "User Agent", Description: "Custom User-Agent for mirror requests. Leave empty for default.", Type: "string"},
			{Key: "proxy_url", Label: "Proxy URL", Description: "HTTP or SOCKS5 proxy URL. Leave empty to use the environment.", Type: "string"},
			{Key: "skip_tls_verification", Label: "Skip TLS Verify", Description: "Accept any certificate from mirrors.", Type: "bool"},
			{Key: "skip_archive_check", Label: "Skip Archive Check", Description: "Accept downloaded packages without checking their format.", Type: "bool"},
			{Key: "chunk_size", Label: "Chunk Size", Description: "Bytes read from a mirror per iteration.", Type: "int"},
			{Key: "dial_timeout", Label: "Dial Timeout", Description: "Time allowed to connect to a mirror (e.g., 15s).", Type: "duration"},
			{Key: "response_header_timeout", Label: "Header Timeout", Description: "Time allowed for a mirror to answer (e.g., 30s).", Type: "duration"},
		},
		"Paths": {
			{Key: "pacman_conf", Label: "pacman.conf", Description: "Where the installation pacman.conf is written.", Type: "string"},
			{Key: "cache_dir", Label: "Package Cache", Description: "Extra directory checked for packages before downloading.", Type: "string"},
			{Key: "state_dir", Label: "State Dir", Description: "Directory of the download history database.", Type: "string"},
			{Key: "log_dir", Label: "Log Dir", Description: "Directory of the installer log.", Type: "string"},
			{Key: "resolv_conf", Label: "resolv.conf", Description: "Host resolver configuration copied into the target.", Type: "string"},
			{Key: "pacman_dir", Label: "pacman.d", Description: "Host pacman.d whose files are copied into the target.", Type: "string"},
			{Key: "keyring_dir", Label: "Keyring", Description: "Host pacman keyring copied into the target.", Type: "string"},
		},
	}
}

// CategoryOrder returns the order of categories for UI tabs.
func CategoryOrder() []string {
	return []string{"General", "Install", "Network", "Paths"}
}

// DefaultSettings returns a new Settings instance with the live medium defaults.
func DefaultSettings() *Settings {
	installCfg := install.DefaultConfig()

	return &Settings{
		General: GeneralSettings{
			LanguageCode: "en_US",
			UseNTP:       true,
			Theme:        ThemeAdaptive,
		},
		Install: InstallSettings{
			PartitionMode:       installCfg.PartitionMode,
			AutoPartitionScript: installCfg.AutoPartitionScript,
			DestDir:             installCfg.DestDir,
		},
		Network: NetworkSettings{
			CatalogURL:            catalog.DefaultURL,
			UserAgent:             "", // Empty means use default UA
			ChunkSize:             downloader.ChunkSize,
			DialTimeout:           downloader.DialTimeout,
			ResponseHeaderTimeout: downloader.DefaultResponseHeaderTimeout,
		},
		Paths: PathSettings{
			PacmanConf: pacman.DefaultConfPath,
			StateDir:   "/var/lib/cnchi",
			LogDir:     "/var/log/cnchi",
			ResolvConf: installCfg.HostResolvConf,
			PacmanDir:  installCfg.HostPacmanDir,
			KeyringDir: installCfg.HostKeyringDir,
		},
	}
}

// Validate rejects settings the installer cannot run with.
func (s *Settings) Validate() error {
	switch s.Install.PartitionMode {
	case install.ModeAutomatic, install.ModeAdvanced, install.ModeEasy:
	default:
		return fmt.Errorf("unknown partition mode %q", s.Install.PartitionMode)
	}
	if s.Install.DestDir == "" || !filepath.IsAbs(s.Install.DestDir) {
		return fmt.Errorf("target root must be an absolute path, got %q", s.Install.DestDir)
	}
	if s.Network.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", s.Network.ChunkSize)
	}
	return nil
}

// LoadSettings reads settings from path (or the default location when path
// is empty). A missing file yields defaults; environment variables prefixed
// with CNCHI_ override both.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(settingsName)
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := registerDefaults(v, settings); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// registerDefaults makes every setting known to viper so environment
// overrides apply even when the file does not mention the key.
func registerDefaults(v *viper.Viper, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	var tree map[string]map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for category, values := range tree {
		for key, value := range values {
			v.SetDefault(category+"."+key, value)
		}
	}
	return nil
}

// SaveSettings writes settings as YAML to path (or the default location)
// atomically.
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		path = GetSettingsPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// ToRuntimeConfig creates a downloader RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *downloader.RuntimeConfig {
	return &downloader.RuntimeConfig{
		UserAgent:             s.Network.UserAgent,
		ProxyURL:              s.Network.ProxyURL,
		SkipTLSVerification:   s.Network.SkipTLSVerification,
		SkipArchiveCheck:      s.Network.SkipArchiveCheck,
		ChunkSize:             s.Network.ChunkSize,
		DialTimeout:           s.Network.DialTimeout,
		ResponseHeaderTimeout: s.Network.ResponseHeaderTimeout,
	}
}

// ToInstallConfig creates the immutable configuration of one installation.
func (s *Settings) ToInstallConfig(plan fstab.MountPlan) install.Config {
	return install.Config{
		PartitionMode:       s.Install.PartitionMode,
		RootDevice:          s.Install.RootDevice,
		AutoPartitionScript: s.Install.AutoPartitionScript,
		DestDir:             s.Install.DestDir,
		Plan:                plan,
		PacmanConf:          s.Paths.PacmanConf,
		Arch:                s.Install.Arch,
		UseNTP:              s.General.UseNTP,
		LanguageCode:        s.General.LanguageCode,
		HostResolvConf:      s.Paths.ResolvConf,
		HostPacmanDir:       s.Paths.PacmanDir,
		HostKeyringDir:      s.Paths.KeyringDir,
	}
}

// LoadMountPlan reads the configured mount plan. Without a plan file the
// plan is empty; install.New rejects it before any step runs.
func (s *Settings) LoadMountPlan() (fstab.MountPlan, error) {
	if s.Install.MountPlanFile == "" {
		return fstab.MountPlan{}, nil
	}
	return fstab.LoadPlan(s.Install.MountPlanFile)
}
