package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/config"
	"github.com/cnchi/installer/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool

	// settings is loaded once per invocation in PersistentPreRunE
	settings *config.Settings
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "cnchi",
	Short:   "Installer backend: package downloads and installation sequence",
	Long:    `cnchi prepares the target disk, resolves and downloads the package set for this machine and installs it into the target root.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadSettings(configPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if verbose {
			s.General.Verbose = true
		}
		settings = s
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	utils.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default /etc/cnchi/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug entries to the log")
	rootCmd.SetVersionTemplate("cnchi version {{.Version}}\n")
}

// initializeLogging sets up the log directory and the zap logger for commands
// that do real work.
func initializeLogging() error {
	if err := settings.EnsureDirs(); err != nil {
		return err
	}
	return utils.InitLogger(settings.GetLogPath(), settings.General.Verbose)
}
