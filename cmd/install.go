package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/history"
	"github.com/cnchi/installer/internal/tui"
	"github.com/cnchi/installer/internal/utils"
)

var errAlreadyRunning = errors.New("another installer is already running")

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Run the installation sequence",
	Long: `install prepares the partitions, configures pacman, selects the packages for
this machine, downloads and installs them into the target root and writes its fstab.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyInstallFlags(cmd)
		headless, _ := cmd.Flags().GetBool("headless")

		if err := settings.Validate(); err != nil {
			return err
		}
		if err := initializeLogging(); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}

		isMaster, err := AcquireLock(settings.Paths.StateDir)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !isMaster {
			return errAlreadyRunning
		}
		defer func() { _ = ReleaseLock() }()

		plan, err := settings.LoadMountPlan()
		if err != nil {
			return err
		}

		runID := uuid.New().String()
		utils.Info("Installation run %s", runID)

		var rec downloader.Recorder
		store, err := history.Open(settings.GetHistoryPath())
		if err != nil {
			utils.Warn("Download history disabled: %v", err)
		} else {
			defer func() { _ = store.Close() }()
			rec = store
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ev := events.NewChannel(events.DefaultBuffer)
		orch, err := newOrchestrator(settings, plan, runID, ev, rec)
		if err != nil {
			return err
		}

		result := orch.Start(ctx)
		if headless {
			done := StartHeadlessConsumer(ev.Events(), cmd.OutOrStdout())
			err = <-result
			ev.Close()
			<-done
		} else {
			err = runTUI(ev, result, cancel)
		}
		if err != nil {
			return fmt.Errorf("installation failed: %w", err)
		}
		return nil
	},
}

func init() {
	installCmd.Flags().Bool("headless", false, "Print progress lines instead of the TUI")
	installCmd.Flags().String("mode", "", "Partition mode: automatic, advanced or easy")
	installCmd.Flags().String("root-device", "", "Disk handed to the auto partition script")
	installCmd.Flags().String("plan", "", "Mount plan YAML file")
	installCmd.Flags().String("dest", "", "Target root directory")
	installCmd.Flags().String("cache-dir", "", "Extra package cache checked before downloading")
	rootCmd.AddCommand(installCmd)
}

// applyInstallFlags lets explicit flags override loaded settings.
func applyInstallFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("mode") {
		settings.Install.PartitionMode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("root-device") {
		settings.Install.RootDevice, _ = cmd.Flags().GetString("root-device")
	}
	if cmd.Flags().Changed("plan") {
		settings.Install.MountPlanFile, _ = cmd.Flags().GetString("plan")
	}
	if cmd.Flags().Changed("dest") {
		settings.Install.DestDir, _ = cmd.Flags().GetString("dest")
	}
	if cmd.Flags().Changed("cache-dir") {
		settings.Paths.CacheDir, _ = cmd.Flags().GetString("cache-dir")
	}
}

// runTUI shows the dashboard until the user quits and returns the
// installer result. Quitting early cancels the run and waits for cleanup.
func runTUI(ev *events.Channel, result <-chan error, cancel context.CancelFunc) error {
	p := tea.NewProgram(tui.NewModel(ev.Events(), settings, cancel), tea.WithAltScreen())

	errCh := make(chan error, 1)
	go func() {
		errCh <- <-result
		ev.Close()
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("run TUI: %w", err)
	}
	return <-errCh
}
