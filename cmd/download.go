package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/catalog"
	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/events"
	"github.com/cnchi/installer/internal/history"
	"github.com/cnchi/installer/internal/pacman"
	"github.com/cnchi/installer/internal/utils"
)

var downloadCmd = &cobra.Command{
	Use:   "download [package]...",
	Short: "Download packages into the target's pacman cache",
	Long: `download asks pacman for the sync URLs of the given packages and fetches them
into <dest>/var/cache/pacman/pkg, trying each mirror of the package's repository in order.
Without arguments the package set selected for this machine is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dest, _ := cmd.Flags().GetString("dest"); dest != "" {
			settings.Install.DestDir = dest
		}
		if cacheDir, _ := cmd.Flags().GetString("cache-dir"); cacheDir != "" {
			settings.Paths.CacheDir = cacheDir
		}
		refresh, _ := cmd.Flags().GetBool("refresh")

		if err := initializeLogging(); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}

		names := catalog.Dedup(args)
		if len(names) == 0 {
			resolved, err := resolvePackages(cmd)
			if err != nil {
				return err
			}
			names = resolved
		}

		arch := settings.Install.Arch
		if arch == "" {
			arch = catalog.Arch()
		}
		destDir := settings.Install.DestDir
		confPath := settings.Paths.PacmanConf

		if _, err := os.Stat(confPath); errors.Is(err, os.ErrNotExist) {
			if err := pacman.WriteConfig(confPath, destDir, arch); err != nil {
				return err
			}
		}

		runID := uuid.New().String()
		var rec downloader.Recorder
		if store, err := history.Open(settings.GetHistoryPath()); err != nil {
			utils.Warn("Download history disabled: %v", err)
		} else {
			defer func() { _ = store.Close() }()
			rec = store
		}

		ev := events.NewChannel(events.DefaultBuffer)
		done := StartHeadlessConsumer(ev.Events(), cmd.OutOrStdout())

		pm, dl := newPackageManager(settings, destDir, arch, runID, ev, rec)
		summary, err := fetchPackages(cmd, pm, dl, names, confPath, refresh)
		ev.Close()
		<-done
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d/%d packages in cache\n", runID, summary.Completed, summary.Total)
		for _, name := range summary.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", name)
		}
		return nil
	},
}

func fetchPackages(cmd *cobra.Command, pm *pacman.Manager, dl *downloader.Manager, names []string, confPath string, refresh bool) (downloader.Summary, error) {
	ctx := cmd.Context()

	if err := pm.Configure(ctx, confPath); err != nil {
		return downloader.Summary{}, err
	}
	if err := os.MkdirAll(pm.CacheDir(), 0755); err != nil {
		return downloader.Summary{}, err
	}
	if refresh {
		if err := pm.RefreshDatabases(ctx); err != nil {
			return downloader.Summary{}, err
		}
	}

	queue, err := pm.BuildQueue(ctx, names)
	if err != nil {
		return downloader.Summary{}, err
	}
	return dl.Run(ctx, queue), nil
}

func init() {
	downloadCmd.Flags().String("dest", "", "Target root directory (default from settings)")
	downloadCmd.Flags().String("cache-dir", "", "Extra package cache checked before downloading")
	downloadCmd.Flags().Bool("refresh", false, "Refresh the sync databases first")
	rootCmd.AddCommand(downloadCmd)
}
