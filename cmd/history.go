package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/downloader"
	"github.com/cnchi/installer/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded download outcomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := history.Open(settings.GetHistoryPath())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		outcomes, err := store.List(cmd.Context(), history.Filter{
			RunID:  runID,
			Status: downloader.Status(status),
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No downloads recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tPACKAGE\tVERSION\tSTATUS\tSIZE\tTRIES\tWHEN")
		for _, o := range outcomes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				shortID(o.RunID), o.Identity, o.Version, o.Status,
				humanize.Bytes(uint64(o.Bytes)), o.Attempts, humanize.Time(o.FinishedAt))
		}
		return w.Flush()
	},
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded run IDs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(settings.GetHistoryPath())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().String("run", "", "Only show this run")
	historyCmd.Flags().String("status", "", "Only show this status (existing, cached, downloaded, failed)")
	historyCmd.Flags().Int("limit", 50, "Maximum rows (0 for all)")
	historyCmd.AddCommand(historyRunsCmd)
	rootCmd.AddCommand(historyCmd)
}
