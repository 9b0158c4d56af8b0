package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/catalog"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Print the package set selected for this machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if url, _ := cmd.Flags().GetString("catalog"); url != "" {
			settings.Network.CatalogURL = url
		}
		oneLine, _ := cmd.Flags().GetBool("one-line")

		names, err := resolvePackages(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if oneLine {
			fmt.Fprintln(out, strings.Join(names, " "))
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

// newHardwareProbe is swapped in tests.
var newHardwareProbe = func() catalog.HardwareProbe {
	return catalog.NewSystemProbe()
}

// resolvePackages runs the catalog resolver with the loaded settings.
func resolvePackages(cmd *cobra.Command) ([]string, error) {
	opts := catalog.Options{
		UseNTP:       settings.General.UseNTP,
		LanguageCode: settings.General.LanguageCode,
	}
	names, err := newResolver(settings).Resolve(cmd.Context(), newHardwareProbe(), opts)
	if err != nil {
		return nil, err
	}
	return catalog.Dedup(names), nil
}

func init() {
	packagesCmd.Flags().String("catalog", "", "Catalog URL (default from settings)")
	packagesCmd.Flags().Bool("one-line", false, "Print the packages space separated")
	rootCmd.AddCommand(packagesCmd)
}
