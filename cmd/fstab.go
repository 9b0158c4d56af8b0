package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cnchi/installer/internal/fstab"
)

// uuidProbe is swapped in tests.
var uuidProbe fstab.Probe = fstab.BlkidProbe{}

var fstabCmd = &cobra.Command{
	Use:   "fstab",
	Short: "Generate the fstab for a mount plan",
	Long: `fstab prints the fstab entries for the mount plan, or writes them to
<dest>/etc/fstab when --write is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if p, _ := cmd.Flags().GetString("plan"); p != "" {
			settings.Install.MountPlanFile = p
		}
		if settings.Install.MountPlanFile == "" {
			return errors.New("no mount plan given (--plan)")
		}
		write, _ := cmd.Flags().GetBool("write")
		dest, _ := cmd.Flags().GetString("dest")
		if dest == "" {
			dest = settings.Install.DestDir
		}

		plan, err := settings.LoadMountPlan()
		if err != nil {
			return err
		}

		if write {
			if err := fstab.Write(cmd.Context(), dest, plan, uuidProbe); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Join(dest, "etc", "fstab"))
			return nil
		}

		text, err := fstab.Generate(cmd.Context(), plan, uuidProbe)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	fstabCmd.Flags().String("plan", "", "Mount plan YAML file")
	fstabCmd.Flags().Bool("write", false, "Write <dest>/etc/fstab instead of printing")
	fstabCmd.Flags().String("dest", "", "Target root directory (default from settings)")
	rootCmd.AddCommand(fstabCmd)
}
