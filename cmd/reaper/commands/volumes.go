package commands

import (
	"github.com/spf13/cobra"

	"github.com/DrSkyle/reaper/pkg/engine"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "Report EBS volume sprawl against configured limits",
	Long: `Lists in-use and available EBS volumes, prints the fleet with its total
size, and warns when the available-volume count, the large in-use volume
count, or the total size exceeds its threshold. Warnings go to stdout, and
to Slack when a webhook is configured.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		e, err := engine.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer e.Close(cmd.Context())

		_, err = e.RunVolumes(cmd.Context())
		return err
	},
}

func init() {
	f := volumesCmd.Flags()
	f.IntVar(&cfg.Volumes.MaxAvailable, "max-available", cfg.Volumes.MaxAvailable,
		"Maximum allowed count of available (unattached) volumes")
	f.IntVar(&cfg.Volumes.MaxLargeInUse, "max-large-in-use", cfg.Volumes.MaxLargeInUse,
		"Maximum allowed count of in-use volumes above the large-size floor")
	f.Int32Var(&cfg.Volumes.LargeSizeGB, "large-size-gb", cfg.Volumes.LargeSizeGB,
		"Size floor in GB for the large in-use volume count")
	f.Int64Var(&cfg.Volumes.MaxTotalGB, "max-total-gb", cfg.Volumes.MaxTotalGB,
		"Maximum allowed total volume size in GB")
}
