package commands

import (
	"github.com/spf13/cobra"

	"github.com/DrSkyle/reaper/pkg/engine"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "Evaluate instance idleness; warn about and stop idle instances",
	Long: `Computes per-instance idleness from CPU, disk and network CloudWatch
metrics over the trailing 48 hours. Instances idle past the warning timeout
get a Slack warning; instances idle past the stop timeout are stopped.

Example:
  reaper instances --region eu-west-1 -s 8 -w 6 --dry-run`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Fail fast: no listing or metric fetch happens on bad config.
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.RequireWebhook(); err != nil {
			return err
		}

		e, err := engine.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer e.Close(cmd.Context())

		_, err = e.RunInstances(cmd.Context())
		return err
	},
}

func init() {
	f := instancesCmd.Flags()
	f.Float64VarP(&cfg.Instances.Thresholds.MinCPUUtilisation, "min-cpu-utilisation", "c", cfg.Instances.Thresholds.MinCPUUtilisation,
		"Minimum CPU utilisation in % per 5 minutes for an instance to be considered active")
	f.Float64VarP(&cfg.Instances.Thresholds.MinDiskOps, "min-disk-ops", "d", cfg.Instances.Thresholds.MinDiskOps,
		"Minimum disk operations (read or write) per 5 minutes for an instance to be considered active")
	f.Float64VarP(&cfg.Instances.Thresholds.MinNetworkPackets, "min-network-packets", "n", cfg.Instances.Thresholds.MinNetworkPackets,
		"Minimum (in or out) network packets per 5 minutes for an instance to be considered active")
	f.Float64VarP(&cfg.Instances.StopTimeoutHours, "stop-timeout-hours", "s", cfg.Instances.StopTimeoutHours,
		"After this number of idle hours the instance will be stopped")
	f.Float64VarP(&cfg.Instances.WarningTimeoutHours, "warning-timeout-hours", "w", cfg.Instances.WarningTimeoutHours,
		"After this number of idle hours a warning will be sent that the instance will be stopped soon-ish")
	f.BoolVar(&cfg.Instances.IncludeStopped, "include-stopped", false,
		"Include stopped instances in idleness checks. For debugging mostly")
	f.BoolVar(&cfg.Instances.DryRun, "dry-run", false,
		"Decide and report stop actions without calling the EC2 API")
}
