package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DrSkyle/reaper/pkg/config"
	"github.com/DrSkyle/reaper/pkg/version"
)

var (
	cfgFile string
	cfg     = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Cost governance for idle EC2 instances and EBS volumes",
	Long: `reaper - stop paying for compute nobody uses

Evaluates CloudWatch utilization over a trailing window, warns about idle
instances via Slack, stops instances idle past the timeout, and reports
EBS volume sprawl.`,
	Version: version.Current,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.reaper.yaml)")
	rootCmd.PersistentFlags().StringVar(&cfg.Region, "region", cfg.Region, "AWS Region")
	rootCmd.PersistentFlags().StringVar(&cfg.Profile, "profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().StringVar(&cfg.SlackWebhook, "slack-webhook", "", "Slack webhook URL (or set "+config.EnvSlackWebhook+")")
	rootCmd.PersistentFlags().StringVar(&cfg.SlackChannel, "slack-channel", "", "Slack channel override (or set "+config.EnvSlackChannel+")")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Print fleet tables and per-category idleness")
	rootCmd.PersistentFlags().BoolVar(&cfg.JsonLogs, "json-logs", false, "Emit JSON logs")
	rootCmd.PersistentFlags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Parallel metric fetches per pass")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputPath, "output", "o", "", "Write decided actions to a JSON file")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		applyConfigFile(cmd)

		// Flags and file win; environment fills the gaps.
		if cfg.SlackWebhook == "" {
			cfg.SlackWebhook = os.Getenv(config.EnvSlackWebhook)
		}
		if cfg.SlackChannel == "" {
			cfg.SlackChannel = os.Getenv(config.EnvSlackChannel)
		}
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(instancesCmd)
	rootCmd.AddCommand(volumesCmd)
	rootCmd.AddCommand(notifyCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".reaper.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// applyConfigFile overlays config-file values onto cfg. An explicitly-set
// flag keeps its value; the file only overrides built-in defaults.
func applyConfigFile(cmd *cobra.Command) {
	fromFile := cfg
	if err := viper.Unmarshal(&fromFile); err != nil {
		fmt.Fprintf(os.Stderr, "ignoring malformed config file: %v\n", err)
		return
	}

	flags := cmd.Flags()
	unchanged := func(name string) bool {
		f := flags.Lookup(name)
		return f == nil || !f.Changed
	}

	if unchanged("region") {
		cfg.Region = fromFile.Region
	}
	if unchanged("profile") {
		cfg.Profile = fromFile.Profile
	}
	if unchanged("slack-webhook") {
		cfg.SlackWebhook = fromFile.SlackWebhook
	}
	if unchanged("slack-channel") {
		cfg.SlackChannel = fromFile.SlackChannel
	}
	if unchanged("verbose") {
		cfg.Verbose = fromFile.Verbose
	}
	if unchanged("json-logs") {
		cfg.JsonLogs = fromFile.JsonLogs
	}
	if unchanged("concurrency") {
		cfg.Concurrency = fromFile.Concurrency
	}
	if unchanged("output") {
		cfg.OutputPath = fromFile.OutputPath
	}
	if unchanged("min-cpu-utilisation") {
		cfg.Instances.Thresholds.MinCPUUtilisation = fromFile.Instances.Thresholds.MinCPUUtilisation
	}
	if unchanged("min-disk-ops") {
		cfg.Instances.Thresholds.MinDiskOps = fromFile.Instances.Thresholds.MinDiskOps
	}
	if unchanged("min-network-packets") {
		cfg.Instances.Thresholds.MinNetworkPackets = fromFile.Instances.Thresholds.MinNetworkPackets
	}
	if unchanged("stop-timeout-hours") {
		cfg.Instances.StopTimeoutHours = fromFile.Instances.StopTimeoutHours
	}
	if unchanged("warning-timeout-hours") {
		cfg.Instances.WarningTimeoutHours = fromFile.Instances.WarningTimeoutHours
	}
	if unchanged("include-stopped") {
		cfg.Instances.IncludeStopped = fromFile.Instances.IncludeStopped
	}
	if unchanged("dry-run") {
		cfg.Instances.DryRun = fromFile.Instances.DryRun
	}
	if unchanged("max-available") {
		cfg.Volumes.MaxAvailable = fromFile.Volumes.MaxAvailable
	}
	if unchanged("max-large-in-use") {
		cfg.Volumes.MaxLargeInUse = fromFile.Volumes.MaxLargeInUse
	}
	if unchanged("large-size-gb") {
		cfg.Volumes.LargeSizeGB = fromFile.Volumes.LargeSizeGB
	}
	if unchanged("max-total-gb") {
		cfg.Volumes.MaxTotalGB = fromFile.Volumes.MaxTotalGB
	}
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("REAPER %s", version.Current)))
	fmt.Println(cmd.Short)

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-24s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
