// Package config defines the reaper's configuration, defaults, and
// pre-flight validation.
package config

import (
	"fmt"
	"time"
)

// Metric window constants. These bound every idleness decision: a timeout
// longer than the lookback window can never be satisfied by the data.
const (
	// LookbackWindow is the trailing span of metric history fetched per metric.
	LookbackWindow = 48 * time.Hour
	// SamplingPeriod is the aggregation period of each datapoint.
	SamplingPeriod = 5 * time.Minute
)

// Thresholds defines the per-metric activity floors. A datapoint strictly
// below its floor counts as idle.
type Thresholds struct {
	// MinCPUUtilisation is the CPU percentage floor per sampling period.
	MinCPUUtilisation float64 `mapstructure:"min_cpu_utilisation"`
	// MinDiskOps is the disk read/write operations floor per sampling period.
	MinDiskOps float64 `mapstructure:"min_disk_ops"`
	// MinNetworkPackets is the in/out packet floor per sampling period.
	MinNetworkPackets float64 `mapstructure:"min_network_packets"`
}

// InstanceConfig controls the instance pass.
type InstanceConfig struct {
	Thresholds Thresholds `mapstructure:",squash"`
	// StopTimeoutHours stops an instance idle for at least this long.
	StopTimeoutHours float64 `mapstructure:"stop_timeout_hours"`
	// WarningTimeoutHours warns about an instance idle for at least this long.
	WarningTimeoutHours float64 `mapstructure:"warning_timeout_hours"`
	// IncludeStopped also evaluates stopped instances. Debugging aid.
	IncludeStopped bool `mapstructure:"include_stopped"`
	// DryRun decides stop actions without calling the EC2 API.
	DryRun bool `mapstructure:"dry_run"`
}

// VolumeConfig controls the volume pass.
type VolumeConfig struct {
	// MaxAvailable is the allowed count of unattached volumes.
	MaxAvailable int `mapstructure:"max_available"`
	// MaxLargeInUse is the allowed count of in-use volumes above LargeSizeGB.
	MaxLargeInUse int `mapstructure:"max_large_in_use"`
	// LargeSizeGB is the size floor for the in-use count above.
	LargeSizeGB int32 `mapstructure:"large_size_gb"`
	// MaxTotalGB is the allowed total size across all volumes.
	MaxTotalGB int64 `mapstructure:"max_total_gb"`
}

// Config is the full runtime configuration for one pass.
type Config struct {
	Region       string         `mapstructure:"region"`
	Profile      string         `mapstructure:"profile"`
	SlackWebhook string         `mapstructure:"slack_webhook"`
	SlackChannel string         `mapstructure:"slack_channel"`
	Verbose      bool           `mapstructure:"verbose"`
	JsonLogs     bool           `mapstructure:"json_logs"`
	Concurrency  int            `mapstructure:"concurrency"`
	OutputPath   string         `mapstructure:"output"`
	Instances    InstanceConfig `mapstructure:"instances"`
	Volumes      VolumeConfig   `mapstructure:"volumes"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Region:      "us-east-1",
		Concurrency: 4,
		Instances: InstanceConfig{
			Thresholds: Thresholds{
				MinCPUUtilisation: 3,
				MinDiskOps:        1,
				MinNetworkPackets: 50,
			},
			StopTimeoutHours:    6,
			WarningTimeoutHours: 4,
		},
		Volumes: VolumeConfig{
			MaxAvailable:  20,
			MaxLargeInUse: 10,
			LargeSizeGB:   200,
			MaxTotalGB:    10 * 1000,
		},
	}
}

// Validate rejects configurations that cannot be satisfied by the metric
// window. It must run before any remote call.
func (c Config) Validate() error {
	lookback := LookbackWindow.Hours()
	if c.Instances.StopTimeoutHours > lookback {
		return fmt.Errorf("stop timeout (%.0fh) cannot be longer than the %.0fh metric lookback window",
			c.Instances.StopTimeoutHours, lookback)
	}
	if c.Instances.WarningTimeoutHours > lookback {
		return fmt.Errorf("warning timeout (%.0fh) cannot be longer than the %.0fh metric lookback window",
			c.Instances.WarningTimeoutHours, lookback)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// RequireWebhook fails when a pass needs Slack delivery but no webhook is
// configured. Raised pre-flight so no listing or fetching happens first.
func (c Config) RequireWebhook() error {
	if c.SlackWebhook == "" {
		return fmt.Errorf("no Slack webhook configured: set %s or --slack-webhook", EnvSlackWebhook)
	}
	return nil
}

// Environment variables honoured in addition to flags.
const (
	EnvSlackWebhook = "SLACK_WEB_HOOK"
	EnvSlackChannel = "SLACK_CHANNEL"
)
