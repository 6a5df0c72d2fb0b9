package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/reaper/pkg/engine/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [message]",
	Short: "Send a test message to Slack and exit",
	Long: `Sends a literal test message through the configured webhook. No resources
are listed or evaluated; intended for verifying the Slack integration.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireWebhook(); err != nil {
			return err
		}

		msg := "reaper test notification"
		if len(args) > 0 {
			msg = strings.Join(args, " ")
		}

		return notifier.NewSlackClient(cfg.SlackWebhook, cfg.SlackChannel).Send(msg)
	},
}
