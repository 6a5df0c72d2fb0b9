// Package notifier delivers chat notifications through a Slack incoming
// webhook.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/DrSkyle/reaper/pkg/config"
)

// SlackClient posts messages to a Slack incoming webhook.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: override the webhook's default channel.

	httpClient *http.Client
}

// NewSlackClient initializes the Slack integration. Empty arguments fall back
// to the SLACK_WEB_HOOK / SLACK_CHANNEL environment variables.
func NewSlackClient(webhookURL, channel string) *SlackClient {
	if webhookURL == "" {
		webhookURL = os.Getenv(config.EnvSlackWebhook)
	}
	if channel == "" {
		channel = os.Getenv(config.EnvSlackChannel)
	}
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a plain text message.
func (s *SlackClient) Send(msg string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("no Slack webhook configured: set %s", config.EnvSlackWebhook)
	}

	payload := map[string]interface{}{
		"text":       msg,
		"username":   "ec2-reaper",
		"icon_emoji": ":robot_face:",
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequest("POST", s.WebhookURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}

	return nil
}

// WarnIdle announces that an instance will be stopped soon. monthlyCost is
// the estimated on-demand spend; pass a negative value when unknown.
func (s *SlackClient) WarnIdle(name, instanceID string, idleHours, monthlyCost float64) error {
	msg := fmt.Sprintf(":warning: Instance %s (%s) has been idle for %.2f hours and will be stopped soon.",
		name, instanceID, idleHours)
	if monthlyCost >= 0 {
		msg += fmt.Sprintf(" Estimated on-demand cost: $%.2f/mo.", monthlyCost)
	}
	return s.Send(msg)
}

// NotifyStopped announces an executed (or dry-run) stop.
func (s *SlackClient) NotifyStopped(name, instanceID string, idleHours, monthlyCost float64, dryRun bool) error {
	verb := "has been stopped"
	if dryRun {
		verb = "would be stopped (dry run)"
	}
	msg := fmt.Sprintf(":octagonal_sign: Instance %s (%s) %s after %.2f idle hours.",
		name, instanceID, verb, idleHours)
	if monthlyCost >= 0 {
		msg += fmt.Sprintf(" Estimated savings: $%.2f/mo.", monthlyCost)
	}
	return s.Send(msg)
}
