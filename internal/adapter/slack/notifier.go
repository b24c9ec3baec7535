// Package slack pushes Boardroom decision alerts to a Slack incoming
// webhook. One message per classified decision at L1_NOTIFY or above.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

const providerName = "slack"

// severityLabel prefixes the alert header per notification level.
var severityLabel = map[string]string{
	"error":   ":rotating_light:",
	"warning": ":warning:",
	"success": ":white_check_mark:",
	"info":    ":information_source:",
}

// Notifier posts Block Kit messages to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier for the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		Threads:        false,
	}
}

type message struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type string `json:"type"`
	Text *text  `json:"text,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// buildMessage lays the alert out as header, body and a context line
// naming the emitting subsystem (decision.classified, discussion.failed).
func buildMessage(alert notifier.Notification) message {
	label, ok := severityLabel[alert.Level]
	if !ok {
		label = severityLabel["info"]
	}

	msg := message{
		Blocks: []block{
			{Type: "header", Text: &text{Type: "plain_text", Text: fmt.Sprintf("%s %s", label, alert.Title)}},
			{Type: "section", Text: &text{Type: "mrkdwn", Text: alert.Message}},
		},
	}
	if alert.Source != "" {
		msg.Blocks = append(msg.Blocks, block{
			Type: "context",
			Text: &text{Type: "mrkdwn", Text: fmt.Sprintf("_Source: %s_", alert.Source)},
		})
	}
	return msg
}

func (n *Notifier) Send(ctx context.Context, alert notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(buildMessage(alert))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
