// Package discord pushes Boardroom decision alerts to a Discord webhook
// as a single embed per alert.
package discord

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

const providerName = "discord"

// embedColor maps a notification level to a Discord embed color.
var embedColor = map[string]int{
	"success": 0x2ECC71,
	"error":   0xE74C3C,
	"warning": 0xF39C12,
	"info":    0x3498DB,
}

// Notifier sends embeds to a Discord incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Discord notifier for the given webhook URL.
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
		Threads:        true,
	}
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Footer      *footer `json:"footer,omitempty"`
}

type footer struct {
	Text string `json:"text"`
}

// buildEmbed renders an alert as one embed, footer carrying the emitting
// subsystem (decision.classified, discussion.failed).
func buildEmbed(alert notifier.Notification) embed {
	color, ok := embedColor[alert.Level]
	if !ok {
		color = embedColor["info"]
	}
	e := embed{
		Title:       alert.Title,
		Description: alert.Message,
		Color:       color,
	}
	if alert.Source != "" {
		e.Footer = &footer{Text: "Source: " + alert.Source}
	}
	return e
}

func (n *Notifier) Send(ctx context.Context, alert notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{buildEmbed(alert)}})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord answers 204 on success.
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
