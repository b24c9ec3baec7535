package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

var _ notifier.Notifier = (*Notifier)(nil)

func executionAlert() notifier.Notification {
	return notifier.Notification{
		Title:   "Execution failed: renegotiate vendor contract",
		Message: "Task aborted after step 2, rollback recommended",
		Level:   "error",
		Source:  "execution.failed",
	}
}

func TestNotifierName(t *testing.T) {
	if n := NewNotifier(""); n.Name() != "discord" {
		t.Fatalf("name = %q, want discord", n.Name())
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier("")
	if err := n.Send(context.Background(), executionAlert()); err != notifier.ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSendPostsEmbed(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	if err := n.Send(context.Background(), executionAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var payload webhookPayload
	if err := json.Unmarshal(captured, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Title != "Execution failed: renegotiate vendor contract" {
		t.Errorf("title = %q", e.Title)
	}
	if e.Color != embedColor["error"] {
		t.Errorf("color = %#x, want error red", e.Color)
	}
	if e.Footer == nil || !strings.Contains(e.Footer.Text, "execution.failed") {
		t.Errorf("footer = %+v, want source reference", e.Footer)
	}
}

func TestBuildEmbedDefaults(t *testing.T) {
	alert := executionAlert()
	alert.Level = "unmapped"
	alert.Source = ""
	e := buildEmbed(alert)
	if e.Color != embedColor["info"] {
		t.Errorf("color = %#x, want info fallback", e.Color)
	}
	if e.Footer != nil {
		t.Errorf("footer = %+v, want nil without a source", e.Footer)
	}
}

func TestSendWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Invalid Webhook Token"}`))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), executionAlert())
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("err = %v, want webhook status error", err)
	}
}
