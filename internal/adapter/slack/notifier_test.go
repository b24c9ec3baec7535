package slack

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

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func decisionAlert() notifier.Notification {
	return notifier.Notification{
		Title:   "Decision classified L2_CONFIRM",
		Message: "Migrate billing to the new provider (risk score 64, recommendation confirm_first)",
		Level:   "warning",
		Source:  "decision.classified",
	}
}

func TestNotifierName(t *testing.T) {
	if n := NewNotifier(""); n.Name() != "slack" {
		t.Fatalf("name = %q, want slack", n.Name())
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier("")
	if err := n.Send(context.Background(), decisionAlert()); err != notifier.ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSendPostsDecisionAlert(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	if err := n.Send(context.Background(), decisionAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var msg message
	if err := json.Unmarshal(captured, &msg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(msg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want header, section and source context", len(msg.Blocks))
	}
	if !strings.Contains(msg.Blocks[0].Text.Text, "Decision classified L2_CONFIRM") {
		t.Errorf("header = %q", msg.Blocks[0].Text.Text)
	}
	if !strings.Contains(msg.Blocks[0].Text.Text, ":warning:") {
		t.Errorf("header missing severity label: %q", msg.Blocks[0].Text.Text)
	}
	if !strings.Contains(msg.Blocks[1].Text.Text, "risk score 64") {
		t.Errorf("body = %q", msg.Blocks[1].Text.Text)
	}
	if !strings.Contains(msg.Blocks[2].Text.Text, "decision.classified") {
		t.Errorf("context = %q", msg.Blocks[2].Text.Text)
	}
}

func TestSendOmitsSourceBlockWhenEmpty(t *testing.T) {
	alert := decisionAlert()
	alert.Source = ""
	if got := len(buildMessage(alert).Blocks); got != 2 {
		t.Fatalf("blocks = %d, want 2 without a source", got)
	}
}

func TestSendWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("invalid_blocks"))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), decisionAlert())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("err = %v, want webhook status error", err)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	alert := decisionAlert()
	alert.Level = "surprising"
	msg := buildMessage(alert)
	if !strings.Contains(msg.Blocks[0].Text.Text, severityLabel["info"]) {
		t.Errorf("header = %q, want info label fallback", msg.Blocks[0].Text.Text)
	}
}
