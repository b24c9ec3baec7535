package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
	"github.com/Strob0t/Boardroom/internal/llmjson"
	"github.com/Strob0t/Boardroom/internal/port/completion"
)

// Summarizer digests a finished discussion into structured decisions and
// action items. The full transcript is summarized, never a window.
type Summarizer struct {
	provider completion.Provider
	registry *persona.Registry
	cfg      config.Discussion
}

// NewSummarizer creates a summary generator.
func NewSummarizer(provider completion.Provider, registry *persona.Registry, cfg config.Discussion) *Summarizer {
	return &Summarizer{provider: provider, registry: registry, cfg: cfg}
}

// Summarize produces the structured digest. An empty transcript yields the
// valid empty summary. If the model's output is not parseable JSON, the raw
// prose becomes the summary text so the content is never lost.
func (s *Summarizer) Summarize(ctx context.Context, sess *discussion.Session) (*summary.Summary, error) {
	if len(sess.Messages) == 0 {
		return summary.Empty(), nil
	}

	system, user := buildSummaryPrompt(sess, s.registry)
	result, err := s.provider.Complete(ctx, completion.Request{
		System:      system,
		User:        user,
		Model:       s.cfg.SummaryModel,
		Temperature: 0.3,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize session %s: %w", sess.ID, err)
	}

	sum, err := llmjson.Decode[summary.Summary](result.Content)
	if err != nil {
		slog.Warn("summary output unparseable, keeping raw prose",
			"session_id", sess.ID, "error", err)
		fallback := summary.Empty()
		fallback.Summary = result.Content
		return fallback, nil
	}
	sum.Normalize()
	return &sum, nil
}
