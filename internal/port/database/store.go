// Package database defines the persistence sink port. Writes are
// best-effort from the discussion loop's perspective: the in-memory
// session is authoritative while a discussion is active, and callers log
// and swallow sink failures rather than aborting the session.
package database

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
)

// Store is the port interface for durable session, decision and execution
// records.
type Store interface {
	// Sessions and transcript
	CreateSession(ctx context.Context, s *discussion.Session) error
	AppendMessage(ctx context.Context, sessionID string, m discussion.Message) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status discussion.Status, round, totalTokens int) error

	// Summaries and classifications
	SaveSummary(ctx context.Context, sessionID string, s *summary.Summary) error
	SaveClassification(ctx context.Context, sessionID string, c *decision.Classification) error

	// Prompt context reads
	GetPreferenceProfile(ctx context.Context, projectID string) (string, error)
	RecentDecisionTitles(ctx context.Context, projectID string, limit int) ([]string, error)

	// Execution tasks
	SaveExecutionTask(ctx context.Context, sessionID string, t *execution.Task) error
}
