// Package discussion defines the Session domain entity: a bounded,
// round-based conversation among persona agents.
package discussion

import (
	"fmt"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
)

// Status represents the current state of a discussion session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further messages may be appended.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Role distinguishes user-injected messages from agent turns.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// UserAgentID is the reserved agent id for user-injected messages.
const UserAgentID persona.ID = "user"

// Message is one transcript entry. Messages are append-only; ordering is
// insertion order. Round groups messages produced during the same
// turn-selection cycle (0 for messages injected before the first round).
type Message struct {
	AgentID   persona.ID `json:"agent_id"`
	Content   string     `json:"content"`
	Round     int        `json:"round"`
	Role      Role       `json:"role"`
	Timestamp time.Time  `json:"timestamp"`
}

// Session is a single discussion. It is mutated only by the one
// orchestration loop that owns it; the service layer enforces the
// single-writer invariant.
type Session struct {
	ID           string       `json:"id"`
	Topic        string       `json:"topic"`
	ProjectID    string       `json:"project_id,omitempty"`
	Participants []persona.ID `json:"participants"`
	Messages     []Message    `json:"messages"`
	Status       Status       `json:"status"`
	Round        int          `json:"round"`
	TotalTokens  int          `json:"total_tokens"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// Append adds a message to the transcript.
// Appending to a terminal session is an error.
func (s *Session) Append(m Message) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, domain.ErrTerminal)
	}
	s.Messages = append(s.Messages, m)
	return nil
}

// AdvanceRound increments the round counter. Round is monotonically
// non-decreasing for the lifetime of the session.
func (s *Session) AdvanceRound() int {
	s.Round++
	return s.Round
}

// Complete moves the session to completed. Completing an already completed
// session is a no-op, not an error.
func (s *Session) Complete(now time.Time) error {
	switch s.Status {
	case StatusCompleted:
		return nil
	case StatusFailed:
		return fmt.Errorf("session %s is failed: %w", s.ID, domain.ErrTerminal)
	}
	s.Status = StatusCompleted
	s.CompletedAt = &now
	return nil
}

// Fail moves the session to failed. Failing a terminal session is an error.
func (s *Session) Fail(now time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, domain.ErrTerminal)
	}
	s.Status = StatusFailed
	s.CompletedAt = &now
	return nil
}

// Pause suspends an active session so it can be resumed later.
func (s *Session) Pause() error {
	if s.Status != StatusActive {
		return fmt.Errorf("session %s is %s, expected active: %w", s.ID, s.Status, domain.ErrTerminal)
	}
	s.Status = StatusPaused
	return nil
}

// Resume reactivates a paused session.
func (s *Session) Resume() error {
	if s.Status != StatusPaused {
		return fmt.Errorf("session %s is %s, expected paused", s.ID, s.Status)
	}
	s.Status = StatusActive
	return nil
}

// Tail returns up to n of the most recent transcript messages.
func (s *Session) Tail(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Clone returns a deep copy safe to hand to readers while the owning loop
// keeps mutating the original.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Participants = append([]persona.ID(nil), s.Participants...)
	cp.Messages = append([]Message(nil), s.Messages...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
