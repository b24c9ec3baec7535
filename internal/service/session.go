// Package service implements the Boardroom use cases on top of the domain
// entities and ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = fmt.Errorf("session: %w", domain.ErrNotFound)

// sessionEntry pairs a session with the mutex that enforces its
// single-writer invariant. All mutation goes through Update.
type sessionEntry struct {
	mu   sync.Mutex
	sess *discussion.Session
}

// SessionManager owns all in-memory discussion sessions. The in-memory
// state is authoritative while a discussion runs; Postgres is a best-effort
// durable mirror, and a write failure there never aborts a discussion.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	registry *persona.Registry
	store    database.Store
	now      func() time.Time
}

// NewSessionManager creates a session manager. store may be nil in tests.
func NewSessionManager(registry *persona.Registry, store database.Store) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*sessionEntry),
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// Create validates participants against the persona registry and registers
// a new active session. An empty participant set is a caller bug, not a
// default to fill in here; roster defaulting is request-surface UX.
func (m *SessionManager) Create(ctx context.Context, topic, projectID string, participants []persona.ID) (*discussion.Session, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", domain.ErrValidation)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("at least one participant is required: %w", domain.ErrValidation)
	}
	if err := m.registry.Validate(participants); err != nil {
		return nil, err
	}

	sess := &discussion.Session{
		ID:           uuid.NewString(),
		Topic:        topic,
		ProjectID:    projectID,
		Participants: append([]persona.ID(nil), participants...),
		Status:       discussion.StatusActive,
		Round:        1,
		StartedAt:    m.now().UTC(),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = &sessionEntry{sess: sess}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.CreateSession(ctx, sess); err != nil {
			slog.Warn("session persist failed, continuing in memory", "session_id", sess.ID, "error", err)
		}
	}

	slog.Info("session created", "session_id", sess.ID, "topic", topic, "participants", len(participants))
	return sess.Clone(), nil
}

func (m *SessionManager) entry(id string) (*sessionEntry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return e, nil
}

// Update runs fn against the live session under its single-writer lock.
func (m *SessionManager) Update(id string, fn func(*discussion.Session) error) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Snapshot returns a deep copy of the session for readers.
func (m *SessionManager) Snapshot(id string) (*discussion.Session, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), nil
}

// List returns snapshots of all in-memory sessions, terminal ones included.
func (m *SessionManager) List() []*discussion.Session {
	return m.snapshots(func(*discussion.Session) bool { return true })
}

// ActiveSessions returns snapshots of the sessions currently in progress.
// Completed, failed and paused sessions are excluded; the archive answers
// for those.
func (m *SessionManager) ActiveSessions() []*discussion.Session {
	return m.snapshots(func(s *discussion.Session) bool {
		return s.Status == discussion.StatusActive
	})
}

func (m *SessionManager) snapshots(keep func(*discussion.Session) bool) []*discussion.Session {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]*discussion.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if keep(e.sess) {
			out = append(out, e.sess.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// Append adds a message to the transcript and mirrors it to the store.
func (m *SessionManager) Append(ctx context.Context, id string, msg discussion.Message) error {
	if err := m.Update(id, func(s *discussion.Session) error {
		return s.Append(msg)
	}); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.AppendMessage(ctx, id, msg); err != nil {
			slog.Warn("message persist failed, continuing in memory", "session_id", id, "error", err)
		}
	}
	return nil
}

// AppendUserMessage injects a user message into an active session.
func (m *SessionManager) AppendUserMessage(ctx context.Context, id, content string) (discussion.Message, error) {
	if content == "" {
		return discussion.Message{}, fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	var msg discussion.Message
	err := m.Update(id, func(s *discussion.Session) error {
		msg = discussion.Message{
			AgentID:   discussion.UserAgentID,
			Content:   content,
			Round:     s.Round,
			Role:      discussion.RoleUser,
			Timestamp: m.now().UTC(),
		}
		return s.Append(msg)
	})
	if err != nil {
		return discussion.Message{}, err
	}
	if m.store != nil {
		if storeErr := m.store.AppendMessage(ctx, id, msg); storeErr != nil {
			slog.Warn("message persist failed, continuing in memory", "session_id", id, "error", storeErr)
		}
	}
	return msg, nil
}

// AddTokens accumulates provider token usage on the session.
func (m *SessionManager) AddTokens(id string, n int) {
	_ = m.Update(id, func(s *discussion.Session) error {
		s.TotalTokens += n
		return nil
	})
}

// syncStatus mirrors the session's status fields to the store.
func (m *SessionManager) syncStatus(ctx context.Context, id string) {
	if m.store == nil {
		return
	}
	sess, err := m.Snapshot(id)
	if err != nil {
		return
	}
	if err := m.store.UpdateSessionStatus(ctx, id, sess.Status, sess.Round, sess.TotalTokens); err != nil {
		slog.Warn("status persist failed, continuing in memory", "session_id", id, "error", err)
	}
}

// AdvanceRound bumps the round counter and mirrors it to the store.
func (m *SessionManager) AdvanceRound(ctx context.Context, id string) (int, error) {
	var round int
	err := m.Update(id, func(s *discussion.Session) error {
		round = s.AdvanceRound()
		return nil
	})
	if err != nil {
		return 0, err
	}
	m.syncStatus(ctx, id)
	return round, nil
}

// Complete moves the session to completed.
func (m *SessionManager) Complete(ctx context.Context, id string) error {
	if err := m.Update(id, func(s *discussion.Session) error {
		return s.Complete(m.now().UTC())
	}); err != nil {
		return err
	}
	m.syncStatus(ctx, id)
	return nil
}

// Fail moves the session to failed.
func (m *SessionManager) Fail(ctx context.Context, id string) error {
	if err := m.Update(id, func(s *discussion.Session) error {
		return s.Fail(m.now().UTC())
	}); err != nil {
		return err
	}
	m.syncStatus(ctx, id)
	return nil
}

// Abandon pauses an active session. The session can be resumed later; it
// is not terminal.
func (m *SessionManager) Abandon(ctx context.Context, id string) error {
	if err := m.Update(id, func(s *discussion.Session) error {
		return s.Pause()
	}); err != nil {
		return err
	}
	m.syncStatus(ctx, id)
	return nil
}

// Resume reactivates a paused session.
func (m *SessionManager) Resume(ctx context.Context, id string) error {
	if err := m.Update(id, func(s *discussion.Session) error {
		return s.Resume()
	}); err != nil {
		return err
	}
	m.syncStatus(ctx, id)
	return nil
}

// IsNotFound reports whether err is a missing-session error.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
