package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *discussion.Session) error {
	participants := make([]string, len(sess.Participants))
	for i, p := range sess.Participants {
		participants[i] = string(p)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, topic, project_id, participants, status, round, total_tokens, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sess.ID, sess.Topic, sess.ProjectID, participants, string(sess.Status), sess.Round, sess.TotalTokens, sess.StartedAt)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, m discussion.Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_messages (session_id, agent_id, role, round, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, string(m.AgentID), string(m.Role), m.Round, m.Content, m.Timestamp)
	if err != nil {
		return fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status discussion.Status, round, totalTokens int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET status = $2, round = $3, total_tokens = $4,
		 completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END,
		 updated_at = now()
		 WHERE id = $1`,
		sessionID, string(status), round, totalTokens)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

// GetSession loads a session with its full transcript.
func (s *Store) GetSession(ctx context.Context, id string) (*discussion.Session, error) {
	var (
		sess         discussion.Session
		participants []string
		status       string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic, project_id, participants, status, round, total_tokens, started_at, completed_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.Topic, &sess.ProjectID, &participants, &status, &sess.Round, &sess.TotalTokens, &sess.StartedAt, &sess.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	sess.Status = discussion.Status(status)
	sess.Participants = make([]persona.ID, len(participants))
	for i, p := range participants {
		sess.Participants[i] = persona.ID(p)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT agent_id, role, round, content, created_at
		 FROM session_messages WHERE session_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m     discussion.Message
			agent string
			role  string
		)
		if err := rows.Scan(&agent, &role, &m.Round, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.AgentID = persona.ID(agent)
		m.Role = discussion.Role(role)
		sess.Messages = append(sess.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns session headers (no transcript), newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]discussion.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic, project_id, participants, status, round, total_tokens, started_at, completed_at
		 FROM sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []discussion.Session
	for rows.Next() {
		var (
			sess         discussion.Session
			participants []string
			status       string
		)
		if err := rows.Scan(&sess.ID, &sess.Topic, &sess.ProjectID, &participants, &status, &sess.Round, &sess.TotalTokens, &sess.StartedAt, &sess.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Status = discussion.Status(status)
		sess.Participants = make([]persona.ID, len(participants))
		for i, p := range participants {
			sess.Participants[i] = persona.ID(p)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// --- Summaries and classifications ---

func (s *Store) SaveSummary(ctx context.Context, sessionID string, sum *summary.Summary) error {
	body, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO summaries (session_id, body) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET body = EXCLUDED.body, created_at = now()`,
		sessionID, body)
	if err != nil {
		return fmt.Errorf("save summary for %s: %w", sessionID, err)
	}
	return nil
}

// GetSummary returns the stored summary for a session.
func (s *Store) GetSummary(ctx context.Context, sessionID string) (*summary.Summary, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM summaries WHERE session_id = $1`, sessionID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get summary for %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get summary for %s: %w", sessionID, err)
	}
	var sum summary.Summary
	if err := json.Unmarshal(body, &sum); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	sum.Normalize()
	return &sum, nil
}

func (s *Store) SaveClassification(ctx context.Context, sessionID string, c *decision.Classification) error {
	factors, err := json.Marshal(c.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO classifications (id, session_id, decision_title, level, score, factors, recommendation, fallback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, sessionID, c.DecisionTitle, string(c.Level), c.Score, factors, string(c.Recommendation), c.Fallback, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save classification %s: %w", c.ID, err)
	}
	return nil
}

// ListClassifications returns all classifications for a session in creation order.
func (s *Store) ListClassifications(ctx context.Context, sessionID string) ([]decision.Classification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, decision_title, level, score, factors, recommendation, fallback, created_at
		 FROM classifications WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list classifications for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []decision.Classification
	for rows.Next() {
		var (
			c       decision.Classification
			level   string
			rec     string
			factors []byte
		)
		if err := rows.Scan(&c.ID, &c.DecisionTitle, &level, &c.Score, &factors, &rec, &c.Fallback, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		c.Level = decision.Level(level)
		c.Recommendation = decision.Recommendation(rec)
		if err := json.Unmarshal(factors, &c.Factors); err != nil {
			return nil, fmt.Errorf("unmarshal factors: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Prompt context reads ---

func (s *Store) GetPreferenceProfile(ctx context.Context, projectID string) (string, error) {
	var profile string
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM preference_profiles WHERE project_id = $1`, projectID,
	).Scan(&profile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("preference profile for %s: %w", projectID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("preference profile for %s: %w", projectID, err)
	}
	return profile, nil
}

// SetPreferenceProfile upserts the preference profile for a project.
func (s *Store) SetPreferenceProfile(ctx context.Context, projectID, profile string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO preference_profiles (project_id, profile) VALUES ($1, $2)
		 ON CONFLICT (project_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`,
		projectID, profile)
	if err != nil {
		return fmt.Errorf("set preference profile for %s: %w", projectID, err)
	}
	return nil
}

func (s *Store) RecentDecisionTitles(ctx context.Context, projectID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.decision_title
		 FROM classifications c
		 JOIN sessions s ON s.id = c.session_id
		 WHERE s.project_id = $1
		 ORDER BY c.created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent decisions for %s: %w", projectID, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan decision title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// --- Execution tasks ---

func (s *Store) SaveExecutionTask(ctx context.Context, sessionID string, t *execution.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO execution_tasks (id, session_id, decision_title, action, status, logs, error, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   logs = EXCLUDED.logs,
		   error = EXCLUDED.error,
		   started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at`,
		t.ID, nullIfEmpty(sessionID), t.DecisionTitle, t.Action, string(t.Status), orEmpty(t.Logs), t.Error, t.CreatedAt, t.StartedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("save execution task %s: %w", t.ID, err)
	}
	return nil
}

// --- Helpers ---

// nullIfEmpty returns nil for empty strings (for nullable UUID columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
