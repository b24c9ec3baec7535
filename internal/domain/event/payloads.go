package event

import (
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
)

// DiscussionInit opens the stream for a new or resumed session.
type DiscussionInit struct {
	SessionID    string       `json:"session_id"`
	Topic        string       `json:"topic"`
	Participants []persona.ID `json:"participants"`
	MaxRounds    int          `json:"max_rounds"`
}

// UserMessage echoes a user-injected message into the stream.
type UserMessage struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// RoundStart marks the beginning of an orchestration round.
type RoundStart struct {
	SessionID string `json:"session_id"`
	Round     int    `json:"round"`
}

// OrchestratorDecision reports the speaker selection for a round.
type OrchestratorDecision struct {
	SessionID      string     `json:"session_id"`
	Round          int        `json:"round"`
	NextAgentID    persona.ID `json:"next_agent_id"`
	ShouldContinue bool       `json:"should_continue"`
	ConsensusLevel int        `json:"consensus_level"`
	KeyInsights    []string   `json:"key_insights,omitempty"`
	Fallback       bool       `json:"fallback,omitempty"`
}

// ExpertSpeaking announces which agent is about to produce a message.
type ExpertSpeaking struct {
	SessionID string     `json:"session_id"`
	Round     int        `json:"round"`
	AgentID   persona.ID `json:"agent_id"`
	Name      string     `json:"name,omitempty"`
	Title     string     `json:"title,omitempty"`
}

// ExpertMessageDelta carries one incremental chunk of a streaming response.
type ExpertMessageDelta struct {
	SessionID string     `json:"session_id"`
	AgentID   persona.ID `json:"agent_id"`
	Delta     string     `json:"delta"`
}

// ExpertMessageComplete carries the full assembled message for a turn.
type ExpertMessageComplete struct {
	SessionID string     `json:"session_id"`
	Round     int        `json:"round"`
	AgentID   persona.ID `json:"agent_id"`
	Content   string     `json:"content"`
	TokensIn  int        `json:"tokens_in,omitempty"`
	TokensOut int        `json:"tokens_out,omitempty"`
}

// RoundComplete marks the end of a round.
type RoundComplete struct {
	SessionID string `json:"session_id"`
	Round     int    `json:"round"`
}

// DiscussionConverging signals that the orchestrator judged further rounds
// would not add value.
type DiscussionConverging struct {
	SessionID      string `json:"session_id"`
	Round          int    `json:"round"`
	ConsensusLevel int    `json:"consensus_level"`
}

// SummaryStart marks the beginning of summary generation.
type SummaryStart struct {
	SessionID string `json:"session_id"`
}

// SummaryComplete carries the structured summary.
type SummaryComplete struct {
	SessionID string           `json:"session_id"`
	Summary   *summary.Summary `json:"summary"`
}

// ClassificationStart marks the beginning of classifying one key decision.
type ClassificationStart struct {
	SessionID string `json:"session_id"`
	Decision  string `json:"decision"`
}

// DecisionClassified carries the risk classification for one decision.
type DecisionClassified struct {
	SessionID      string                   `json:"session_id"`
	Classification *decision.Classification `json:"classification"`
}

// ClassificationComplete marks the end of the classification pass.
type ClassificationComplete struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// DiscussionComplete closes the stream for a finished session.
type DiscussionComplete struct {
	SessionID   string `json:"session_id"`
	Rounds      int    `json:"rounds"`
	TotalTokens int    `json:"total_tokens"`
}

// Error is the single terminal error frame; the stream closes after it.
type Error struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}
