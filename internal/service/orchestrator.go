package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/llmjson"
	"github.com/Strob0t/Boardroom/internal/port/completion"
)

// TurnOrchestrator selects the next speaker each round. It never fails a
// discussion: any provider or parse problem degrades to the deterministic
// round-robin fallback.
type TurnOrchestrator struct {
	provider completion.Provider
	registry *persona.Registry
	cfg      config.Discussion
}

// NewTurnOrchestrator creates a turn orchestrator.
func NewTurnOrchestrator(provider completion.Provider, registry *persona.Registry, cfg config.Discussion) *TurnOrchestrator {
	return &TurnOrchestrator{provider: provider, registry: registry, cfg: cfg}
}

// Decide returns the speaker decision for the session's current round and
// whether the fallback path produced it.
func (o *TurnOrchestrator) Decide(ctx context.Context, sess *discussion.Session, maxRounds int) (*discussion.OrchestratorDecision, bool) {
	system, user := buildOrchestratorPrompt(sess, o.registry, maxRounds)

	result, err := o.provider.Complete(ctx, completion.Request{
		System:      system,
		User:        user,
		Model:       o.cfg.OrchestratorModel,
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		slog.Warn("orchestrator call failed, using round-robin fallback",
			"session_id", sess.ID, "round", sess.Round, "error", err)
		return discussion.FallbackDecision(sess.Participants, sess.Round, maxRounds), true
	}

	decision, err := llmjson.Decode[discussion.OrchestratorDecision](result.Content)
	if err != nil {
		slog.Warn("orchestrator output unparseable, using round-robin fallback",
			"session_id", sess.ID, "round", sess.Round,
			"error", err, "content", truncate(result.Content, 200))
		return discussion.FallbackDecision(sess.Participants, sess.Round, maxRounds), true
	}
	decision.ClampConsensus()

	// A decision naming a non-participant is as unusable as no decision.
	if !contains(sess.Participants, decision.NextAgentID) {
		slog.Warn("orchestrator selected non-participant, using round-robin fallback",
			"session_id", sess.ID, "round", sess.Round, "agent_id", decision.NextAgentID)
		return discussion.FallbackDecision(sess.Participants, sess.Round, maxRounds), true
	}

	return &decision, false
}

func contains(ids []persona.ID, id persona.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
