package discussion

import "github.com/Strob0t/Boardroom/internal/domain/persona"

// OrchestratorDecision is the per-round output of the turn orchestrator:
// who speaks next and whether the discussion should continue. It is
// ephemeral and never persisted as its own entity.
type OrchestratorDecision struct {
	NextAgentID    persona.ID `json:"next_agent_id"`
	GuidancePrompt string     `json:"guidance_prompt"`
	ShouldContinue bool       `json:"should_continue"`
	ConsensusLevel int        `json:"consensus_level"`
	KeyInsights    []string   `json:"key_insights,omitempty"`
}

// ClampConsensus bounds the consensus level to [0,100].
func (d *OrchestratorDecision) ClampConsensus() {
	if d.ConsensusLevel < 0 {
		d.ConsensusLevel = 0
	}
	if d.ConsensusLevel > 100 {
		d.ConsensusLevel = 100
	}
}

// FallbackDecision is the deterministic policy used whenever the provider
// returns malformed output: rotate speakers by round and stop at 80% of the
// round budget. It never selects an agent outside the participant set.
func FallbackDecision(participants []persona.ID, round, maxRounds int) *OrchestratorDecision {
	next := participants[round%len(participants)]
	return &OrchestratorDecision{
		NextAgentID:    next,
		ShouldContinue: float64(round) < float64(maxRounds)*0.8,
		ConsensusLevel: 0,
	}
}
