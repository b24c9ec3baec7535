package discussion

import (
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain/persona"
)

func TestClampConsensus(t *testing.T) {
	d := &OrchestratorDecision{ConsensusLevel: 140}
	d.ClampConsensus()
	if d.ConsensusLevel != 100 {
		t.Errorf("got %d", d.ConsensusLevel)
	}
	d.ConsensusLevel = -3
	d.ClampConsensus()
	if d.ConsensusLevel != 0 {
		t.Errorf("got %d", d.ConsensusLevel)
	}
}

func TestFallbackRotatesSpeakers(t *testing.T) {
	participants := []persona.ID{"ceo", "cto", "cfo"}
	for round, want := range map[int]persona.ID{1: "cto", 2: "cfo", 3: "ceo"} {
		d := FallbackDecision(participants, round, 6)
		if d.NextAgentID != want {
			t.Errorf("round %d: next = %s, want %s", round, d.NextAgentID, want)
		}
	}
}

func TestFallbackStopsNearBudget(t *testing.T) {
	participants := []persona.ID{"ceo"}
	// 80% of 6 rounds: continue through round 4, stop at round 5.
	if d := FallbackDecision(participants, 4, 6); !d.ShouldContinue {
		t.Error("round 4 of 6 should continue")
	}
	if d := FallbackDecision(participants, 5, 6); d.ShouldContinue {
		t.Error("round 5 of 6 should stop")
	}
}
