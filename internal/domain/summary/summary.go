// Package summary defines the structured digest extracted from a full
// discussion transcript.
package summary

// KeyDecision is one decision surfaced by the summarizer. Each entry is
// later classified for execution risk.
type KeyDecision struct {
	Decision    string   `json:"decision"`
	ProposedBy  string   `json:"proposed_by,omitempty"`
	SupportedBy []string `json:"supported_by,omitempty"`
}

// ActionItem is a follow-up task with an owner. ForDecision names the key
// decision the item implements, when the summarizer can attribute it.
type ActionItem struct {
	Action      string `json:"action"`
	Owner       string `json:"owner,omitempty"`
	Priority    string `json:"priority,omitempty"`
	ForDecision string `json:"for_decision,omitempty"`
}

// Summary is the structured output of the summary generator over the full
// (untruncated) transcript.
type Summary struct {
	Summary       string        `json:"summary"`
	KeyDecisions  []KeyDecision `json:"key_decisions"`
	ActionItems   []ActionItem  `json:"action_items"`
	OpenQuestions []string      `json:"open_questions"`
	Consensus     string        `json:"consensus"`
	Disagreements []string      `json:"disagreements"`
}

// Empty returns a valid zero summary. Used for empty transcripts, which
// must not fail summarization.
func Empty() *Summary {
	return &Summary{
		KeyDecisions:  []KeyDecision{},
		ActionItems:   []ActionItem{},
		OpenQuestions: []string{},
		Disagreements: []string{},
	}
}

// Normalize replaces nil slices so the summary always serializes with
// empty-but-valid collections.
func (s *Summary) Normalize() {
	if s.KeyDecisions == nil {
		s.KeyDecisions = []KeyDecision{}
	}
	if s.ActionItems == nil {
		s.ActionItems = []ActionItem{}
	}
	if s.OpenQuestions == nil {
		s.OpenQuestions = []string{}
	}
	if s.Disagreements == nil {
		s.Disagreements = []string{}
	}
}
