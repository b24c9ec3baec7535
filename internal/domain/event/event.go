// Package event defines the domain events streamed to clients during a
// discussion. Events serialize as a flat JSON object carrying a "type"
// discriminator alongside the payload fields.
package event

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of discussion event.
type Type string

// Canonical event types, in the order they can occur within one session
// lifecycle. The stream is closed exactly once, on TypeDiscussionComplete
// or TypeError.
const (
	TypeDiscussionInit         Type = "discussion_init"
	TypeUserMessage            Type = "user_message"
	TypeRoundStart             Type = "round_start"
	TypeOrchestratorDecision   Type = "orchestrator_decision"
	TypeExpertSpeaking         Type = "expert_speaking"
	TypeExpertMessageDelta     Type = "expert_message_delta"
	TypeExpertMessageComplete  Type = "expert_message_complete"
	TypeRoundComplete          Type = "round_complete"
	TypeDiscussionConverging   Type = "discussion_converging"
	TypeSummaryStart           Type = "summary_start"
	TypeSummaryComplete        Type = "summary_complete"
	TypeClassificationStart    Type = "classification_start"
	TypeDecisionClassified     Type = "decision_classified"
	TypeClassificationComplete Type = "classification_complete"
	TypeDiscussionComplete     Type = "discussion_complete"
	TypeError                  Type = "error"
)

// Event is one domain event. Payload must marshal to a JSON object; its
// fields are flattened next to "type" in the serialized frame.
type Event struct {
	Type    Type
	Payload any
}

// New wraps a payload in an event.
func New(t Type, payload any) Event {
	return Event{Type: t, Payload: payload}
}

// MarshalJSON flattens the payload fields into a single object with the
// "type" discriminator.
func (e Event) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("event %s payload is not an object: %w", e.Type, err)
		}
	}
	typeRaw, err := json.Marshal(string(e.Type))
	if err != nil {
		return nil, err
	}
	fields["type"] = typeRaw
	return json.Marshal(fields)
}
