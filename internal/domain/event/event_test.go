package event

import (
	"encoding/json"
	"testing"
)

func TestMarshalFlattensPayload(t *testing.T) {
	ev := New(TypeRoundStart, RoundStart{SessionID: "s1", Round: 3})
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["type"] != "round_start" {
		t.Errorf("type = %v", m["type"])
	}
	if m["session_id"] != "s1" {
		t.Errorf("session_id = %v", m["session_id"])
	}
	if m["round"] != float64(3) {
		t.Errorf("round = %v", m["round"])
	}
	if _, nested := m["payload"]; nested {
		t.Error("payload must be flattened, not nested")
	}
}

func TestMarshalNilPayload(t *testing.T) {
	raw, err := json.Marshal(New(TypeSummaryStart, nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `{"type":"summary_start"}` {
		t.Errorf("got %s", raw)
	}
}

func TestMarshalRejectsNonObjectPayload(t *testing.T) {
	if _, err := json.Marshal(New(TypeError, "just a string")); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}
