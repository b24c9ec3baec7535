package persona

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsRoster(t *testing.T) {
	r := Defaults()
	ids := r.IDs()
	if len(ids) != 6 {
		t.Fatalf("roster size = %d, want 6", len(ids))
	}
	for _, id := range []ID{"ceo", "cto", "cfo", "coo", "cmo", "counsel"} {
		if !r.Has(id) {
			t.Errorf("missing %s", id)
		}
	}
	p, err := r.Get("cfo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Title != "Chief Financial Officer" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Persona{
		{ID: "a", Name: "A"},
		{ID: "a", Name: "B"},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRegistryRejectsEmptyID(t *testing.T) {
	if _, err := NewRegistry([]Persona{{Name: "nameless"}}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestNewRegistryRejectsEmptySet(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func TestValidateNamesMissing(t *testing.T) {
	r := Defaults()
	err := r.Validate([]ID{"ceo", "board-ghost", "cto", "advisor"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "advisor") || !strings.Contains(err.Error(), "board-ghost") {
		t.Errorf("err = %v", err)
	}
	if strings.Contains(err.Error(), "ceo") {
		t.Errorf("known id reported missing: %v", err)
	}
}

func TestAllPreservesOrder(t *testing.T) {
	r, err := NewRegistry([]Persona{
		{ID: "z", Name: "Z"},
		{ID: "a", Name: "A"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	all := r.All()
	if all[0].ID != "z" || all[1].ID != "a" {
		t.Errorf("order = %v, %v", all[0].ID, all[1].ID)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `
personas:
  - id: advisor
    name: Dana Ortiz
    title: Strategic Advisor
    category: strategy
    prompt: You advise on long-term positioning.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := r.Get("advisor")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "Dana Ortiz" || p.Prompt == "" {
		t.Errorf("persona = %+v", p)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestPromptNotSerialized(t *testing.T) {
	// Prompts are internal; the API must never leak them.
	p := Persona{ID: "x", Name: "X", Prompt: "secret system prompt"}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Errorf("prompt leaked: %s", raw)
	}
}
