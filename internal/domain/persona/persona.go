// Package persona defines the static registry of discussion agents.
// Personas are read-only at runtime; sessions validate their participant
// set against the registry at creation time.
package persona

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ID identifies a configured persona. An ID that is not present in the
// registry is a caller bug surfaced at session creation, never silently
// substituted at response time.
type ID string

// Persona is the static metadata for one discussion agent.
type Persona struct {
	ID       ID     `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Title    string `yaml:"title" json:"title"`
	Category string `yaml:"category" json:"category"`
	Prompt   string `yaml:"prompt" json:"-"`
}

// Registry holds the configured persona set. It is immutable after creation.
type Registry struct {
	byID  map[ID]Persona
	order []ID
}

// NewRegistry builds a registry from a persona list.
// Duplicate or empty ids are rejected.
func NewRegistry(personas []Persona) (*Registry, error) {
	r := &Registry{byID: make(map[ID]Persona, len(personas))}
	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona %q: empty id", p.Name)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona %q: duplicate id", p.ID)
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("persona registry is empty")
	}
	return r, nil
}

// Load reads a YAML persona file and builds a registry from it.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read personas %s: %w", path, err)
	}

	var doc struct {
		Personas []Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse personas %s: %w", path, err)
	}
	return NewRegistry(doc.Personas)
}

// Get returns the persona for id. Unknown ids are an error.
func (r *Registry) Get(id ID) (Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q", id)
	}
	return p, nil
}

// Has reports whether id is configured.
func (r *Registry) Has(id ID) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns every persona in registration order.
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns all configured ids in registration order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Validate checks that every id in ids is configured. The returned error
// names the missing ids.
func (r *Registry) Validate(ids []ID) error {
	var missing []string
	for _, id := range ids {
		if !r.Has(id) {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("unknown personas: %v", missing)
	}
	return nil
}

// Defaults returns the built-in executive roster used when no persona file
// is configured.
func Defaults() *Registry {
	r, err := NewRegistry([]Persona{
		{
			ID: "ceo", Name: "Alexandra Reyes", Title: "Chief Executive Officer", Category: "strategy",
			Prompt: "You are the CEO. You weigh long-term strategy, market position, and organizational impact. You push for clarity on goals and force trade-offs into the open.",
		},
		{
			ID: "cto", Name: "Marcus Chen", Title: "Chief Technology Officer", Category: "technology",
			Prompt: "You are the CTO. You evaluate technical feasibility, architecture risk, and engineering cost. You are skeptical of timelines and explicit about technical debt.",
		},
		{
			ID: "cfo", Name: "Priya Nair", Title: "Chief Financial Officer", Category: "finance",
			Prompt: "You are the CFO. You quantify financial impact, cash-flow implications, and budget risk. You demand numbers before commitments.",
		},
		{
			ID: "coo", Name: "Daniel Okafor", Title: "Chief Operating Officer", Category: "operations",
			Prompt: "You are the COO. You focus on execution: staffing, process, dependencies, and what will actually break when the plan meets reality.",
		},
		{
			ID: "cmo", Name: "Sofia Lindqvist", Title: "Chief Marketing Officer", Category: "marketing",
			Prompt: "You are the CMO. You represent the customer and the market narrative. You challenge assumptions about demand and positioning.",
		},
		{
			ID: "counsel", Name: "James Whitmore", Title: "General Counsel", Category: "legal",
			Prompt: "You are General Counsel. You flag regulatory exposure, contractual constraints, and liability. You are precise about what requires review before execution.",
		},
	})
	if err != nil {
		panic(err) // built-in roster is static; a failure here is a programming error
	}
	return r
}
