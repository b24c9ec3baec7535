package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/port/completion"
)

// Turn is one generated agent contribution.
type Turn struct {
	Content   string
	TokensIn  int
	TokensOut int
}

// ResponseGenerator produces persona turns. Output streams through the
// caller's delta sink as it arrives; a sink error aborts the provider call.
type ResponseGenerator struct {
	provider completion.Provider
	registry *persona.Registry
	profiles *ProfileService
	cfg      config.Discussion
}

// NewResponseGenerator creates a response generator.
func NewResponseGenerator(provider completion.Provider, registry *persona.Registry, profiles *ProfileService, cfg config.Discussion) *ResponseGenerator {
	return &ResponseGenerator{provider: provider, registry: registry, profiles: profiles, cfg: cfg}
}

// Generate streams one turn for agentID. onDelta receives each content
// chunk; returning an error from it cancels the provider call.
func (g *ResponseGenerator) Generate(ctx context.Context, sess *discussion.Session, agentID persona.ID, guidance string, onDelta func(string) error) (*Turn, error) {
	p, err := g.registry.Get(agentID)
	if err != nil {
		return nil, err
	}

	var (
		profile string
		memory  []string
	)
	if g.profiles != nil {
		profile = g.profiles.Profile(ctx, sess.ProjectID)
		memory = g.profiles.RecentDecisions(ctx, sess.ProjectID)
	}

	system, user := buildResponderPrompt(sess, p, guidance, profile, memory, g.cfg.HistoryWindow, g.registry)

	// Cancel the provider stream the moment the sink rejects a delta.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deltas, err := g.provider.Stream(ctx, completion.Request{
		System:      system,
		User:        user,
		Model:       g.cfg.ResponderModel,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokensPerTurn,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s turn: %w", agentID, err)
	}

	turn := &Turn{}
	var content strings.Builder
	var sinkErr error
	for d := range deltas {
		if d.Err != nil {
			return nil, fmt.Errorf("agent %s turn: %w", agentID, d.Err)
		}
		if d.Usage != nil {
			turn.TokensIn = d.Usage.TokensIn
			turn.TokensOut = d.Usage.TokensOut
		}
		if d.Content == "" {
			continue
		}
		if sinkErr != nil {
			continue // drain after cancel
		}
		content.WriteString(d.Content)
		if err := onDelta(d.Content); err != nil {
			sinkErr = err
			cancel()
		}
	}
	if sinkErr != nil {
		return nil, fmt.Errorf("agent %s turn: %w", agentID, sinkErr)
	}

	turn.Content = strings.TrimSpace(content.String())
	if turn.Content == "" {
		return nil, fmt.Errorf("agent %s turn: empty response", agentID)
	}
	return turn, nil
}
