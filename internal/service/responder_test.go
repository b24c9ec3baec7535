package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/port/completion"
)

func TestGenerateStreamsAndAssembles(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		{chunks: []string{"We should ", "pilot first."}, usage: completion.Usage{TokensIn: 100, TokensOut: 12}},
	}}
	g := NewResponseGenerator(provider, testRegistry(t), nil, config.Defaults().Discussion)

	var deltas []string
	turn, err := g.Generate(context.Background(), sessionWithMessages(), "cto", "focus on risk", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if turn.Content != "We should pilot first." {
		t.Errorf("content = %q", turn.Content)
	}
	if len(deltas) != 2 {
		t.Errorf("got %d deltas, want 2", len(deltas))
	}
	if turn.TokensIn != 100 || turn.TokensOut != 12 {
		t.Errorf("usage = %d/%d", turn.TokensIn, turn.TokensOut)
	}
}

func TestGeneratePromptCarriesPersonaAndGuidance(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		{chunks: []string{"ok"}},
	}}
	g := NewResponseGenerator(provider, testRegistry(t), nil, config.Defaults().Discussion)

	_, err := g.Generate(context.Background(), sessionWithMessages(), "cfo", "push on the budget", func(string) error { return nil })
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	req := provider.calls[0]
	if !strings.Contains(req.User, "push on the budget") {
		t.Error("guidance missing from user prompt")
	}
	if !strings.Contains(req.System, "live executive discussion") {
		t.Error("persona framing missing from system prompt")
	}
}

func TestGenerateSinkErrorCancels(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		{chunks: []string{"a", "b", "c", "d"}},
	}}
	g := NewResponseGenerator(provider, testRegistry(t), nil, config.Defaults().Discussion)

	sinkErr := errors.New("client gone")
	calls := 0
	_, err := g.Generate(context.Background(), sessionWithMessages(), "ceo", "", func(string) error {
		calls++
		if calls == 2 {
			return sinkErr
		}
		return nil
	})
	if err == nil || !errors.Is(err, sinkErr) {
		t.Fatalf("err = %v, want sink error", err)
	}
}

func TestGenerateUnknownAgent(t *testing.T) {
	g := NewResponseGenerator(&scriptedProvider{}, testRegistry(t), nil, config.Defaults().Discussion)

	if _, err := g.Generate(context.Background(), sessionWithMessages(), "board-ghost", "", func(string) error { return nil }); err == nil {
		t.Fatal("expected error for unknown persona")
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		{chunks: []string{"  "}},
	}}
	g := NewResponseGenerator(provider, testRegistry(t), nil, config.Defaults().Discussion)

	if _, err := g.Generate(context.Background(), sessionWithMessages(), "ceo", "", func(string) error { return nil }); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestResponderPromptAcceptsRegistryPersona(t *testing.T) {
	// buildResponderPrompt consumes registry.Get's result directly; the
	// persona's identity must land in the system prompt.
	reg := testRegistry(t)
	p, err := reg.Get("cto")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	system, user := buildResponderPrompt(sessionWithMessages(), p, "", "", nil, 10, reg)
	if !strings.Contains(system, p.Name) || !strings.Contains(system, p.Title) {
		t.Errorf("system prompt missing persona identity: %q", system)
	}
	if user == "" {
		t.Error("user prompt is empty")
	}
}
