package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/event"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

func newDiscussionService(provider *scriptedProvider, store *memStore) (*DiscussionService, *SessionManager) {
	reg := persona.Defaults()
	cfg := config.Defaults().Discussion
	sessions := NewSessionManager(reg, store)
	tracker := NewExecutionTracker(store, nil, provider, cfg)
	svc := NewDiscussionService(
		sessions,
		NewTurnOrchestrator(provider, reg, cfg),
		NewResponseGenerator(provider, reg, nil, cfg),
		NewClassifier(provider, cfg),
		NewSummarizer(provider, reg, cfg),
		tracker,
		reg,
		store,
		nil,
		cfg,
	)
	return svc, sessions
}

func decisionReply(agent string, cont bool, consensus int) scriptedReply {
	c := "false"
	if cont {
		c = "true"
	}
	return scriptedReply{content: `{"next_agent_id":"` + agent + `","should_continue":` + c + `,"consensus_level":` + strconv.Itoa(consensus) + `}`}
}

func TestRunConvergesAfterOneRound(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		decisionReply("ceo", true, 20),                 // round 1: ceo speaks
		{chunks: []string{"Ship ", "the pilot."}},      // ceo turn
		decisionReply("cfo", false, 90),                // round 2: converged
		{content: `{"summary":"pilot agreed","key_decisions":[{"decision":"run a pilot","proposed_by":"ceo"}],"action_items":[],"open_questions":[],"consensus":"high","disagreements":[]}`},
		{content: `{"factors":{"impact_scope":{"score":5,"reason":"x"},"reversibility":{"score":3,"reason":"x"},"financial_impact":{"score":4,"reason":"x"},"security_impact":{"score":2,"reason":"x"},"legal_risk":{"score":1,"reason":"x"}}}`},
	}}
	store := newMemStore()
	svc, sessions := newDiscussionService(provider, store)
	pub := &capturingPublisher{}

	err := svc.Run(context.Background(), StartRequest{
		Topic:        "pilot usage pricing",
		Participants: []persona.ID{"ceo", "cfo"},
	}, pub)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !pub.closed {
		t.Error("stream must be closed after the run")
	}

	want := []event.Type{
		event.TypeDiscussionInit,
		event.TypeRoundStart,
		event.TypeOrchestratorDecision,
		event.TypeExpertSpeaking,
		event.TypeExpertMessageDelta,
		event.TypeExpertMessageDelta,
		event.TypeExpertMessageComplete,
		event.TypeRoundComplete,
		event.TypeRoundStart,
		event.TypeOrchestratorDecision,
		event.TypeDiscussionConverging,
		event.TypeSummaryStart,
		event.TypeSummaryComplete,
		event.TypeClassificationStart,
		event.TypeDecisionClassified,
		event.TypeClassificationComplete,
		event.TypeDiscussionComplete,
	}
	got := pub.types()
	if len(got) != len(want) {
		t.Fatalf("event sequence length = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Score 15 is L0_AUTO, so a follow-up task is created.
	inits := pub.byType(event.TypeDiscussionInit)
	init := inits[0].Payload.(event.DiscussionInit)
	sess, err := sessions.Snapshot(init.SessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if sess.Status != discussion.StatusCompleted {
		t.Errorf("session status = %s, want completed", sess.Status)
	}
	if len(store.tasks) != 1 {
		t.Errorf("auto-executable decision should create one task, got %d", len(store.tasks))
	}
	if store.summaries[init.SessionID] == nil {
		t.Error("summary was not persisted")
	}
	if len(store.classifications[init.SessionID]) != 1 {
		t.Error("classification was not persisted")
	}
}

func TestRunStopsAtRoundCap(t *testing.T) {
	// The orchestrator always wants to continue; the cap decides.
	var replies []scriptedReply
	for i := 0; i < 2; i++ {
		replies = append(replies, decisionReply("ceo", true, 10))
		replies = append(replies, scriptedReply{chunks: []string{"more debate"}})
	}
	replies = append(replies,
		scriptedReply{content: `{"summary":"no outcome","key_decisions":[],"action_items":[],"open_questions":[],"consensus":"low","disagreements":[]}`},
	)
	provider := &scriptedProvider{replies: replies}
	svc, sessions := newDiscussionService(provider, newMemStore())
	pub := &capturingPublisher{}

	err := svc.Run(context.Background(), StartRequest{
		Topic:        "endless debate",
		Participants: []persona.ID{"ceo", "cto"},
		MaxRounds:    2,
	}, pub)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := len(pub.byType(event.TypeRoundStart)); n != 2 {
		t.Errorf("rounds = %d, want 2", n)
	}
	// Cap exhaustion is not convergence.
	if n := len(pub.byType(event.TypeDiscussionConverging)); n != 0 {
		t.Errorf("got %d converging events for cap exhaustion, want 0", n)
	}

	// The round counter stops at the cap, and the terminal frame agrees.
	init := pub.byType(event.TypeDiscussionInit)[0].Payload.(event.DiscussionInit)
	sess, err := sessions.Snapshot(init.SessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if sess.Round != 2 {
		t.Errorf("final round = %d, want the cap 2", sess.Round)
	}
	completes := pub.byType(event.TypeDiscussionComplete)
	if len(completes) != 1 {
		t.Fatalf("complete events = %d, want 1", len(completes))
	}
	if got := completes[0].Payload.(event.DiscussionComplete).Rounds; got != 2 {
		t.Errorf("discussion_complete rounds = %d, want 2", got)
	}
}

func TestRunProviderFailureFailsSession(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		decisionReply("ceo", true, 10),
		{err: errors.New("proxy down")}, // turn generation fails
	}}
	svc, sessions := newDiscussionService(provider, newMemStore())
	pub := &capturingPublisher{}

	err := svc.Run(context.Background(), StartRequest{
		Topic:        "doomed",
		Participants: []persona.ID{"ceo"},
	}, pub)
	if err == nil {
		t.Fatal("expected error from failed turn")
	}

	errs := pub.byType(event.TypeError)
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	init := pub.byType(event.TypeDiscussionInit)[0].Payload.(event.DiscussionInit)
	sess, _ := sessions.Snapshot(init.SessionID)
	if sess.Status != discussion.StatusFailed {
		t.Errorf("session status = %s, want failed", sess.Status)
	}
}

func TestRunClientDisconnectLeavesSessionActive(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		decisionReply("ceo", true, 10),
		{chunks: []string{"a", "b", "c"}},
	}}
	svc, sessions := newDiscussionService(provider, newMemStore())
	pub := &capturingPublisher{failAt: event.TypeExpertMessageDelta}

	err := svc.Run(context.Background(), StartRequest{
		Topic:        "interrupted",
		Participants: []persona.ID{"ceo"},
	}, pub)
	if err != nil {
		t.Fatalf("disconnect must not surface as an error: %v", err)
	}

	init := pub.byType(event.TypeDiscussionInit)[0].Payload.(event.DiscussionInit)
	sess, _ := sessions.Snapshot(init.SessionID)
	if sess.Status != discussion.StatusActive {
		t.Errorf("session status = %s, want active after disconnect", sess.Status)
	}
}

func TestRunEmitsInitialUserMessage(t *testing.T) {
	provider := &scriptedProvider{replies: []scriptedReply{
		decisionReply("cfo", false, 80),
		{content: `{"summary":"","key_decisions":[],"action_items":[],"open_questions":[],"consensus":"","disagreements":[]}`},
	}}
	svc, _ := newDiscussionService(provider, newMemStore())
	pub := &capturingPublisher{}

	err := svc.Run(context.Background(), StartRequest{
		Topic:          "pricing",
		Participants:   []persona.ID{"ceo", "cfo"},
		InitialMessage: "budget is capped at 50k",
	}, pub)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := pub.byType(event.TypeUserMessage)
	if len(msgs) != 1 {
		t.Fatalf("user_message events = %d, want 1", len(msgs))
	}
	if msgs[0].Payload.(event.UserMessage).Content != "budget is capped at 50k" {
		t.Errorf("payload = %+v", msgs[0].Payload)
	}
}

func TestInjectUserMessageReachesLiveStream(t *testing.T) {
	svc, sessions := newDiscussionService(&scriptedProvider{}, newMemStore())
	sess, err := sessions.Create(context.Background(), "topic", "", []persona.ID{"ceo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pub := &capturingPublisher{}
	svc.registerStream(sess.ID, pub)
	defer svc.unregisterStream(sess.ID)

	if err := svc.InjectUserMessage(context.Background(), sess.ID, "what about churn?"); err != nil {
		t.Fatalf("InjectUserMessage: %v", err)
	}
	if len(pub.byType(event.TypeUserMessage)) != 1 {
		t.Error("expected user_message on the live stream")
	}
	snap, _ := sessions.Snapshot(sess.ID)
	if len(snap.Messages) != 1 || snap.Messages[0].Role != discussion.RoleUser {
		t.Errorf("transcript = %+v", snap.Messages)
	}
}

func TestRunNotifiesElevatedDecisionsOnly(t *testing.T) {
	lowRisk := `{"factors":{"impact_scope":{"score":3},"reversibility":{"score":3},"financial_impact":{"score":3},"security_impact":{"score":3},"legal_risk":{"score":3}}}`
	highRisk := `{"factors":{"impact_scope":{"score":15},"reversibility":{"score":12},"financial_impact":{"score":14},"security_impact":{"score":10},"legal_risk":{"score":9}}}`
	provider := &scriptedProvider{replies: []scriptedReply{
		decisionReply("ceo", false, 95),
		{content: `{"summary":"two calls","key_decisions":[{"decision":"rename the newsletter","proposed_by":"ceo"},{"decision":"acquire a competitor","proposed_by":"cfo"}],"action_items":[],"open_questions":[],"consensus":"high","disagreements":[]}`},
		{content: lowRisk},
		{content: highRisk},
	}}
	svc, _ := newDiscussionService(provider, newMemStore())
	alerts := &recordingNotifier{}
	svc.SetNotifiers([]notifier.Notifier{alerts})
	pub := &capturingPublisher{}

	err := svc.Run(context.Background(), StartRequest{
		Topic:        "quarterly review",
		Participants: []persona.ID{"ceo", "cfo"},
	}, pub)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(alerts.sent) != 1 {
		t.Fatalf("alerts = %d, want 1 (only the elevated decision)", len(alerts.sent))
	}
	if !strings.Contains(alerts.sent[0].Message, "acquire a competitor") {
		t.Errorf("alert = %+v", alerts.sent[0])
	}
	if alerts.sent[0].Source != "decision.classified" {
		t.Errorf("source = %q", alerts.sent[0].Source)
	}
}

func TestActionForPrefersExplicitLink(t *testing.T) {
	sum := &summary.Summary{
		ActionItems: []summary.ActionItem{
			{Action: "rewrite the pricing page", ForDecision: "Adopt usage based pricing"},
			{Action: "schedule a migration freeze window"},
		},
	}

	// An explicit for_decision link wins even when the wording differs.
	if got := actionFor(sum, "adopt usage based pricing"); got != "rewrite the pricing page" {
		t.Errorf("actionFor = %q, want the linked action", got)
	}
	// Unlinked items still match by substring.
	if got := actionFor(sum, "Schedule a migration freeze window before cutover"); got != "schedule a migration freeze window" {
		t.Errorf("actionFor = %q, want the substring match", got)
	}
	// No match falls back to the decision text itself.
	if got := actionFor(sum, "hire two engineers"); got != "hire two engineers" {
		t.Errorf("actionFor = %q, want the decision text", got)
	}
}
