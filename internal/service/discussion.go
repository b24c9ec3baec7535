package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	bdotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/event"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
	"github.com/Strob0t/Boardroom/internal/port/stream"
)

// StartRequest describes a new discussion.
type StartRequest struct {
	Topic          string       `json:"topic"`
	ProjectID      string       `json:"project_id,omitempty"`
	Participants   []persona.ID `json:"participants,omitempty"`
	MaxRounds      int          `json:"max_rounds,omitempty"`
	InitialMessage string       `json:"initial_message,omitempty"`
}

// DiscussionService drives a full discussion: orchestrated rounds, summary,
// risk classification and follow-up task creation, publishing every event
// to the caller's stream as it happens.
type DiscussionService struct {
	sessions     *SessionManager
	orchestrator *TurnOrchestrator
	responder    *ResponseGenerator
	classifier   *Classifier
	summarizer   *Summarizer
	tracker      *ExecutionTracker
	registry     *persona.Registry
	store        database.Store
	broadcaster  broadcast.Broadcaster
	cfg          config.Discussion
	metrics      *bdotel.Metrics
	notifiers    []notifier.Notifier

	mu      sync.Mutex
	streams map[string]stream.Publisher
}

// NewDiscussionService wires the discussion engine. store, broadcaster and
// tracker may be nil in tests.
func NewDiscussionService(
	sessions *SessionManager,
	orchestrator *TurnOrchestrator,
	responder *ResponseGenerator,
	classifier *Classifier,
	summarizer *Summarizer,
	tracker *ExecutionTracker,
	registry *persona.Registry,
	store database.Store,
	broadcaster broadcast.Broadcaster,
	cfg config.Discussion,
) *DiscussionService {
	return &DiscussionService{
		sessions:     sessions,
		orchestrator: orchestrator,
		responder:    responder,
		classifier:   classifier,
		summarizer:   summarizer,
		tracker:      tracker,
		registry:     registry,
		store:        store,
		broadcaster:  broadcaster,
		cfg:          cfg,
		streams:      make(map[string]stream.Publisher),
	}
}

// SetMetrics attaches metric instruments. Safe to leave unset.
func (d *DiscussionService) SetMetrics(m *bdotel.Metrics) {
	d.metrics = m
}

// SetNotifiers attaches alert channels for decisions classified
// L1_NOTIFY or higher.
func (d *DiscussionService) SetNotifiers(ns []notifier.Notifier) {
	d.notifiers = ns
}

// notifyDecision pushes one classified decision to every configured
// channel. Delivery is best effort.
func (d *DiscussionService) notifyDecision(ctx context.Context, c *decision.Classification) {
	if len(d.notifiers) == 0 || c.Level == decision.LevelAuto {
		return
	}
	n := notifier.Notification{
		Title:   fmt.Sprintf("Decision classified %s", c.Level),
		Message: fmt.Sprintf("%s (risk score %d, recommendation %s)", c.DecisionTitle, c.Score, c.Recommendation),
		Level:   notificationSeverity(c.Level),
		Source:  "decision.classified",
	}
	for _, target := range d.notifiers {
		if err := target.Send(ctx, n); err != nil {
			slog.Warn("decision alert failed", "channel", target.Name(), "error", err)
		}
	}
}

func notificationSeverity(level decision.Level) string {
	switch level {
	case decision.LevelCritical:
		return "error"
	case decision.LevelConfirm:
		return "warning"
	default:
		return "info"
	}
}

// errClientGone marks a publisher write failure: the client disconnected.
var errClientGone = errors.New("client disconnected")

// publish sends one event to the session stream and mirrors it to the
// observer broadcast. A publish failure means the client is gone.
func (d *DiscussionService) publish(ctx context.Context, pub stream.Publisher, ev event.Event) error {
	if d.broadcaster != nil {
		d.broadcaster.BroadcastEvent(ctx, string(ev.Type), ev.Payload)
	}
	if err := pub.Publish(ev); err != nil {
		return fmt.Errorf("%w: %v", errClientGone, err)
	}
	return nil
}

// Run executes a discussion end to end, streaming events to pub. It
// returns after the stream has been closed with discussion_complete or an
// error frame. A client disconnect stops the loop but leaves the session
// active for later resumption.
func (d *DiscussionService) Run(ctx context.Context, req StartRequest, pub stream.Publisher) error {
	defer pub.Close()

	maxRounds := req.MaxRounds
	if maxRounds <= 0 || maxRounds > d.cfg.MaxRounds {
		maxRounds = d.cfg.MaxRounds
	}

	sess, err := d.sessions.Create(ctx, req.Topic, req.ProjectID, req.Participants)
	if err != nil {
		_ = pub.Publish(event.New(event.TypeError, event.Error{Message: err.Error()}))
		return err
	}
	d.registerStream(sess.ID, pub)
	defer d.unregisterStream(sess.ID)

	ctx, span := bdotel.StartSessionSpan(ctx, sess.ID, sess.Topic)
	defer span.End()
	started := time.Now()
	if d.metrics != nil {
		d.metrics.SessionsStarted.Add(ctx, 1)
		defer func() {
			d.metrics.SessionDuration.Record(ctx, time.Since(started).Seconds())
		}()
	}

	if err := d.publish(ctx, pub, event.New(event.TypeDiscussionInit, event.DiscussionInit{
		SessionID:    sess.ID,
		Topic:        sess.Topic,
		Participants: sess.Participants,
		MaxRounds:    maxRounds,
	})); err != nil {
		return d.clientGone(sess.ID, err)
	}

	if req.InitialMessage != "" {
		msg, err := d.sessions.AppendUserMessage(ctx, sess.ID, req.InitialMessage)
		if err != nil {
			return d.failSession(ctx, sess.ID, pub, err)
		}
		if err := d.publish(ctx, pub, event.New(event.TypeUserMessage, event.UserMessage{
			SessionID: sess.ID,
			Content:   msg.Content,
		})); err != nil {
			return d.clientGone(sess.ID, err)
		}
	}

	if err := d.runRounds(ctx, sess.ID, maxRounds, pub); err != nil {
		if errors.Is(err, errClientGone) {
			return d.clientGone(sess.ID, err)
		}
		return d.failSession(ctx, sess.ID, pub, err)
	}

	if err := d.finish(ctx, sess.ID, pub); err != nil {
		if errors.Is(err, errClientGone) {
			return d.clientGone(sess.ID, err)
		}
		return d.failSession(ctx, sess.ID, pub, err)
	}
	return nil
}

// runRounds drives the orchestration loop until convergence or the round cap.
func (d *DiscussionService) runRounds(ctx context.Context, sessionID string, maxRounds int, pub stream.Publisher) error {
	for {
		sess, err := d.sessions.Snapshot(sessionID)
		if err != nil {
			return err
		}
		round := sess.Round
		if round > maxRounds {
			return nil
		}

		if err := d.publish(ctx, pub, event.New(event.TypeRoundStart, event.RoundStart{
			SessionID: sessionID,
			Round:     round,
		})); err != nil {
			return err
		}
		if d.metrics != nil {
			d.metrics.Rounds.Add(ctx, 1)
		}

		dec, fallback := d.orchestrator.Decide(ctx, sess, maxRounds)
		if err := d.publish(ctx, pub, event.New(event.TypeOrchestratorDecision, event.OrchestratorDecision{
			SessionID:      sessionID,
			Round:          round,
			NextAgentID:    dec.NextAgentID,
			ShouldContinue: dec.ShouldContinue,
			ConsensusLevel: dec.ConsensusLevel,
			KeyInsights:    dec.KeyInsights,
			Fallback:       fallback,
		})); err != nil {
			return err
		}

		if !dec.ShouldContinue {
			// Converging is a provider judgment; the round-robin fallback
			// ending on the round budget is plain exhaustion.
			if !fallback {
				if err := d.publish(ctx, pub, event.New(event.TypeDiscussionConverging, event.DiscussionConverging{
					SessionID:      sessionID,
					Round:          round,
					ConsensusLevel: dec.ConsensusLevel,
				})); err != nil {
					return err
				}
			}
			return nil
		}

		p, err := d.registry.Get(dec.NextAgentID)
		if err != nil {
			return err
		}
		if err := d.publish(ctx, pub, event.New(event.TypeExpertSpeaking, event.ExpertSpeaking{
			SessionID: sessionID,
			Round:     round,
			AgentID:   p.ID,
			Name:      p.Name,
			Title:     p.Title,
		})); err != nil {
			return err
		}

		roundCtx, roundSpan := bdotel.StartRoundSpan(ctx, sessionID, round)
		turn, err := d.responder.Generate(roundCtx, sess, dec.NextAgentID, dec.GuidancePrompt, func(delta string) error {
			return d.publish(ctx, pub, event.New(event.TypeExpertMessageDelta, event.ExpertMessageDelta{
				SessionID: sessionID,
				AgentID:   dec.NextAgentID,
				Delta:     delta,
			}))
		})
		roundSpan.End()
		if err != nil {
			return err
		}

		if err := d.sessions.Append(ctx, sessionID, discussion.Message{
			AgentID:   dec.NextAgentID,
			Content:   turn.Content,
			Round:     round,
			Role:      discussion.RoleAgent,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return err
		}
		d.sessions.AddTokens(sessionID, turn.TokensIn+turn.TokensOut)

		if err := d.publish(ctx, pub, event.New(event.TypeExpertMessageComplete, event.ExpertMessageComplete{
			SessionID: sessionID,
			Round:     round,
			AgentID:   dec.NextAgentID,
			Content:   turn.Content,
			TokensIn:  turn.TokensIn,
			TokensOut: turn.TokensOut,
		})); err != nil {
			return err
		}
		if err := d.publish(ctx, pub, event.New(event.TypeRoundComplete, event.RoundComplete{
			SessionID: sessionID,
			Round:     round,
		})); err != nil {
			return err
		}

		// The counter never moves past the cap: after the last permitted
		// round the session ends with Round == maxRounds.
		if round >= maxRounds {
			return nil
		}
		if _, err := d.sessions.AdvanceRound(ctx, sessionID); err != nil {
			return err
		}
	}
}

// finish summarizes, classifies and completes the session.
func (d *DiscussionService) finish(ctx context.Context, sessionID string, pub stream.Publisher) error {
	if err := d.publish(ctx, pub, event.New(event.TypeSummaryStart, event.SummaryStart{
		SessionID: sessionID,
	})); err != nil {
		return err
	}

	sess, err := d.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}
	sum, err := d.summarizer.Summarize(ctx, sess)
	if err != nil {
		return err
	}
	if d.store != nil {
		if err := d.store.SaveSummary(ctx, sessionID, sum); err != nil {
			slog.Warn("summary persist failed, continuing", "session_id", sessionID, "error", err)
		}
	}
	if err := d.publish(ctx, pub, event.New(event.TypeSummaryComplete, event.SummaryComplete{
		SessionID: sessionID,
		Summary:   sum,
	})); err != nil {
		return err
	}

	for _, kd := range sum.KeyDecisions {
		if kd.Decision == "" {
			continue
		}
		if err := d.publish(ctx, pub, event.New(event.TypeClassificationStart, event.ClassificationStart{
			SessionID: sessionID,
			Decision:  kd.Decision,
		})); err != nil {
			return err
		}

		clsCtx, clsSpan := bdotel.StartClassificationSpan(ctx, sessionID, kd.Decision)
		c := d.classifier.Classify(clsCtx, decision.Input{
			Title:       kd.Decision,
			Description: sum.Summary,
		})
		clsSpan.End()
		if d.metrics != nil {
			d.metrics.Classifications.Add(ctx, 1,
				metric.WithAttributes(attribute.String("level", string(c.Level))))
		}
		if d.store != nil {
			if err := d.store.SaveClassification(ctx, sessionID, c); err != nil {
				slog.Warn("classification persist failed, continuing", "session_id", sessionID, "error", err)
			}
		}
		if err := d.publish(ctx, pub, event.New(event.TypeDecisionClassified, event.DecisionClassified{
			SessionID:      sessionID,
			Classification: c,
		})); err != nil {
			return err
		}

		d.notifyDecision(ctx, c)
		if c.Level == decision.LevelAuto && d.tracker != nil {
			d.tracker.CreateTask(ctx, sessionID, c.DecisionTitle, actionFor(sum, kd.Decision))
		}
	}
	if err := d.publish(ctx, pub, event.New(event.TypeClassificationComplete, event.ClassificationComplete{
		SessionID: sessionID,
		Count:     len(sum.KeyDecisions),
	})); err != nil {
		return err
	}

	if err := d.sessions.Complete(ctx, sessionID); err != nil {
		return err
	}
	sess, err = d.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.SessionsCompleted.Add(ctx, 1)
		d.metrics.TokensUsed.Add(ctx, int64(sess.TotalTokens))
	}
	return d.publish(ctx, pub, event.New(event.TypeDiscussionComplete, event.DiscussionComplete{
		SessionID:   sessionID,
		Rounds:      sess.Round,
		TotalTokens: sess.TotalTokens,
	}))
}

// actionFor picks the action text for an auto-executed decision. Action
// items explicitly linked via for_decision win; the substring heuristic is
// a fallback for summaries without linkage, then the decision text itself.
func actionFor(sum *summary.Summary, decisionText string) string {
	lower := strings.ToLower(decisionText)
	for _, ai := range sum.ActionItems {
		if ai.Action != "" && strings.EqualFold(ai.ForDecision, decisionText) {
			return ai.Action
		}
	}
	for _, ai := range sum.ActionItems {
		if ai.Action == "" || ai.ForDecision != "" {
			continue
		}
		action := strings.ToLower(ai.Action)
		if strings.Contains(lower, action) || strings.Contains(action, lower) {
			return ai.Action
		}
	}
	return decisionText
}

// clientGone logs a disconnect and leaves the session active.
func (d *DiscussionService) clientGone(sessionID string, err error) error {
	slog.Info("client disconnected, session stays active", "session_id", sessionID, "error", err)
	return nil
}

// failSession marks the session failed and sends the terminal error frame.
func (d *DiscussionService) failSession(ctx context.Context, sessionID string, pub stream.Publisher, cause error) error {
	slog.Error("discussion failed", "session_id", sessionID, "error", cause)
	if d.metrics != nil {
		d.metrics.SessionsFailed.Add(ctx, 1)
	}
	if err := d.sessions.Fail(ctx, sessionID); err != nil {
		slog.Warn("fail transition rejected", "session_id", sessionID, "error", err)
	}
	_ = pub.Publish(event.New(event.TypeError, event.Error{
		SessionID: sessionID,
		Message:   cause.Error(),
	}))
	return cause
}

func (d *DiscussionService) registerStream(sessionID string, pub stream.Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams[sessionID] = pub
}

func (d *DiscussionService) unregisterStream(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.streams, sessionID)
}

// InjectUserMessage appends a user message to an active session and echoes
// it into the session's live stream if one is attached.
func (d *DiscussionService) InjectUserMessage(ctx context.Context, sessionID, content string) error {
	msg, err := d.sessions.AppendUserMessage(ctx, sessionID, content)
	if err != nil {
		return err
	}

	ev := event.New(event.TypeUserMessage, event.UserMessage{
		SessionID: sessionID,
		Content:   msg.Content,
	})
	if d.broadcaster != nil {
		d.broadcaster.BroadcastEvent(ctx, string(ev.Type), ev.Payload)
	}
	d.mu.Lock()
	pub := d.streams[sessionID]
	d.mu.Unlock()
	if pub != nil {
		_ = pub.Publish(ev)
	}
	return nil
}

// Abandon pauses a running session from outside the loop.
func (d *DiscussionService) Abandon(ctx context.Context, sessionID string) error {
	return d.sessions.Abandon(ctx, sessionID)
}
