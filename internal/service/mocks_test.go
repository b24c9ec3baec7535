package service

import (
	"context"
	"sync"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/event"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
	"github.com/Strob0t/Boardroom/internal/port/completion"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

// scriptedProvider returns canned completions in order, one per Complete or
// Stream call. A nil entry's err is returned instead.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   []completion.Request
}

type scriptedReply struct {
	content string
	chunks  []string
	usage   completion.Usage
	err     error
}

func (p *scriptedProvider) next(req completion.Request) (scriptedReply, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if len(p.replies) == 0 {
		return scriptedReply{}, false
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, true
}

func (p *scriptedProvider) Complete(_ context.Context, req completion.Request) (*completion.Result, error) {
	r, ok := p.next(req)
	if !ok {
		return &completion.Result{Content: "{}"}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return &completion.Result{Content: r.content, Usage: r.usage}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req completion.Request) (<-chan completion.Delta, error) {
	r, ok := p.next(req)
	if !ok {
		r = scriptedReply{chunks: []string{"ok"}}
	}
	if r.err != nil {
		return nil, r.err
	}
	out := make(chan completion.Delta)
	go func() {
		defer close(out)
		for _, c := range r.chunks {
			select {
			case out <- completion.Delta{Content: c}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- completion.Delta{Usage: &r.usage}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// memStore records persistence calls in memory.
type memStore struct {
	mu              sync.Mutex
	sessions        map[string]*discussion.Session
	messages        map[string][]discussion.Message
	summaries       map[string]*summary.Summary
	classifications map[string][]*decision.Classification
	tasks           map[string]*execution.Task
	profile         string
	recent          []string

	failCreate error
	failAppend error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:        make(map[string]*discussion.Session),
		messages:        make(map[string][]discussion.Message),
		summaries:       make(map[string]*summary.Summary),
		classifications: make(map[string][]*decision.Classification),
		tasks:           make(map[string]*execution.Task),
	}
}

func (s *memStore) CreateSession(_ context.Context, sess *discussion.Session) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, sessionID string, m discussion.Message) error {
	if s.failAppend != nil {
		return s.failAppend
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], m)
	return nil
}

func (s *memStore) UpdateSessionStatus(_ context.Context, sessionID string, status discussion.Status, round, totalTokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.Status = status
		sess.Round = round
		sess.TotalTokens = totalTokens
	}
	return nil
}

func (s *memStore) SaveSummary(_ context.Context, sessionID string, sum *summary.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sessionID] = sum
	return nil
}

func (s *memStore) SaveClassification(_ context.Context, sessionID string, c *decision.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[sessionID] = append(s.classifications[sessionID], c)
	return nil
}

func (s *memStore) GetPreferenceProfile(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, nil
}

func (s *memStore) RecentDecisionTitles(_ context.Context, _ string, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent, nil
}

func (s *memStore) SaveExecutionTask(_ context.Context, _ string, t *execution.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
	return nil
}

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	failAt event.Type // publishing this type fails, simulating a disconnect
	closed bool
	err    error
}

func (p *capturingPublisher) Publish(ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.failAt != "" && ev.Type == p.failAt {
		p.err = context.Canceled
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *capturingPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *capturingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func (p *capturingPublisher) byType(t event.Type) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// memQueue records published queue messages.
type memQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMemQueue() *memQueue {
	return &memQueue{published: make(map[string][][]byte)}
}

func (q *memQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *memQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *memQueue) Close() error { return nil }

// recordingNotifier captures decision alerts.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.Notification
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Capabilities() notifier.Capabilities { return notifier.Capabilities{} }

func (n *recordingNotifier) Send(_ context.Context, msg notifier.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}
