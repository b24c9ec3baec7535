// Package sse implements the per-request Server-Sent Events stream that
// delivers discussion events to the client that started the discussion.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Strob0t/Boardroom/internal/domain/event"
)

// ErrClosed is returned by Publish after the stream has been closed.
var ErrClosed = errors.New("sse stream closed")

// Stream writes events to one HTTP response as SSE frames. Each event is a
// single "data:" line holding the flat JSON frame, flushed immediately so
// deltas reach the client as they are produced.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
}

// New prepares w for event streaming and writes the SSE headers. It returns
// an error if the response writer cannot flush, since an unflushable stream
// would buffer the whole discussion.
func New(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}, nil
}

// Publish writes one event frame and flushes it.
func (s *Stream) Publish(ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	s.flusher.Flush()
	return nil
}

// Close marks the stream closed. Safe to call more than once; the handler
// that owns the response ends the body by returning.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
