// Package ws implements the WebSocket firehose: an observer stream that
// mirrors every discussion event to all connected dashboard clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/Strob0t/Boardroom/internal/domain/event"
)

// sendQueueSize bounds the per-connection backlog. A consumer that falls
// further behind loses frames, never stalls a discussion.
const sendQueueSize = 64

// conn wraps a single WebSocket connection with its bounded send queue.
type conn struct {
	send   chan []byte
	cancel context.CancelFunc
}

// Hub manages all active WebSocket connections. Unlike the per-request SSE
// stream, the hub is a lossy observer channel: each connection is drained
// by its own writer goroutine, so a slow or broken client only ever loses
// its own frames.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*conn]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{send: make(chan []byte, sendQueueSize), cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	// Writer loop: the only goroutine that touches ws.Write.
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-c.send:
				if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
					slog.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}()

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues one event frame for every connected client. Frames use
// the same flat JSON shape as the SSE stream. A full queue drops the frame
// for that client only; Broadcast itself never blocks.
func (h *Hub) Broadcast(_ context.Context, ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("websocket marshal failed", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		select {
		case c.send <- data:
		default:
			slog.Debug("websocket frame dropped, slow consumer", "type", ev.Type)
		}
	}
}

// BroadcastEvent implements the broadcast port.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	h.Broadcast(ctx, event.New(event.Type(eventType), payload))
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected")
	}
}
