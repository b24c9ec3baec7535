// Package stream defines the per-session outward event sink.
package stream

import "github.com/Strob0t/Boardroom/internal/domain/event"

// Publisher delivers one session's events to its client, in order, with no
// batching or coalescing. Publish returns an error once the client is gone;
// the orchestration loop treats that as cancellation. Close is idempotent
// and is called exactly once by the owning handler when the loop returns.
type Publisher interface {
	Publish(ev event.Event) error
	Close()
}
