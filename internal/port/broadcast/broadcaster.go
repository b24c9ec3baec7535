// Package broadcast defines the port for fanning discussion events out to
// observer clients (dashboards watching all sessions).
package broadcast

import "context"

// Broadcaster sends a typed event to all connected observers. It must
// never block the publishing session; slow observers are dropped, not
// waited on.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
