// Package completion defines the port for language-model completion and
// streaming providers.
package completion

import "context"

// Usage is the token accounting for one provider call.
type Usage struct {
	TokensIn  int `json:"tokens_in"`
	TokensOut int `json:"tokens_out"`
}

// Request is a single system+user prompt pair. Model, temperature and
// token limits may be overridden per call site; zero values use the
// provider's defaults.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Result is the full response of a non-streaming completion.
type Result struct {
	Content string
	Model   string
	Usage   Usage
}

// Delta is one element of a completion stream. Usage is set on the final
// delta when the provider reports it. Err, when non-nil, is terminal; the
// channel is closed immediately after.
type Delta struct {
	Content string
	Usage   *Usage
	Err     error
}

// Provider is the completion backend. Streams are finite and not
// restartable; cancelling the context aborts the in-flight call and closes
// the delta channel.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Result, error)
	Stream(ctx context.Context, req Request) (<-chan Delta, error)
}
