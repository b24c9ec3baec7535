package litellm

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/port/completion"
)

// Provider adapts the LiteLLM client to the completion port.
type Provider struct {
	client *Client
}

// NewProvider wraps a client as a completion.Provider.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func toChatRequest(req completion.Request) ChatCompletionRequest {
	msgs := make([]ChatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, ChatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: req.User})
	return ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// Complete performs a blocking chat completion.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	resp, err := p.client.ChatCompletion(ctx, toChatRequest(req))
	if err != nil {
		return nil, err
	}
	return &completion.Result{
		Content: resp.Content,
		Model:   resp.Model,
		Usage:   completion.Usage{TokensIn: resp.TokensIn, TokensOut: resp.TokensOut},
	}, nil
}

// Stream performs a streaming chat completion, emitting one Delta per
// content chunk. The final element carries usage, or a non-nil Err if the
// stream failed partway. The channel closes when the stream ends.
func (p *Provider) Stream(ctx context.Context, req completion.Request) (<-chan completion.Delta, error) {
	out := make(chan completion.Delta)
	go func() {
		defer close(out)
		resp, err := p.client.StreamChatCompletion(ctx, toChatRequest(req), func(chunk string) error {
			select {
			case out <- completion.Delta{Content: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case out <- completion.Delta{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		usage := &completion.Usage{TokensIn: resp.TokensIn, TokensOut: resp.TokensOut}
		select {
		case out <- completion.Delta{Usage: usage}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
