package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TextGenerator produces free-form natural-language text from a prompt and a
// structured grounding payload.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, payload any) (string, error)
}

// LLMTextGenerator implements TextGenerator on top of an LLMClient. Each call
// is bounded by a timeout; expiry is reported as a generator failure, never
// propagated as a crash.
type LLMTextGenerator struct {
	client  LLMClient
	model   string
	timeout time.Duration
}

// NewLLMTextGenerator wires a generator over the given client and model id.
// A non-positive timeout defaults to 15 seconds.
func NewLLMTextGenerator(client LLMClient, model string, timeout time.Duration) *LLMTextGenerator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLMTextGenerator{client: client, model: model, timeout: timeout}
}

func (g *LLMTextGenerator) Generate(ctx context.Context, prompt string, payload any) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: no client configured", ErrGeneratorUnavailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("dialogue: generator payload marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Complete(ctx, LLMRequest{
		Model:       g.model,
		System:      []string{prompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: string(body)}},
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	if resp.Text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGeneratorUnavailable)
	}
	return resp.Text, nil
}
