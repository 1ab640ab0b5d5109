package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/kiranshivaraju/reviewlabel/internal/ai/transport"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Provider implements models.AIProvider using Anthropic through llmkit.
type Provider struct {
	cfg config.AnthropicConfig
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return "anthropic" }

type completion struct {
	text string
	err  error
}

// Complete sends one prompt. llmkit calls are not context-aware, so the call
// runs in its own goroutine and is abandoned if ctx finishes first.
func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transport.ClassifyError(err)
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	settings := types.RequestSettings{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	done := make(chan completion, 1)
	go func() {
		response, err := anthropic.PromptWithSettings(req.SystemPrompt, req.UserPrompt, "", p.cfg.APIKey, settings)
		if err != nil {
			done <- completion{err: err}
			return
		}
		if len(response.Content) == 0 {
			done <- completion{err: fmt.Errorf("%w: no content in response", transport.ErrInvalidResponse)}
			return
		}
		done <- completion{text: response.Content[0].Text}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic prompt: %w", transport.ClassifyError(ctx.Err()))
	case c := <-done:
		if c.err != nil {
			return "", fmt.Errorf("anthropic prompt: %w", classifyError(c.err))
		}
		return c.text, nil
	}
}

// classifyError maps llmkit's string errors onto the provider sentinels.
func classifyError(err error) error {
	if errors.Is(err, transport.ErrInvalidResponse) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "authentication"):
		return fmt.Errorf("%w: %v", transport.ErrUnauthorized, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", transport.ErrRateLimited, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return fmt.Errorf("%w: %v", transport.ErrInferenceTimeout, err)
	default:
		return fmt.Errorf("%w: %v", transport.ErrProviderUnavailable, err)
	}
}

var _ models.AIProvider = (*Provider)(nil)
