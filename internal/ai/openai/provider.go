package openai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/reviewlabel/internal/ai/transport"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Provider implements models.AIProvider against any OpenAI-compatible
// chat completions endpoint (OpenAI, DashScope compatible mode, vLLM).
type Provider struct {
	name   string
	model  string
	client *transport.Client
}

// NewProvider returns a Provider for the OpenAI API.
func NewProvider(cfg config.OpenAIConfig) *Provider {
	return NewCompatibleProvider("openai", cfg)
}

// NewCompatibleProvider returns a Provider reporting name for an
// OpenAI-compatible endpoint at cfg.BaseURL.
func NewCompatibleProvider(name string, cfg config.OpenAIConfig) *Provider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &Provider{
		name:   name,
		model:  cfg.Model,
		client: transport.NewClient(cfg.BaseURL, 0, headers),
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: %w: no choices", p.name, transport.ErrInvalidResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// --- wire types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

var _ models.AIProvider = (*Provider)(nil)
