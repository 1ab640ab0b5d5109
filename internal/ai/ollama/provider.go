package ollama

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/reviewlabel/internal/ai/transport"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Provider implements models.AIProvider using Ollama's native chat API.
type Provider struct {
	model  string
	client *transport.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{
		model:  cfg.Model,
		client: transport.NewClient(cfg.BaseURL, 0, nil),
	}
}

func (p *Provider) Name() string { return "ollama" }

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
		Stream: false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.JSONMode {
		body.Format = "json"
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, "/api/chat", body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama chat: %w: %s", transport.ErrInvalidResponse, resp.Error)
	}
	return resp.Message.Content, nil
}

// --- wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

var _ models.AIProvider = (*Provider)(nil)
