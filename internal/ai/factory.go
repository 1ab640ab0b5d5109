package ai

import (
	"fmt"

	"github.com/kiranshivaraju/reviewlabel/internal/ai/anthropic"
	"github.com/kiranshivaraju/reviewlabel/internal/ai/ollama"
	"github.com/kiranshivaraju/reviewlabel/internal/ai/openai"
	"github.com/kiranshivaraju/reviewlabel/internal/ai/vllm"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once per process; the provider is shared by all runner workers.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "vllm":
		return vllm.NewProvider(cfg.VLLM), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "dashscope":
		return openai.NewCompatibleProvider("dashscope", cfg.DashScope), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, vllm, openai, dashscope, anthropic", cfg.Provider)
	}
}
