package vllm

import (
	"github.com/kiranshivaraju/reviewlabel/internal/ai/openai"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
)

// NewProvider returns a provider for a vLLM server. vLLM exposes the OpenAI
// chat completions API, so the OpenAI client is reused unauthenticated.
func NewProvider(cfg config.VLLMConfig) *openai.Provider {
	return openai.NewCompatibleProvider("vllm", config.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}
