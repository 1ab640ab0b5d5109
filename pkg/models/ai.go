// Package models contains shared data models used across the ReviewLabel codebase.
package models

import "context"

// AIProvider is the core interface that all LLM integrations must implement.
// Never call specific AI providers directly; inject this interface instead.
type AIProvider interface {
	// Complete sends one system+user exchange and returns the raw text of the reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// CompletionRequest is the input to a single provider call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  float64
	JSONMode     bool // ask the provider for a JSON object reply when it supports it
}
