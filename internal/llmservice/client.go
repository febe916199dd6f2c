// Package llmservice constructs chat completion clients from configuration.
package llmservice

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/config"
)

// NewModel builds the completion client for cfg. "ollama" selects a local
// Ollama server; anything else is treated as an OpenAI-compatible endpoint.
func NewModel(cfg *config.LLMConfig) (llms.Model, error) {
	if cfg.Provider == "ollama" {
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	}

	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Key != "" {
		opts = append(opts, openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")))
	}
	return openai.New(opts...)
}
