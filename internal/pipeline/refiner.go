package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

// DefaultRefineTimeout bounds a single refinement call.
const DefaultRefineTimeout = 10 * time.Second

// OllamaRefiner rewrites an answer in a softer register using a local model.
// It is strictly best-effort: timeout, service error or an empty rewrite all
// return the original text unchanged.
type OllamaRefiner struct {
	model   llms.Model
	timeout time.Duration
}

// NewOllamaRefiner wraps model. A non-positive timeout falls back to
// DefaultRefineTimeout.
func NewOllamaRefiner(model llms.Model, timeout time.Duration) *OllamaRefiner {
	if timeout <= 0 {
		timeout = DefaultRefineTimeout
	}
	return &OllamaRefiner{model: model, timeout: timeout}
}

// Refine implements Refiner.
func (r *OllamaRefiner) Refine(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		prompt := fmt.Sprintf(models.RefinePromptTemplate, text)
		resp, err := llms.GenerateFromSinglePrompt(ctx, r.model, prompt)
		done <- result{text: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Warn().Err(res.err).Msg("refinement failed, keeping original answer")
			return text
		}
		if strings.TrimSpace(res.text) == "" {
			return text
		}
		return res.text
	case <-ctx.Done():
		log.Warn().Dur("timeout", r.timeout).Msg("refinement timed out, keeping original answer")
		return text
	}
}
