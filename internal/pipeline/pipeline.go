// Package pipeline drives one generation request end to end: memory capture,
// retrieval, streaming completion, and the optional tone-refinement pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

// Fragment is one streamed piece of an answer. Every stream is terminated by
// exactly one fragment with Done set, carrying no text.
type Fragment struct {
	Text string
	Done bool
}

// Retriever assembles context for a query, skipping the conversation turn
// named by excludeTurn. An empty string means "no context" and generation
// proceeds on model knowledge alone.
type Retriever interface {
	RetrieveExcluding(ctx context.Context, query, excludeTurn string) string
}

// TurnRecorder persists conversation turns, returning the recorded turn's
// id. Failures are non-fatal to the generation flow.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, sessionID, role, text string) (string, error)
}

// Refiner rewrites an answer. Implementations must return the original text
// on any failure and never block past their own timeout.
type Refiner interface {
	Refine(ctx context.Context, text string) string
}

// Pipeline orchestrates retrieval, generation and memory for one request.
type Pipeline struct {
	model     llms.Model
	retriever Retriever
	memory    TurnRecorder // nil disables conversational memory
	refiner   Refiner      // nil disables the refinement pass
}

// New constructs a pipeline. memory and refiner may be nil.
func New(model llms.Model, retriever Retriever, memory TurnRecorder, refiner Refiner) *Pipeline {
	return &Pipeline{model: model, retriever: retriever, memory: memory, refiner: refiner}
}

// GenerateStream answers query as a stream of text fragments. The returned
// channel always ends with a single Done fragment and is then closed, also
// on generation errors. A service failure mid-stream is converted into one
// inline error fragment; the stream still terminates normally. The caller
// cancels by cancelling ctx; pending sends are dropped and the generation
// call is abandoned.
func (p *Pipeline) GenerateStream(ctx context.Context, query, sessionID string) <-chan Fragment {
	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer p.emit(ctx, out, Fragment{Done: true})

		ownTurn := ""
		if sessionID != "" && p.memory != nil {
			// recorded before retrieval so future turns can see it; the id
			// keeps it out of this request's own retrieval pass
			id, err := p.memory.RecordTurn(ctx, sessionID, models.RoleUser, query)
			if err != nil {
				log.Warn().Err(err).Str("session", sessionID).Msg("failed to record user turn")
			}
			ownTurn = id
		}

		contextBlock := ""
		if p.retriever != nil {
			contextBlock = p.retriever.RetrieveExcluding(ctx, query, ownTurn)
		}

		answer, err := p.stream(ctx, query, contextBlock, out)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Error().Err(err).Msg("generation service error")
			p.emit(ctx, out, Fragment{Text: models.ErrorFragmentPrefix + err.Error()})
			return
		}

		if sessionID != "" && p.memory != nil && strings.TrimSpace(answer) != "" {
			if _, err := p.memory.RecordTurn(ctx, sessionID, models.RoleAssistant, answer); err != nil {
				log.Warn().Err(err).Str("session", sessionID).Msg("failed to record assistant turn")
			}
		}
	}()
	return out
}

// Generate is the non-streaming form: the full answer, with the refinement
// pass applied when a refiner is configured.
func (p *Pipeline) Generate(ctx context.Context, query, sessionID string) string {
	var b strings.Builder
	for f := range p.GenerateStream(ctx, query, sessionID) {
		b.WriteString(f.Text)
	}
	answer := b.String()
	if p.refiner != nil {
		answer = p.refiner.Refine(ctx, answer)
	}
	return answer
}

func (p *Pipeline) stream(ctx context.Context, query, contextBlock string, out chan<- Fragment) (string, error) {
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextBlock, query)
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	var answer strings.Builder
	_, err := p.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(2000),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			answer.Write(chunk)
			if !p.emit(ctx, out, Fragment{Text: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}),
	)
	return answer.String(), err
}

// emit sends f unless the consumer has gone away.
func (p *Pipeline) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
