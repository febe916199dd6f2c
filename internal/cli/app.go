package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/chunker"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/config"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/embedding"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/index"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/llmservice"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/parser"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/pipeline"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/rag"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/vertical"
)

// app bundles the wired components a command needs. Conversation memory is
// optional: commands that only touch the knowledge index leave it nil.
type app struct {
	cfg          *config.Config
	knowledge    *index.Knowledge
	conversation *index.Conversation
}

// newApp builds the indexing side of the application from cfg.
func newApp(cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewEmbedder(&cfg.Embed)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	splitter := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	loader := parser.NewLoader(vertical.New(cfg.OCR.Lang, cfg.OCR.DPI))

	knowledge := index.NewKnowledge(cfg.KnowledgeDir(), embedder, loader, splitter)
	if err := knowledge.Initialize(); err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}

	conversation := index.NewConversation(cfg.ConversationDir(), embedder, splitter)
	if err := conversation.Initialize(); err != nil {
		log.Warn().Err(err).Msg("conversation index unavailable, continuing without memory")
		conversation = nil
	}

	return &app{cfg: cfg, knowledge: knowledge, conversation: conversation}, nil
}

// retriever assembles the context builder over both indices.
func (a *app) retriever() *rag.Retriever {
	var conv rag.Searcher
	if a.conversation != nil {
		conv = a.conversation
	}
	return rag.NewRetriever(a.knowledge, conv, a.cfg.RAG.RetrievalK)
}

// pipeline wires the generation side, with the refinement pass when
// requested.
func (a *app) pipeline(refine bool) (*pipeline.Pipeline, error) {
	model, err := llmservice.NewModel(&a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	var refiner pipeline.Refiner
	if refine || a.cfg.Refine.Enabled {
		refineModel, err := llmservice.NewModel(&config.LLMConfig{
			Provider: a.cfg.Refine.Provider,
			BaseURL:  a.cfg.Refine.BaseURL,
			Model:    a.cfg.Refine.Model,
		})
		if err != nil {
			log.Warn().Err(err).Msg("refine model unavailable, answers will not be refined")
		} else {
			refiner = pipeline.NewOllamaRefiner(refineModel, time.Duration(a.cfg.Refine.TimeoutSeconds)*time.Second)
		}
	}

	var memory pipeline.TurnRecorder
	if a.conversation != nil {
		memory = a.conversation
	}
	return pipeline.New(model, a.retriever(), memory, refiner), nil
}
