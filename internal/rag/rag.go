// Package rag assembles ranked retrieval context for a generation request.
package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

// DefaultRetrievalK bounds each index's contribution to the context block.
const DefaultRetrievalK = 4

// Searcher is the similarity-search surface of an index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]chromem.Result, error)
}

// Retriever merges top-k hits from the knowledge and conversation indices
// into a single prompt-ready context block.
type Retriever struct {
	knowledge    Searcher
	conversation Searcher // nil when conversational memory is absent
	k            int
}

// NewRetriever constructs a retriever. conversation may be nil.
func NewRetriever(knowledge, conversation Searcher, k int) *Retriever {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	return &Retriever{knowledge: knowledge, conversation: conversation, k: k}
}

// Retrieve returns the assembled context for query: knowledge hits first,
// each tagged with source name and page, then conversation hits tagged with
// session and role. An empty string is a valid "no context" outcome; any
// index failure degrades to that index contributing nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string) string {
	return r.RetrieveExcluding(ctx, query, "")
}

// RetrieveExcluding is Retrieve with one conversation turn filtered out of
// the hits. A request that records its own query as a turn before retrieving
// passes that turn's id here so the question cannot match itself.
func (r *Retriever) RetrieveExcluding(ctx context.Context, query, excludeTurn string) string {
	var parts []string

	if r.knowledge != nil {
		hits, err := r.knowledge.Search(ctx, query, r.k)
		if err != nil {
			log.Warn().Err(err).Msg("knowledge retrieval failed")
		}
		for i, hit := range hits {
			source := hit.Metadata[models.MetaSource]
			page := hit.Metadata[models.MetaPage]
			if page == "" {
				page = "N/A"
			}
			parts = append(parts, fmt.Sprintf(models.KnowledgeTagTemplate, i+1, filepath.Base(source), page, hit.Content))
		}
	}

	if r.conversation != nil {
		hits, err := r.conversation.Search(ctx, query, r.k)
		if err != nil {
			log.Warn().Err(err).Msg("conversation retrieval failed")
		}
		for _, hit := range hits {
			if excludeTurn != "" && hit.Metadata[models.MetaTurn] == excludeTurn {
				continue
			}
			role := hit.Metadata[models.MetaRole]
			if role == "" {
				role = "unknown"
			}
			session := hit.Metadata[models.MetaSession]
			if session == "" {
				session = "unknown"
			}
			parts = append(parts, fmt.Sprintf(models.ConversationTagTemplate, role, session, hit.Content))
		}
	}

	log.Debug().Str("query", query).Int("blocks", len(parts)).Msg("assembled retrieval context")
	return strings.Join(parts, "\n\n")
}
