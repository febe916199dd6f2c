package index

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/chromemdb"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/chunker"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/embedding"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

const conversationCollection = "conversations"

// Conversation is the per-turn conversational memory index, persisted
// separately from the knowledge index and created lazily on the first
// recorded turn. Recorded turns are never mutated or deleted.
type Conversation struct {
	dir      string
	embedder embeddings.Embedder
	splitter *chunker.Splitter

	mu      sync.Mutex
	writeMu sync.Mutex
	store   *chromemdb.Store
}

// NewConversation constructs the memory index rooted at dir.
func NewConversation(dir string, embedder embeddings.Embedder, splitter *chunker.Splitter) *Conversation {
	return &Conversation{dir: dir, embedder: embedder, splitter: splitter}
}

// Initialize loads an already-persisted store. Absence is not an error.
func (c *Conversation) Initialize() error {
	if !chromemdb.Exists(c.dir) {
		return nil
	}
	store, err := chromemdb.Open(c.dir, conversationCollection)
	if err != nil {
		return err
	}
	log.Info().Str("dir", c.dir).Int("entries", store.Count()).Msg("loaded conversation index")
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
	return nil
}

func (c *Conversation) current() *chromemdb.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

func (c *Conversation) ensureStore() (*chromemdb.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	store, err := chromemdb.Open(c.dir, conversationCollection)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// RecordTurn chunks one utterance and appends it to the memory store. The
// returned id identifies the recorded turn so the caller can exclude it from
// its own retrieval pass. Callers treat a returned error as non-fatal to the
// surrounding flow.
func (c *Conversation) RecordTurn(ctx context.Context, sessionID, role, text string) (string, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	turn := models.ConversationTurn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	unit := models.ContentUnit{
		Text:   turn.Text,
		Source: models.SourceConversation,
		Extra: map[string]string{
			models.MetaSession:   turn.SessionID,
			models.MetaRole:      turn.Role,
			models.MetaTimestamp: turn.Timestamp.Format(time.RFC3339),
			models.MetaTurn:      turn.ID,
		},
	}

	chunks := c.splitter.Split([]models.ContentUnit{unit})
	if len(chunks) == 0 {
		return "", nil
	}
	vectors, err := embedding.EmbedChunks(ctx, c.embedder, chunks)
	if err != nil {
		return "", err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:        uuid.NewString(),
			Content:   ch.Content,
			Metadata:  chunkMetadata(ch),
			Embedding: vectors[i],
		}
	}

	store, err := c.ensureStore()
	if err != nil {
		return "", err
	}
	if err := store.Add(ctx, docs); err != nil {
		return "", err
	}
	return turn.ID, nil
}

// Search returns up to k entries ranked by similarity, scoped to this store
// only. An uninitialized index yields an empty result.
func (c *Conversation) Search(ctx context.Context, query string, k int) ([]chromem.Result, error) {
	store := c.current()
	if store == nil {
		return nil, nil
	}
	emb, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, emb, k)
}
