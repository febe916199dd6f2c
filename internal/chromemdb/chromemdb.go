// Package chromemdb wraps a persistent chromem-go collection behind the
// small surface the indices need. Embeddings are always computed by the
// caller; the store never calls out to an embedding service itself.
package chromemdb

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// Store is one persisted vector collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	path       string
}

const compress = false

// Exists reports whether a persisted store is already present at path. The
// load-vs-create signal is a non-empty directory listing.
func Exists(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}

// Open loads the store at path, creating it when absent.
func Open(path, collectionName string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", path, err)
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection %s: %w", collectionName, err)
	}
	return &Store{db: db, collection: c, path: path}, nil
}

// Path returns the directory the store persists into.
func (s *Store) Path() string {
	return s.path
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Add persists documents carrying precomputed embeddings.
func (s *Store) Add(ctx context.Context, docs []chromem.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns up to k entries ranked by descending similarity to the
// query embedding. An empty store yields an empty result set, not an error.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) ([]chromem.Result, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}
