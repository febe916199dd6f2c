// Package index holds the two persisted vector indices: the knowledge index
// over the document corpus with its source manifest, and the conversation
// index over recorded chat turns. The two stores are disjoint namespaces
// persisted in separate directories.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/chromemdb"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/chunker"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/embedding"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/parser"
)

var (
	// ErrWriteFailed marks a failed index write. Callers repair by falling
	// back to a full rebuild.
	ErrWriteFailed = errors.New("index write failed")
)

const knowledgeCollection = "knowledge"

// Knowledge is the persistent vector index over the document corpus.
// Writers are serialized, in-process by a mutex and across processes by a
// file lock next to the index directory. Readers search the last-published
// store without locks against writers.
type Knowledge struct {
	dir      string
	embedder embeddings.Embedder
	loader   *parser.Loader
	splitter *chunker.Splitter

	writeMu  sync.Mutex
	fileLock *flock.Flock

	mu    sync.RWMutex
	store *chromemdb.Store // nil until created or loaded
}

// NewKnowledge constructs the index rooted at dir. Call Initialize to load
// an already-persisted store.
func NewKnowledge(dir string, embedder embeddings.Embedder, loader *parser.Loader, splitter *chunker.Splitter) *Knowledge {
	return &Knowledge{
		dir:      dir,
		embedder: embedder,
		loader:   loader,
		splitter: splitter,
		fileLock: flock.New(dir + ".lock"),
	}
}

// Dir returns the persisted location of the index.
func (k *Knowledge) Dir() string {
	return k.dir
}

// Initialize loads the persisted store if one exists. A missing store is not
// an error; the index stays empty until the first rebuild or add.
func (k *Knowledge) Initialize() error {
	k.recoverSwap()
	if !chromemdb.Exists(k.dir) {
		log.Info().Str("dir", k.dir).Msg("no persisted knowledge index found")
		return nil
	}
	store, err := chromemdb.Open(k.dir, knowledgeCollection)
	if err != nil {
		return err
	}
	log.Info().Str("dir", k.dir).Int("entries", store.Count()).Msg("loaded knowledge index")
	k.publish(store)
	return nil
}

// recoverSwap finishes a swap interrupted between its two renames: the
// previous store sits at <dir>.old with nothing live. A live store plus a
// stale <dir>.old is left alone; the next rebuild clears it.
func (k *Knowledge) recoverSwap() {
	old := k.dir + ".old"
	if chromemdb.Exists(k.dir) || !chromemdb.Exists(old) {
		return
	}
	if err := os.Rename(old, k.dir); err != nil {
		log.Warn().Err(err).Str("dir", k.dir).Msg("failed to restore index from interrupted swap")
		return
	}
	log.Info().Str("dir", k.dir).Msg("restored index from interrupted swap")
}

func (k *Knowledge) publish(store *chromemdb.Store) {
	k.mu.Lock()
	k.store = store
	k.mu.Unlock()
}

func (k *Knowledge) current() *chromemdb.Store {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.store
}

// Count returns the number of indexed entries.
func (k *Knowledge) Count() int {
	if s := k.current(); s != nil {
		return s.Count()
	}
	return 0
}

// Manifest returns the persisted source ledger.
func (k *Knowledge) Manifest() (Manifest, error) {
	return LoadManifest(k.dir)
}

// Rebuild recreates the store from every source file under root. The new
// store is built in a staging directory and swapped in with a rename, so a
// crash mid-rebuild leaves the previous store intact. The manifest is
// written last, from the names actually embedded. Zero source files yield a
// valid empty store. Per-document failures are logged and skipped.
func (k *Knowledge) Rebuild(ctx context.Context, root string) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	if err := k.lockFile(); err != nil {
		return err
	}
	defer k.unlockFile()

	staging := k.dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	store, err := chromemdb.Open(staging, knowledgeCollection)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	files := findSourceFiles(root)
	log.Info().Int("files", len(files)).Str("root", root).Msg("rebuilding knowledge index")

	var sources []string
	for _, path := range files {
		docs, err := k.prepare(ctx, path)
		if err != nil {
			// one bad document never aborts the batch
			log.Warn().Str("file", path).Err(err).Msg("skipping document")
			continue
		}
		if len(docs) == 0 {
			continue
		}
		if err := store.Add(ctx, docs); err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		sources = append(sources, filepath.Base(path))
	}

	if err := NewManifest(sources...).Save(staging); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("%w: manifest: %v", ErrWriteFailed, err)
	}

	if err := swapDirs(staging, k.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	live, err := chromemdb.Open(k.dir, knowledgeCollection)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	// readers keep seeing the previous snapshot until this point
	k.publish(live)
	log.Info().Int("entries", live.Count()).Int("sources", len(sources)).Msg("knowledge index rebuilt")
	return nil
}

// AddFile loads, chunks, embeds and appends one file to the existing store
// without touching unrelated entries. When no store exists yet this creates
// one scoped to that file. The manifest is set-union merged in either case.
func (k *Knowledge) AddFile(ctx context.Context, path string) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	if err := k.lockFile(); err != nil {
		return err
	}
	defer k.unlockFile()

	docs, err := k.prepare(ctx, path)
	if err != nil {
		// UnsupportedFormat / ExtractionFailed surface to the caller
		return err
	}
	if len(docs) == 0 {
		// a manifest name must always be backed by at least one entry
		log.Warn().Str("file", path).Msg("no indexable text, leaving index and manifest unchanged")
		return nil
	}

	store := k.current()
	if store == nil {
		store, err = chromemdb.Open(k.dir, knowledgeCollection)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		k.publish(store)
	}

	if err := store.Add(ctx, docs); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	m, err := LoadManifest(k.dir)
	if err != nil {
		log.Warn().Err(err).Msg("unreadable manifest, rewriting from this file")
		m = nil
	}
	if err := m.Union(filepath.Base(path)).Save(k.dir); err != nil {
		return fmt.Errorf("%w: manifest: %v", ErrWriteFailed, err)
	}
	log.Info().Str("file", path).Int("chunks", len(docs)).Msg("file indexed incrementally")
	return nil
}

// AddFileOrRebuild is the repair path: when the incremental append fails,
// the whole index is rebuilt from root to restore consistency.
func (k *Knowledge) AddFileOrRebuild(ctx context.Context, path, root string) error {
	err := k.AddFile(ctx, path)
	if err == nil || !errors.Is(err, ErrWriteFailed) {
		return err
	}
	log.Warn().Err(err).Str("file", path).Msg("incremental add failed, rebuilding knowledge index")
	return k.Rebuild(ctx, root)
}

// Search returns up to kk entries ranked by similarity. An uninitialized or
// empty index yields an empty result, never an error.
func (k *Knowledge) Search(ctx context.Context, query string, kk int) ([]chromem.Result, error) {
	store := k.current()
	if store == nil {
		return nil, nil
	}
	emb, err := k.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, emb, kk)
}

func (k *Knowledge) lockFile() error {
	if err := os.MkdirAll(filepath.Dir(k.dir), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := k.fileLock.Lock(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (k *Knowledge) unlockFile() {
	if err := k.fileLock.Unlock(); err != nil {
		log.Warn().Err(err).Msg("failed to release index file lock")
	}
}

// prepare runs the full write path for one file: load, chunk, embed.
func (k *Knowledge) prepare(ctx context.Context, path string) ([]chromem.Document, error) {
	units, err := k.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	chunks := k.splitter.Split(units)
	if len(chunks) == 0 {
		return nil, nil
	}
	vectors, err := embedding.EmbedChunks(ctx, k.embedder, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        uuid.NewString(),
			Content:   c.Content,
			Metadata:  chunkMetadata(c),
			Embedding: vectors[i],
		}
	}
	return docs, nil
}

func chunkMetadata(c models.Chunk) map[string]string {
	md := map[string]string{
		models.MetaSource: c.Source,
		models.MetaChunk:  strconv.Itoa(c.ChunkID),
	}
	if c.PageNumber > 0 {
		md[models.MetaPage] = strconv.Itoa(c.PageNumber)
	}
	for key, v := range c.Extra {
		md[key] = v
	}
	return md
}

// findSourceFiles walks root recursively collecting indexable files in a
// stable order. Walk errors are logged and skipped.
func findSourceFiles(root string) []string {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("skipping unreadable path")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".xlsx":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Warn().Str("root", root).Err(err).Msg("source directory walk failed")
	}
	return files
}

// swapDirs atomically replaces live with staging. The previous live tree is
// moved aside first and restored if the swap fails.
func swapDirs(staging, live string) error {
	old := live + ".old"
	_ = os.RemoveAll(old)
	if _, err := os.Stat(live); err == nil {
		if err := os.Rename(live, old); err != nil {
			return err
		}
	}
	if err := os.Rename(staging, live); err != nil {
		_ = os.Rename(old, live)
		return err
	}
	return os.RemoveAll(old)
}
