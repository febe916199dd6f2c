// Package intake stores uploaded documents and feeds them to the knowledge
// index.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrUnsupportedUpload rejects files the loader cannot handle. Nothing is
// written to disk for a rejected upload.
var ErrUnsupportedUpload = errors.New("unsupported upload format")

// Receipt reports what happened to one upload. The file can be stored even
// when indexing failed; IndexErr carries that (non nil) outcome so it can be
// retried on the next rebuild.
type Receipt struct {
	Path     string
	Indexed  bool
	IndexErr error
}

// Indexer is the slice of the knowledge index the intake needs.
type Indexer interface {
	AddFileOrRebuild(ctx context.Context, path, root string) error
}

// Intake copies uploads into dir and indexes them against root.
type Intake struct {
	dir     string
	root    string
	indexer Indexer
}

// New constructs an intake writing into dir. root is the knowledge base root
// used when an append failure forces a full rebuild.
func New(dir, root string, indexer Indexer) *Intake {
	return &Intake{dir: dir, root: root, indexer: indexer}
}

// Receive validates, stores and indexes one uploaded file. Unsupported
// formats are rejected before any disk write. A storage failure returns an
// error with no receipt; an indexing failure still returns the stored path
// with IndexErr set.
func (i *Intake) Receive(ctx context.Context, filename string, r io.Reader) (Receipt, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" {
		return Receipt{}, fmt.Errorf("%w: %s", ErrUnsupportedUpload, filename)
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create upload folder: %w", err)
	}

	dst := filepath.Join(i.dir, filepath.Base(filename))
	f, err := os.Create(dst)
	if err != nil {
		return Receipt{}, fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return Receipt{}, fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return Receipt{}, fmt.Errorf("store upload: %w", err)
	}

	receipt := Receipt{Path: dst}
	if err := i.indexer.AddFileOrRebuild(ctx, dst, i.root); err != nil {
		log.Error().Err(err).Str("file", dst).Msg("failed to index upload")
		receipt.IndexErr = err
		return receipt, nil
	}
	receipt.Indexed = true
	log.Info().Str("file", dst).Msg("upload stored and indexed")
	return receipt, nil
}
