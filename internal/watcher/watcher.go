// Package watcher keeps the knowledge index in sync with the knowledge base
// folder by reacting to filesystem events.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultSettleDelay gives a newly created file time to be fully written
// before indexing starts.
const DefaultSettleDelay = 500 * time.Millisecond

// Indexer is the slice of the knowledge index the watcher needs.
type Indexer interface {
	AddFileOrRebuild(ctx context.Context, path, root string) error
}

// Watcher indexes source files as they appear under root, including in
// subfolders created after startup.
type Watcher struct {
	root    string
	indexer Indexer
	settle  time.Duration
}

// New constructs a watcher over root.
func New(root string, indexer Indexer) *Watcher {
	return &Watcher{root: root, indexer: indexer, settle: DefaultSettleDelay}
}

// IsSourceFile reports whether path has a loadable extension.
func IsSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".xlsx":
		return true
	}
	return false
}

// Run watches until ctx is cancelled. It returns the setup error if the
// root cannot be watched at all; per-file indexing errors are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	log.Info().Str("root", w.root).Msg("watching knowledge base folder")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handleCreate(ctx, fw, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, fw *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if err := w.addRecursive(fw, path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("failed to watch new folder")
		}
		return
	}
	if !IsSourceFile(path) {
		return
	}

	// let the writer finish before reading the file
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return
	}

	log.Info().Str("file", path).Msg("new source file detected")
	if err := w.indexer.AddFileOrRebuild(ctx, path, w.root); err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to index new file")
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
