package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"rebuild", "add", "upload", "query", "chat", "watch"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestPersistentPreRunLoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  chunk_size: 123\n"), 0o644))

	prev := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = prev })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, 123, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
}

func TestPersistentPreRunMissingConfigUsesDefaults(t *testing.T) {
	prev := cfgPath
	cfgPath = filepath.Join(t.TempDir(), "nope.yaml")
	t.Cleanup(func() { cfgPath = prev })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
}
