package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefineReturnsRewrittenText(t *testing.T) {
	r := NewOllamaRefiner(newFakeModel("柔らかい回答です。"), time.Second)

	got := r.Refine(context.Background(), "回答。")

	assert.Equal(t, "柔らかい回答です。", got)
}

func TestRefineKeepsOriginalOnError(t *testing.T) {
	model := newFakeModel()
	model.failAfter = 0
	model.err = errors.New("model unavailable")
	r := NewOllamaRefiner(model, time.Second)

	got := r.Refine(context.Background(), "元の回答")

	assert.Equal(t, "元の回答", got)
}

func TestRefineKeepsOriginalOnEmptyRewrite(t *testing.T) {
	r := NewOllamaRefiner(newFakeModel("   "), time.Second)

	got := r.Refine(context.Background(), "元の回答")

	assert.Equal(t, "元の回答", got)
}

func TestRefineKeepsOriginalOnTimeout(t *testing.T) {
	model := newFakeModel()
	model.block = true
	r := NewOllamaRefiner(model, 50*time.Millisecond)

	start := time.Now()
	got := r.Refine(context.Background(), "元の回答")

	assert.Equal(t, "元の回答", got)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRefineEmptyInputUnchanged(t *testing.T) {
	model := newFakeModel("should not be called")
	r := NewOllamaRefiner(model, time.Second)

	assert.Equal(t, "", r.Refine(context.Background(), ""))
	assert.Empty(t, model.promptLog())
}

func TestRefineDefaultTimeout(t *testing.T) {
	r := NewOllamaRefiner(newFakeModel("x"), 0)

	assert.Equal(t, DefaultRefineTimeout, r.timeout)
}
