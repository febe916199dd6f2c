package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
)

// fakeModel streams its configured chunks through the caller's
// StreamingFunc, optionally failing after a number of chunks.
type fakeModel struct {
	chunks    []string
	failAfter int // -1 never fails
	err       error
	block     bool // ignore chunks and wait for ctx cancellation

	mu      sync.Mutex
	prompts []string
}

func newFakeModel(chunks ...string) *fakeModel {
	return &fakeModel{chunks: chunks, failAfter: -1}
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.mu.Lock()
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, tc.Text)
			}
		}
	}
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	var full strings.Builder
	for i, chunk := range m.chunks {
		if m.failAfter >= 0 && i >= m.failAfter {
			return nil, m.err
		}
		full.WriteString(chunk)
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: full.String()}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (m *fakeModel) promptLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type fakeRetriever struct {
	context  string
	queries  []string
	excluded []string
}

func (r *fakeRetriever) RetrieveExcluding(_ context.Context, query, excludeTurn string) string {
	r.queries = append(r.queries, query)
	r.excluded = append(r.excluded, excludeTurn)
	return r.context
}

type fakeRecorder struct {
	mu    sync.Mutex
	turns []string // "role: text"
	next  int
	err   error
}

func (r *fakeRecorder) RecordTurn(_ context.Context, _, role, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.turns = append(r.turns, role+": "+text)
	r.next++
	return fmt.Sprintf("turn-%d", r.next), nil
}

func (r *fakeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.turns...)
}

func collect(t *testing.T, ch <-chan Fragment) []Fragment {
	t.Helper()
	var frags []Fragment
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return frags
			}
			frags = append(frags, f)
		case <-timeout:
			t.Fatal("stream did not terminate")
		}
	}
}

func TestGenerateStreamFragmentsInOrder(t *testing.T) {
	model := newFakeModel("耐震等級は", "3です。")
	p := New(model, &fakeRetriever{context: "ctx"}, nil, nil)

	frags := collect(t, p.GenerateStream(context.Background(), "耐震等級は？", ""))

	require.Len(t, frags, 3)
	assert.Equal(t, Fragment{Text: "耐震等級は"}, frags[0])
	assert.Equal(t, Fragment{Text: "3です。"}, frags[1])
	assert.Equal(t, Fragment{Done: true}, frags[2])
}

func TestGenerateStreamDoneIsAlwaysTerminal(t *testing.T) {
	model := newFakeModel("a", "b", "c")
	p := New(model, nil, nil, nil)

	frags := collect(t, p.GenerateStream(context.Background(), "q", ""))

	require.NotEmpty(t, frags)
	last := frags[len(frags)-1]
	assert.True(t, last.Done)
	assert.Empty(t, last.Text)
	for _, f := range frags[:len(frags)-1] {
		assert.False(t, f.Done)
	}
}

func TestGenerateStreamErrorMidStream(t *testing.T) {
	model := newFakeModel("前半の回答", "never sent")
	model.failAfter = 1
	model.err = errors.New("upstream 502")
	p := New(model, nil, nil, nil)

	frags := collect(t, p.GenerateStream(context.Background(), "q", ""))

	require.Len(t, frags, 3)
	assert.Equal(t, "前半の回答", frags[0].Text)
	assert.True(t, strings.HasPrefix(frags[1].Text, models.ErrorFragmentPrefix))
	assert.Contains(t, frags[1].Text, "upstream 502")
	assert.True(t, frags[2].Done)
}

func TestGenerateStreamPromptCarriesContextAndQuery(t *testing.T) {
	model := newFakeModel("ok")
	ret := &fakeRetriever{context: "[出典 1: a.pdf - ページ 2]\n本文"}
	p := New(model, ret, nil, nil)

	collect(t, p.GenerateStream(context.Background(), "質問文", ""))

	prompts := model.promptLog()
	require.Len(t, prompts, 2)
	assert.Equal(t, models.SystemPrompt, prompts[0])
	assert.Contains(t, prompts[1], ret.context)
	assert.Contains(t, prompts[1], "質問文")
	assert.Equal(t, []string{"質問文"}, ret.queries)
}

func TestGenerateStreamRecordsTurns(t *testing.T) {
	model := newFakeModel("回答", "です")
	rec := &fakeRecorder{}
	p := New(model, &fakeRetriever{}, rec, nil)

	collect(t, p.GenerateStream(context.Background(), "質問", "sess-1"))

	turns := rec.snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser+": 質問", turns[0])
	assert.Equal(t, models.RoleAssistant+": 回答です", turns[1])
}

// memoryStore plays both recorder and retriever over one turn list, the way
// a live conversation index makes a recorded turn visible immediately.
type memoryStore struct {
	ids   []string
	texts []string
}

func (m *memoryStore) RecordTurn(_ context.Context, _, role, text string) (string, error) {
	id := fmt.Sprintf("turn-%d", len(m.ids)+1)
	m.ids = append(m.ids, id)
	m.texts = append(m.texts, fmt.Sprintf(models.ConversationTagTemplate, role, "s1", text))
	return id, nil
}

func (m *memoryStore) RetrieveExcluding(_ context.Context, _, excludeTurn string) string {
	var parts []string
	for i, text := range m.texts {
		if m.ids[i] == excludeTurn {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func TestGenerateStreamOwnTurnExcludedFromRetrieval(t *testing.T) {
	store := &memoryStore{}
	model := newFakeModel("回答")
	p := New(model, store, store, nil)

	collect(t, p.GenerateStream(context.Background(), "耐震等級について教えてください", "s1"))

	prompts := model.promptLog()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[1], "[会話 (user) セッション:s1]\n耐震等級について教えてください",
		"a request must not retrieve its own recorded question")

	// the turn stays visible to the next request
	model.mu.Lock()
	model.prompts = nil
	model.mu.Unlock()
	collect(t, p.GenerateStream(context.Background(), "地盤調査についても教えてください", "s1"))

	prompts = model.promptLog()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "耐震等級について教えてください")
}

func TestGenerateStreamPassesRecordedTurnIDToRetriever(t *testing.T) {
	ret := &fakeRetriever{}
	p := New(newFakeModel("回答"), ret, &fakeRecorder{}, nil)

	collect(t, p.GenerateStream(context.Background(), "質問", "sess-1"))

	require.Equal(t, []string{"turn-1"}, ret.excluded)
}

func TestGenerateStreamNoSessionSkipsMemory(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(newFakeModel("回答"), nil, rec, nil)

	collect(t, p.GenerateStream(context.Background(), "質問", ""))

	assert.Empty(t, rec.snapshot())
}

func TestGenerateStreamRecorderErrorIsNonFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("store down")}
	p := New(newFakeModel("回答"), nil, rec, nil)

	frags := collect(t, p.GenerateStream(context.Background(), "質問", "sess-1"))

	require.Len(t, frags, 2)
	assert.Equal(t, "回答", frags[0].Text)
	assert.True(t, frags[1].Done)
}

func TestGenerateStreamCancellation(t *testing.T) {
	model := newFakeModel()
	model.block = true
	p := New(model, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.GenerateStream(ctx, "q", "")
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestGenerateStreamCancellationEmitsNoApology(t *testing.T) {
	model := newFakeModel()
	model.block = true
	p := New(model, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.GenerateStream(ctx, "q", "")
	cancel()

	for f := range ch {
		assert.NotContains(t, f.Text, models.ErrorFragmentPrefix)
	}
}

func TestGenerateAppliesRefiner(t *testing.T) {
	model := newFakeModel("ぶっきらぼうな回答")
	refiner := refinerFunc(func(_ context.Context, text string) string {
		return "丁寧な" + text
	})
	p := New(model, nil, nil, refiner)

	got := p.Generate(context.Background(), "質問", "")

	assert.Equal(t, "丁寧なぶっきらぼうな回答", got)
}

func TestGenerateWithoutRefinerReturnsRawAnswer(t *testing.T) {
	p := New(newFakeModel("そのまま", "の回答"), nil, nil, nil)

	got := p.Generate(context.Background(), "質問", "")

	assert.Equal(t, "そのままの回答", got)
}

type refinerFunc func(ctx context.Context, text string) string

func (f refinerFunc) Refine(ctx context.Context, text string) string { return f(ctx, text) }
