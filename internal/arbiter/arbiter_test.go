package arbiter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/llm"
	"codescout/internal/retrieval"
	"codescout/internal/store"
)

type fakeChat struct {
	reply string
	err   error
	seen  []llm.Message
}

func (f *fakeChat) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	f.seen = messages
	return f.reply, f.err
}

func candidates() []retrieval.Candidate {
	return []retrieval.Candidate{
		{Row: store.Row{Location: "src/a.rs:first", Name: "first", Docstring: "First candidate"}},
		{Row: store.Row{Location: "src/b.rs:second", Name: "second"}},
		{Row: store.Row{Location: "src/c.rs:third", Name: "third"}},
	}
}

func TestSelect_ParsesNumber(t *testing.T) {
	chat := &fakeChat{reply: "The answer is 2."}
	chosen, err := New(chat).Select(context.Background(), "which one?", candidates())
	require.NoError(t, err)
	assert.Equal(t, "second", chosen.Row.Name)

	require.Len(t, chat.seen, 2)
	assert.Equal(t, "system", chat.seen[0].Role)
	assert.Contains(t, chat.seen[1].Content, "1. first")
	assert.Contains(t, chat.seen[1].Content, "3. third")
}

func TestSelect_UnparseableFallsBackToTop(t *testing.T) {
	chat := &fakeChat{reply: "I cannot decide."}
	chosen, err := New(chat).Select(context.Background(), "which one?", candidates())
	require.NoError(t, err)
	assert.Equal(t, "first", chosen.Row.Name)
}

func TestSelect_OutOfRangeFallsBackToTop(t *testing.T) {
	chat := &fakeChat{reply: "42"}
	chosen, err := New(chat).Select(context.Background(), "which one?", candidates())
	require.NoError(t, err)
	assert.Equal(t, "first", chosen.Row.Name)
}

func TestSelect_ChatError(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	_, err := New(chat).Select(context.Background(), "which one?", candidates())
	assert.Error(t, err)
}

func TestSelect_NoCandidates(t *testing.T) {
	_, err := New(&fakeChat{reply: "1"}).Select(context.Background(), "which one?", nil)
	assert.Error(t, err)
}
