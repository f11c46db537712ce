package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/store"
)

func seedStore(t *testing.T, entries []store.Entry) *memStore {
	t.Helper()
	st := newMemStore()
	require.NoError(t, st.InsertChunks(entries))
	return st
}

func distractors() []store.Entry {
	return []store.Entry{
		entry("src/config.rs:parse_config", "parse_config", "Parses configuration from disk", "fn parse_config() {}"),
		entry("src/net.rs:open_connection", "open_connection", "Opens a tcp connection", "fn open_connection() {}"),
		entry("src/db.rs:run_migration", "run_migration", "Runs database migrations", "fn run_migration() {}"),
		entry("src/log.rs:write_log", "write_log", "Writes a log line", "fn write_log() {}"),
		entry("src/fs.rs:read_file", "read_file", "Reads a file into memory", "fn read_file() {}"),
		entry("src/math.rs:mean", "mean", "Computes the arithmetic mean", "fn mean() {}"),
		entry("src/render.rs:draw_frame", "draw_frame", "Draws one frame", "fn draw_frame() {}"),
		entry("src/queue.rs:push_job", "push_job", "Pushes a job onto the queue", "fn push_job() {}"),
		entry("src/cache.rs:evict_entry", "evict_entry", "Evicts the oldest cache entry", "fn evict_entry() {}"),
	}
}

func TestNewEngine_Validation(t *testing.T) {
	st := newMemStore()

	_, err := NewEngine(nil, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	assert.Error(t, err)

	_, err = NewEngine(st, nil, fakeEncoder{}, DefaultConfig())
	assert.Error(t, err)

	_, err = NewEngine(st, fakeEmbedder{}, nil, DefaultConfig())
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.CandidatePoolSize = 0
	_, err = NewEngine(st, fakeEmbedder{}, fakeEncoder{}, bad)
	assert.Error(t, err)

	bad = DefaultConfig()
	bad.Mode = "both_disabled"
	_, err = NewEngine(st, fakeEmbedder{}, fakeEncoder{}, bad)
	assert.Error(t, err)
}

func TestLoad_EmptyIndex(t *testing.T) {
	engine, err := NewEngine(newMemStore(), fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Load(), ErrEmptyIndex)
}

func TestLoad_RejectsMismatchedEmbeddingModel(t *testing.T) {
	st := seedStore(t, distractors())
	require.NoError(t, st.SetMeta(store.MetaEmbeddingModel, "some-other-model"))

	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)

	err = engine.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "some-other-model")
}

func TestLoad_RejectsMismatchedIndexMode(t *testing.T) {
	st := seedStore(t, distractors())
	require.NoError(t, st.SetMeta(store.MetaIndexMode, string(ModeDocstringOnly)))

	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	assert.Error(t, engine.Load())
}

func TestLoad_AcceptsMatchingMeta(t *testing.T) {
	st := seedStore(t, distractors())
	require.NoError(t, st.SetMeta(store.MetaEmbeddingModel, "fake"))
	require.NoError(t, st.SetMeta(store.MetaIndexMode, string(ModeFullCode)))

	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, engine.Load())
}

func TestLoad_DocstringOnlyKeepsBodyOutOfKeywordIndex(t *testing.T) {
	doc := "create_token\nCreates a token\nfn create_token() {"
	emb, _ := fakeEmbedder{}.EmbedSingle(doc)
	st := seedStore(t, []store.Entry{{
		Location:  "src/auth.rs:create_token",
		Name:      "create_token",
		Kind:      "function_item",
		StartLine: 1,
		Docstring: "Creates a token",
		Document:  doc,
		FullCode:  "fn create_token() { zanzibar_secret() }",
		Embedding: emb,
	}})

	cfg := DefaultConfig()
	cfg.Mode = ModeDocstringOnly
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, cfg)
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	scores := engine.bm25.Scores([]string{"zanzibar_secret"})
	for _, s := range scores {
		assert.Equal(t, 0.0, s, "stashed body text must not reach the keyword index")
	}
}

func TestRetrieve_TopKExceedsPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CandidatePoolSize = 5

	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, cfg)
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	_, err = engine.Retrieve("anything", 10, true)
	assert.Error(t, err)
}

func TestRetrieve_PoolContainment(t *testing.T) {
	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	results, err := engine.Retrieve("read a file", 3, true)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)
}

func TestRetrieve_EndToEndJWT(t *testing.T) {
	entries := append(distractors(),
		entry("src/auth.rs:create_jwt_token", "create_jwt_token",
			"Creates a JWT token for the given user",
			"fn create_jwt_token(user: &str) -> String { sign(user) }"),
	)

	st := seedStore(t, entries)
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	results, err := engine.Retrieve("How do I create a JWT token?", 5, true)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "create_jwt_token", results[0].Row.Name)
	assert.Equal(t, "src/auth.rs:create_jwt_token", results[0].Row.Location)
}

func TestRetrieve_DegradesToVectorOnlyWithoutKeywordIndex(t *testing.T) {
	// Hybrid requested but the keyword index was never built: retrieval
	// must degrade to vector-only instead of failing or returning nothing.
	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)

	results, err := engine.Retrieve("reads a file into memory", 3, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "read_file", results[0].Row.Name)
	for _, c := range results {
		assert.True(t, c.FromVector)
		assert.False(t, c.FromKeyword)
		assert.Equal(t, c.VectorScore, c.RerankScore, "degraded path carries vector scores only")
	}
}

func TestRetrieve_NonHybridIsVectorOrder(t *testing.T) {
	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	results, err := engine.Retrieve("reads a file into memory", 3, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "read_file", results[0].Row.Name)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].VectorScore, results[i].VectorScore)
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	first, err := engine.Retrieve("push a job onto the queue", 5, true)
	require.NoError(t, err)
	second, err := engine.Retrieve("push a job onto the queue", 5, true)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Row.Location, second[i].Row.Location)
	}
}

func TestRetrieve_FileAggregationBlendsScores(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseFileAggregation = true
	cfg.AggregationStrategy = StrategyMax
	cfg.FileWeight = 0.5

	st := seedStore(t, distractors())
	engine, err := NewEngine(st, fakeEmbedder{}, fakeEncoder{}, cfg)
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	results, err := engine.Retrieve("writes a log line", 5, true)
	require.NoError(t, err)
	for _, c := range results {
		assert.True(t, c.HasCombined)
		assert.InDelta(t, 0.5*c.FileScore+0.5*c.RerankScore, c.CombinedScore, 1e-9)
	}
}
