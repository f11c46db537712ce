// Package retrieval implements hybrid code search: vector and keyword
// retrieval fused into one candidate pool, then cross-encoder re-ranking
// with deterministic name boosts and optional file-level aggregation.
package retrieval

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"codescout/internal/embedder"
	"codescout/internal/lexical"
	"codescout/internal/rerank"
	"codescout/internal/store"
)

// ErrEmptyIndex is returned by Load when the persisted index holds no
// chunks. An empty index must be distinguishable from "no match found".
var ErrEmptyIndex = errors.New("retrieval: index is empty")

// Engine answers retrieve(query) over one loaded index generation.
type Engine struct {
	store   store.Store
	embed   embedder.Embedder
	encoder rerank.CrossEncoder
	cfg     Config

	// mu guards rows and bm25. Load takes it exclusively because a
	// rebuild invalidates the row positions in-flight lookups depend on.
	mu   sync.RWMutex
	rows []store.Row
	bm25 *lexical.Index
}

// NewEngine wires an engine over the given store, embedder, and
// cross-encoder. The config is validated up front so conflicts surface
// before any work starts.
func NewEngine(st store.Store, emb embedder.Embedder, enc rerank.CrossEncoder, cfg Config) (*Engine, error) {
	if st == nil {
		return nil, errors.New("retrieval: store is required")
	}
	if emb == nil {
		return nil, errors.New("retrieval: embedder is required")
	}
	if enc == nil {
		return nil, errors.New("retrieval: cross-encoder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{store: st, embed: emb, encoder: enc, cfg: cfg}, nil
}

// Load reads all persisted chunks and rebuilds the keyword index from their
// metadata, without re-parsing any source. It must complete before the
// first Retrieve and must not run concurrently with one.
func (e *Engine) Load() error {
	rows, err := e.store.All()
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if len(rows) == 0 {
		return ErrEmptyIndex
	}
	if err := e.checkMeta(); err != nil {
		return err
	}

	// The keyword index covers exactly the stored document text, so in
	// docstring-only mode the stashed body stays out of it.
	docs := make([][]string, len(rows))
	for i, r := range rows {
		docs[i] = lexical.Tokenize(r.Name + "\n" + r.Docstring + "\n" + r.Document)
	}

	e.mu.Lock()
	e.rows = rows
	e.bm25 = lexical.New(docs)
	e.mu.Unlock()
	return nil
}

// checkMeta fails fast when the persisted index was built with a different
// embedding model or index mode than the engine is configured with. Query
// vectors from a mismatched model would be garbage, not wrong-but-plausible.
// Indexes predating the meta keys skip the check.
func (e *Engine) checkMeta() error {
	model, err := e.store.GetMeta(store.MetaEmbeddingModel)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load index meta: %w", err)
	case model != e.embed.Model():
		return fmt.Errorf("retrieval: index built with embedding model %q, engine configured with %q", model, e.embed.Model())
	}

	mode, err := e.store.GetMeta(store.MetaIndexMode)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load index meta: %w", err)
	case mode != string(e.cfg.Mode):
		return fmt.Errorf("retrieval: index built in %q mode, engine configured for %q", mode, e.cfg.Mode)
	}
	return nil
}

// Retrieve returns the topK most relevant candidates for the query,
// ordered best first. With hybrid off it is pure vector similarity. With
// hybrid on, vector and keyword pools are unioned and re-ranked.
func (e *Engine) Retrieve(query string, topK int, hybrid bool) ([]Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("retrieval: top_k must be positive, got %d", topK)
	}
	if topK > e.cfg.CandidatePoolSize {
		return nil, fmt.Errorf("retrieval: top_k %d exceeds candidate pool size %d", topK, e.cfg.CandidatePoolSize)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !hybrid {
		return e.vectorOnly(query, topK)
	}
	if e.bm25 == nil || e.bm25.Len() == 0 {
		fmt.Fprintf(os.Stderr, "warning: keyword index unavailable, degrading to vector-only retrieval\n")
		return e.vectorOnly(query, topK)
	}

	queryEmbedding, err := e.queryEmbedding(query)
	if err != nil {
		return nil, err
	}

	limit := e.cfg.CandidatePoolSize
	if n := len(e.rows); limit > n {
		limit = n
	}
	hits, err := e.store.Query(queryEmbedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	seen := make(map[int64]bool, len(hits))
	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		seen[h.ID] = true
		candidates = append(candidates, Candidate{
			Row:         h.Row,
			VectorScore: 1 - h.Distance,
			FromVector:  true,
		})
	}

	// Keyword pool: top-N row positions by BM25 score, skipping rows the
	// vector pool already contributed so scoring fields never diverge.
	scores := e.bm25.Scores(lexical.Tokenize(query))
	for _, idx := range topIndices(scores, e.cfg.CandidatePoolSize) {
		row := e.rows[idx]
		if seen[row.ID] {
			continue
		}
		candidates = append(candidates, Candidate{
			Row:         row,
			BM25Score:   scores[idx],
			FromKeyword: true,
		})
	}

	return e.scoreAndRank(query, candidates, topK), nil
}

// vectorOnly is the non-hybrid path: plain vector top-k, ordered by
// similarity, no re-ranking.
func (e *Engine) vectorOnly(query string, topK int) ([]Candidate, error) {
	queryEmbedding, err := e.queryEmbedding(query)
	if err != nil {
		return nil, err
	}
	hits, err := e.store.Query(queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		score := SanitizeScore(1 - h.Distance)
		candidates = append(candidates, Candidate{
			Row:         h.Row,
			VectorScore: score,
			RerankScore: score,
			FromVector:  true,
		})
	}
	return candidates, nil
}

// queryEmbedding embeds the query, optionally averaging phrasing variants
// into one vector.
func (e *Engine) queryEmbedding(query string) ([]float32, error) {
	if !e.cfg.UseQueryExpansion {
		v, err := e.embed.EmbedSingle(query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return v, nil
	}

	variants := []string{
		query,
		"implement " + query,
		"function that " + query,
	}
	vectors, err := e.embed.Embed(variants)
	if err != nil {
		return nil, fmt.Errorf("embed query variants: %w", err)
	}
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range v {
			mean[i] += v[i]
		}
	}
	n := float32(len(vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean, nil
}

// topIndices returns the positions of the n highest scores, best first.
func topIndices(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}
