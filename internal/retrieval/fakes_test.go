package retrieval

import (
	"hash/fnv"
	"math"
	"sort"

	"codescout/internal/lexical"
	"codescout/internal/store"
)

// memStore is an in-memory store.Store for tests.
type memStore struct {
	rows       []store.Row
	embeddings [][]float32
	meta       map[string]string
}

func newMemStore() *memStore {
	return &memStore{meta: make(map[string]string)}
}

func (m *memStore) InsertChunks(entries []store.Entry) error {
	for _, e := range entries {
		m.rows = append(m.rows, store.Row{
			ID:        int64(len(m.rows) + 1),
			Location:  e.Location,
			Name:      e.Name,
			Kind:      e.Kind,
			StartLine: e.StartLine,
			Context:   e.Context,
			Docstring: e.Docstring,
			Document:  e.Document,
			FullCode:  e.FullCode,
		})
		m.embeddings = append(m.embeddings, e.Embedding)
	}
	return nil
}

func (m *memStore) Query(embedding []float32, limit int) ([]store.Hit, error) {
	hits := make([]store.Hit, len(m.rows))
	for i, row := range m.rows {
		hits[i] = store.Hit{Row: row, Distance: cosineDistance(embedding, m.embeddings[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *memStore) All() ([]store.Row, error) { return m.rows, nil }
func (m *memStore) Count() (int, error)       { return len(m.rows), nil }

func (m *memStore) Reset() error {
	m.rows, m.embeddings = nil, nil
	return nil
}

func (m *memStore) GetMeta(key string) (string, error) {
	v, ok := m.meta[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memStore) SetMeta(key, value string) error {
	m.meta[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// fakeEmbedder maps token counts into fixed hash buckets, so texts sharing
// tokens land near each other. Deterministic across runs.
type fakeEmbedder struct{}

const fakeDim = 32

func (fakeEmbedder) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, fakeDim)
		for _, tok := range lexical.Tokenize(t) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			v[h.Sum32()%fakeDim]++
		}
		out[i] = v
	}
	return out, nil
}

func (f fakeEmbedder) EmbedSingle(text string) ([]float32, error) {
	vs, err := f.Embed([]string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (fakeEmbedder) Model() string { return "fake" }

// fakeEncoder scores by query/text token overlap.
type fakeEncoder struct{}

func (fakeEncoder) Score(query string, texts []string) ([]float64, error) {
	queryTokens := make(map[string]bool)
	for _, tok := range lexical.Tokenize(query) {
		queryTokens[tok] = true
	}
	scores := make([]float64, len(texts))
	for i, t := range texts {
		seen := make(map[string]bool)
		for _, tok := range lexical.Tokenize(t) {
			if queryTokens[tok] && !seen[tok] {
				seen[tok] = true
				scores[i]++
			}
		}
	}
	return scores, nil
}

// zeroEncoder returns 0 for everything, isolating boost behavior.
type zeroEncoder struct{}

func (zeroEncoder) Score(query string, texts []string) ([]float64, error) {
	return make([]float64, len(texts)), nil
}

// entry builds a store.Entry for a function chunk with a fake embedding.
func entry(location, name, docstring, code string) store.Entry {
	doc := name + "\n" + docstring + "\n" + code
	emb, _ := fakeEmbedder{}.EmbedSingle(doc)
	return store.Entry{
		Location:  location,
		Name:      name,
		Kind:      "function_item",
		StartLine: 1,
		Context:   docstring,
		Docstring: docstring,
		Document:  code,
		Embedding: emb,
	}
}

// summaryEntry builds a file summary entry (location has no name suffix).
func summaryEntry(path, text string) store.Entry {
	emb, _ := fakeEmbedder{}.EmbedSingle(text)
	return store.Entry{
		Location:  path,
		Name:      path,
		Kind:      "file_summary",
		StartLine: 1,
		Context:   text,
		Document:  text,
		Embedding: emb,
	}
}
