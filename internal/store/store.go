// Package store persists code chunks and their embeddings and answers
// nearest-neighbor queries over them.
package store

import "errors"

// Meta keys written at index time and read back at search time.
const (
	MetaEmbeddingModel  = "embedding_model"
	MetaIndexGeneration = "index_generation"
	MetaIndexMode       = "index_mode"
)

// ErrNotFound is returned by GetMeta when the key has never been set.
var ErrNotFound = errors.New("store: not found")

// Row is a persisted chunk as read back from the store.
type Row struct {
	ID        int64
	Location  string
	Name      string
	Kind      string
	StartLine int
	Context   string
	Docstring string
	// Document is the text that was embedded.
	Document string
	// FullCode is the complete function body. Empty in docstring-only
	// indexes, where Document already holds everything that was stored.
	FullCode string
}

// Code returns the best available body text for the row.
func (r Row) Code() string {
	if r.FullCode != "" {
		return r.FullCode
	}
	return r.Document
}

// Entry is a chunk plus its embedding, ready to insert.
type Entry struct {
	Location  string
	Name      string
	Kind      string
	StartLine int
	Context   string
	Docstring string
	Document  string
	FullCode  string
	Embedding []float32
}

// Hit is a row returned from a vector query with its cosine distance.
type Hit struct {
	Row
	Distance float64
}

// Store is the persistence boundary. Implementations must keep row IDs
// stable between All and Query so callers can join the two result sets.
type Store interface {
	// InsertChunks writes entries in a single transaction.
	InsertChunks(entries []Entry) error
	// Query returns the limit nearest rows to the embedding, closest first.
	Query(embedding []float32, limit int) ([]Hit, error)
	// All returns every row ordered by ID.
	All() ([]Row, error)
	// Count returns the number of stored chunks.
	Count() (int, error)
	// Reset deletes all chunks but keeps metadata.
	Reset() error
	GetMeta(key string) (string, error)
	SetMeta(key, value string) error
	Close() error
}
