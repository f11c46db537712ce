package retrieval

import (
	"strings"

	"codescout/internal/chunker"
	"codescout/internal/store"
)

// Candidate is a chunk augmented with query-time scores. Candidates are
// transient; they are built per query and never persisted.
type Candidate struct {
	Row store.Row

	// Set by the retriever, depending on which index produced the candidate.
	VectorScore float64
	BM25Score   float64
	FromVector  bool
	FromKeyword bool

	// Set by the re-ranker.
	RerankScore float64

	// Set when file aggregation or two-stage retrieval is active.
	FileScore     float64
	CombinedScore float64
	HasCombined   bool
}

// FilePath returns the containing file of the candidate.
func (c Candidate) FilePath() string {
	return chunker.FilePathOf(c.Row.Location)
}

// IsFileSummary reports whether the candidate is a synthetic file summary
// rather than a function. A summary's location carries no name suffix.
func (c Candidate) IsFileSummary() bool {
	return c.Row.Kind == chunker.KindFileSummary || !strings.Contains(c.Row.Location, ":")
}

// finalScore is what the candidate is ordered by.
func (c Candidate) finalScore() float64 {
	if c.HasCombined {
		return c.CombinedScore
	}
	return c.RerankScore
}
