// Package rerank scores query/passage pairs with a cross-encoder model.
package rerank

// CrossEncoder scores each text against the query. Higher is more relevant.
// Scores are raw model logits; callers must sanitize before comparing.
type CrossEncoder interface {
	Score(query string, texts []string) ([]float64, error)
}
