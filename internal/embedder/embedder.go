// Package embedder provides text embedding backends. All backends return
// vectors in input order so callers can zip texts with results.
package embedder

// Embedder turns texts into dense vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(texts []string) ([][]float32, error)
	// EmbedSingle embeds one text.
	EmbedSingle(text string) ([]float32, error)
	// Model returns the configured model name, recorded in index metadata
	// so a search against an index built with a different model fails fast.
	Model() string
}
