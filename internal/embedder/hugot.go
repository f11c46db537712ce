package embedder

import (
	"fmt"
	"path/filepath"

	"github.com/knights-analytics/hugot"
)

// HugotEmbedder runs a local ONNX sentence-transformer in process. No
// network dependency, which makes indexing work offline.
type HugotEmbedder struct {
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
	model   string
}

// NewHugotEmbedder loads the ONNX model at modelPath into an in-process
// hugot session.
func NewHugotEmbedder(modelPath string) (*HugotEmbedder, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}

	return &HugotEmbedder{
		session: session,
		run:     run,
		model:   filepath.Base(modelPath),
	}, nil
}

// Model returns the model directory name.
func (e *HugotEmbedder) Model() string { return e.model }

// Embed runs the pipeline over all texts in one call.
func (e *HugotEmbedder) Embed(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	embeddings, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	return embeddings, nil
}

// EmbedSingle embeds a single text and returns the embedding vector.
func (e *HugotEmbedder) EmbedSingle(text string) ([]float32, error) {
	results, err := e.Embed([]string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Close releases the ONNX session.
func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}
