package retrieval

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"codescout/internal/chunker"
	"codescout/internal/store"
)

// FileScore is one ranked file from stage one.
type FileScore struct {
	Path  string
	Score float64
}

// RetrieveFiles ranks whole files for the query. When file summary chunks
// are indexed they are ranked directly; otherwise per-function scores from
// a wide retrieval are aggregated per file.
func (e *Engine) RetrieveFiles(query string, topK int) ([]FileScore, error) {
	if !e.cfg.UseFileSummaryChunks {
		return e.filesByAggregation(query, topK)
	}

	pool := e.cfg.CandidatePoolSize
	candidates, err := e.Retrieve(query, pool, true)
	if err != nil {
		return nil, err
	}

	var summaries []Candidate
	for _, c := range candidates {
		if c.IsFileSummary() {
			summaries = append(summaries, c)
		}
	}
	if len(summaries) == 0 {
		fmt.Fprintf(os.Stderr, "warning: no file summary chunks in candidate pool, aggregating function scores\n")
		return filesFromAggregates(candidates, e.cfg.AggregationStrategy, topK), nil
	}

	sortCandidates(summaries)
	if len(summaries) > topK {
		summaries = summaries[:topK]
	}
	files := make([]FileScore, len(summaries))
	for i, c := range summaries {
		files[i] = FileScore{Path: c.Row.Location, Score: c.RerankScore}
	}
	return files, nil
}

// filesByAggregation is the no-summaries fallback: a wide function
// retrieval collapsed to per-file aggregates.
func (e *Engine) filesByAggregation(query string, topK int) ([]FileScore, error) {
	pool := topK * 5
	if pool > e.cfg.CandidatePoolSize {
		pool = e.cfg.CandidatePoolSize
	}
	candidates, err := e.Retrieve(query, pool, true)
	if err != nil {
		return nil, err
	}
	return filesFromAggregates(candidates, e.cfg.AggregationStrategy, topK), nil
}

func filesFromAggregates(candidates []Candidate, strategy Strategy, topK int) []FileScore {
	aggregated := AggregateFileScores(candidates, strategy)
	files := make([]FileScore, 0, len(aggregated))
	for path, score := range aggregated {
		files = append(files, FileScore{Path: path, Score: score})
	}
	sort.SliceStable(files, func(a, b int) bool {
		if files[a].Score != files[b].Score {
			return files[a].Score > files[b].Score
		}
		return files[a].Path < files[b].Path
	})
	if len(files) > topK {
		files = files[:topK]
	}
	return files
}

// RetrieveTwoStage runs the file-first pipeline: rank files, pull every
// function in the top files, re-score those with the cross-encoder, and
// blend function and file scores half and half. Only functions from
// stage-one files can appear in the result.
func (e *Engine) RetrieveTwoStage(query string, topK int) ([]Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("retrieval: top_k must be positive, got %d", topK)
	}

	files, err := e.RetrieveFiles(query, e.cfg.FileRetrievalTopK)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no relevant files found for query\n")
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var functions []Candidate
	for _, f := range files {
		for _, row := range e.functionsInFile(f.Path) {
			functions = append(functions, Candidate{
				Row:       row,
				FileScore: f.Score,
			})
		}
	}
	if len(functions) == 0 {
		fmt.Fprintf(os.Stderr, "no functions found in top files\n")
		return nil, nil
	}

	texts := make([]string, len(functions))
	for i, c := range functions {
		texts[i] = e.comparisonText(c)
	}
	scores, err := e.encoder.Score(query, texts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cross-encoder scoring failed: %v\n", err)
		scores = make([]float64, len(functions))
	}
	for i := range functions {
		functions[i].RerankScore = SanitizeScore(scores[i])
		functions[i].CombinedScore = 0.5*functions[i].FileScore + 0.5*functions[i].RerankScore
		functions[i].HasCombined = true
	}

	sortCandidates(functions)
	if len(functions) > topK {
		functions = functions[:topK]
	}
	return functions, nil
}

// functionsInFile returns every function row whose location resolves to the
// given file. Paths are normalized to forward slashes and lowercased; an
// exact match or either path being a suffix of the other counts, so
// relative and absolute spellings of the same file still line up.
// Caller holds e.mu.
func (e *Engine) functionsInFile(filePath string) []store.Row {
	target := normalizePath(filePath)

	var rows []store.Row
	for _, row := range e.rows {
		if row.Kind == chunker.KindFile || row.Kind == chunker.KindFileSummary {
			continue
		}
		rowFile := normalizePath(chunker.FilePathOf(row.Location))
		if rowFile == target ||
			strings.HasSuffix(rowFile, target) ||
			strings.HasSuffix(target, rowFile) {
			rows = append(rows, row)
		}
	}
	return rows
}

func normalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}
