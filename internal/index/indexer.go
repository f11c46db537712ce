// Package index builds an index generation: it walks a source tree, chunks
// files, embeds the chunks, and replaces the persisted index wholesale.
package index

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codescout/internal/chunker"
	"codescout/internal/embedder"
	"codescout/internal/retrieval"
	"codescout/internal/store"
	"codescout/internal/walker"
)

const embedBatchSize = 32

// Stats reports indexing results.
type Stats struct {
	FilesTotal  int
	FilesFailed int
	ChunksTotal int
	Generation  string
}

// Indexer builds index generations.
type Indexer struct {
	store     store.Store
	embedder  embedder.Embedder
	extractor *chunker.Extractor
	cfg       retrieval.Config
	workers   int
}

// New creates an indexer. The config is validated here so mode conflicts
// surface before any files are read.
func New(st store.Store, emb embedder.Embedder, cfg retrieval.Config, workers int) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Indexer{
		store:     st,
		embedder:  emb,
		extractor: chunker.NewExtractor(),
		cfg:       cfg,
		workers:   workers,
	}, nil
}

// Index walks root, chunks and embeds everything, and replaces the stored
// index. Chunks are immutable for the generation's lifetime; re-indexing
// replaces them wholesale.
func (idx *Indexer) Index(root string) (*Stats, error) {
	chunks, stats, err := idx.collectChunks(root)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return stats, fmt.Errorf("index: no chunks extracted from %s", root)
	}

	// Deterministic insert order regardless of walk concurrency.
	sort.Slice(chunks, func(a, b int) bool {
		if chunks[a].Location != chunks[b].Location {
			return chunks[a].Location < chunks[b].Location
		}
		return chunks[a].StartLine < chunks[b].StartLine
	})

	if idx.cfg.UseFileSummaryChunks {
		chunks = append(chunks, chunker.FileSummaries(chunks)...)
	}

	entries := make([]store.Entry, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		entries[i], texts[i] = idx.entryFor(c)
	}

	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embeddings, err := idx.embedder.Embed(texts[i:end])
		if err != nil {
			return stats, fmt.Errorf("embed chunks: %w", err)
		}
		for j, v := range embeddings {
			entries[i+j].Embedding = v
		}
	}

	// Reset is total: no partial state survives into the new generation.
	if err := idx.store.Reset(); err != nil {
		return stats, fmt.Errorf("reset index: %w", err)
	}
	if err := idx.store.InsertChunks(entries); err != nil {
		return stats, fmt.Errorf("store chunks: %w", err)
	}

	generation := uuid.NewString()
	for key, value := range map[string]string{
		store.MetaEmbeddingModel:  idx.embedder.Model(),
		store.MetaIndexGeneration: generation,
		store.MetaIndexMode:       string(idx.cfg.Mode),
	} {
		if err := idx.store.SetMeta(key, value); err != nil {
			return stats, fmt.Errorf("set meta %s: %w", key, err)
		}
	}

	stats.ChunksTotal = len(entries)
	stats.Generation = generation
	return stats, nil
}

// collectChunks walks root and chunks files concurrently. A file that fails
// to read or parse is logged and skipped; it never aborts the run.
func (idx *Indexer) collectChunks(root string) ([]chunker.Chunk, *Stats, error) {
	fileCh, walkErrCh := walker.Walk(root, idx.extractor.Extensions())

	var (
		mu     sync.Mutex
		chunks []chunker.Chunk
		stats  Stats
	)

	var g errgroup.Group
	g.SetLimit(idx.workers)
	for fi := range fileCh {
		fi := fi
		g.Go(func() error {
			src, err := os.ReadFile(fi.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: read %s: %v\n", fi.RelPath, err)
				mu.Lock()
				stats.FilesFailed++
				mu.Unlock()
				return nil
			}
			fileChunks, err := idx.extractor.ChunkFile(fi.RelPath, src)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: chunk %s: %v\n", fi.RelPath, err)
				mu.Lock()
				stats.FilesFailed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			stats.FilesTotal++
			chunks = append(chunks, fileChunks...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if err := <-walkErrCh; err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return chunks, &stats, nil
}

// entryFor builds the persisted entry and the enrichment text that gets
// embedded. In full-code mode the body is the stored document; in
// docstring-only mode the document is name+docstring+signature and the body
// is stashed as auxiliary metadata so results can still show code.
func (idx *Indexer) entryFor(c chunker.Chunk) (store.Entry, string) {
	entry := store.Entry{
		Location:  c.Location,
		Name:      c.Name,
		Kind:      c.Kind,
		StartLine: c.StartLine,
		Context:   c.Context,
		Docstring: c.Docstring,
	}

	if idx.cfg.Mode == retrieval.ModeDocstringOnly && c.IsFunction() {
		doc := strings.Join([]string{c.Name, c.Docstring, chunker.Signature(c.Code)}, "\n")
		entry.Document = doc
		entry.FullCode = c.Code
		return entry, doc
	}

	entry.Document = c.Code
	preview := c.Code
	if len(preview) > 256 {
		preview = preview[:256]
	}
	return entry, c.Name + "\n" + c.Docstring + "\n" + preview
}
