package chunker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/rust"
)

// Kinds for chunks that don't correspond to a single function body. Function
// chunks carry the tree-sitter node type of the definition instead.
const (
	KindFile        = "file"
	KindFileSummary = "file_summary"
)

// maxChunkBytes caps stored chunk bodies; anything past it is cut and marked.
const maxChunkBytes = 5000

// Chunk is one addressable code unit extracted from a source file.
type Chunk struct {
	// Location is "path:qualified_name" for functions, or the bare file path
	// for whole-file fallback and file-summary chunks.
	Location  string
	Name      string
	Kind      string
	Code      string
	Docstring string
	Context   string
	StartLine int
}

// IsFunction reports whether the chunk is an executable function/method unit
// rather than a whole-file fallback or a file summary.
func (c Chunk) IsFunction() bool {
	return c.Kind != KindFile && c.Kind != KindFileSummary
}

// FilePath returns the file the chunk belongs to.
func (c Chunk) FilePath() string {
	return FilePathOf(c.Location)
}

// FilePathOf strips the ":qualified_name" suffix from a chunk location.
// The cut happens at the first colon whose suffix holds no path separator,
// so Windows drive letters survive and qualified names containing their own
// colons ("Auth::create_token") are removed whole.
func FilePathOf(location string) string {
	for i := 0; i < len(location); i++ {
		if location[i] != ':' {
			continue
		}
		if !strings.ContainsAny(location[i+1:], `/\`) {
			return location[:i]
		}
	}
	return location
}

type extractFunc func(src []byte, path string, root *sitter.Node) []Chunk

type grammar struct {
	language *sitter.Language
	extract  extractFunc
}

// Extractor parses source files and extracts function-level chunks.
// It is stateless and safe for concurrent use.
type Extractor struct {
	grammars map[string]grammar // extension (without dot) → grammar
}

// NewExtractor creates an extractor with the Rust and JavaScript grammars
// registered.
func NewExtractor() *Extractor {
	return &Extractor{
		grammars: map[string]grammar{
			"rs": {language: rust.GetLanguage(), extract: extractRust},
			"js": {language: javascript.GetLanguage(), extract: extractJS},
		},
	}
}

// ChunkFile parses content and returns one chunk per function/method body.
// Files with no registered grammar yield a single whole-file fallback chunk.
// Files with a registered grammar but no function bodies yield no chunks.
// A parse failure is returned to the caller; it must not abort sibling files.
func (e *Extractor) ChunkFile(path string, content []byte) ([]Chunk, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	g, ok := e.grammars[ext]
	if !ok {
		return []Chunk{fallbackChunk(path, content)}, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.language)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	return g.extract(content, path, tree.RootNode()), nil
}

// Extensions returns the set of registered file extensions (without dot).
func (e *Extractor) Extensions() map[string]bool {
	exts := make(map[string]bool, len(e.grammars))
	for ext := range e.grammars {
		exts[ext] = true
	}
	return exts
}

func fallbackChunk(path string, content []byte) Chunk {
	return Chunk{
		Location:  path,
		Name:      filepath.Base(path),
		Kind:      KindFile,
		Code:      string(content),
		StartLine: 1,
	}
}

// newFunctionChunk assembles a function chunk: location key, context line,
// and the size-capped body.
func newFunctionChunk(path, name, kind, code, docstring string, startLine int) Chunk {
	sig := signatureLine(code)
	ctx := sig
	if docstring != "" {
		ctx = docstring + "\n" + sig
	}
	if len(code) > maxChunkBytes {
		code = code[:maxChunkBytes] + "\n... (truncated)"
	}
	return Chunk{
		Location:  path + ":" + name,
		Name:      name,
		Kind:      kind,
		Code:      code,
		Docstring: docstring,
		Context:   ctx,
		StartLine: startLine,
	}
}

// signatureLine returns the first line of a definition, or a 100-byte prefix
// when the definition is a one-liner.
func signatureLine(code string) string {
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		return code[:i]
	}
	if len(code) > 100 {
		return code[:100]
	}
	return code
}
