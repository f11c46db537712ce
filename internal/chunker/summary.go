package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	maxSummaryMembers = 30
	maxSummarySig     = 150
	maxSummaryDoc     = 200
)

// FileSummaries builds one synthetic summary chunk per source file, listing
// the file's functions with their signatures and docstrings. Files are
// emitted in first-seen order so repeated runs over the same chunk slice
// produce identical output.
func FileSummaries(chunks []Chunk) []Chunk {
	byFile := make(map[string][]Chunk)
	var order []string
	for _, c := range chunks {
		if !c.IsFunction() {
			continue
		}
		path := c.FilePath()
		if _, seen := byFile[path]; !seen {
			order = append(order, path)
		}
		byFile[path] = append(byFile[path], c)
	}

	summaries := make([]Chunk, 0, len(order))
	for _, path := range order {
		summaries = append(summaries, summaryChunk(path, byFile[path]))
	}
	return summaries
}

func summaryChunk(path string, members []Chunk) Chunk {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", path)
	fmt.Fprintf(&b, "Total Functions: %d\n\n", len(members))
	b.WriteString("Functions in this file:\n")

	n := len(members)
	if n > maxSummaryMembers {
		n = maxSummaryMembers
	}
	for i := 0; i < n; i++ {
		m := members[i]
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, m.Name)
		fmt.Fprintf(&b, "   Signature: %s\n", clip(Signature(m.Code), maxSummarySig))
		if m.Docstring != "" {
			fmt.Fprintf(&b, "   Doc: %s\n", clip(m.Docstring, maxSummaryDoc))
		}
	}
	if len(members) > maxSummaryMembers {
		fmt.Fprintf(&b, "\n... and %d more functions\n", len(members)-maxSummaryMembers)
	}

	return Chunk{
		Location:  path,
		Name:      filepath.Base(path),
		Kind:      KindFileSummary,
		Code:      b.String(),
		Docstring: "Summary of " + path,
		Context:   fmt.Sprintf("File summary with %d functions", len(members)),
		StartLine: 1,
	}
}

// Signature extracts a best-effort signature from a function body: the lines
// from the definition keyword up to the opening brace, capped at ten lines.
// Bodies with no recognizable header fall back to the first non-empty line.
func Signature(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "fn ") && !strings.HasPrefix(t, "pub fn ") &&
			!strings.HasPrefix(t, "function ") && !strings.Contains(t, "=>") &&
			!strings.HasPrefix(t, "async fn ") && !strings.HasPrefix(t, "pub async fn ") {
			continue
		}
		var sig []string
		for j := i; j < len(lines) && j < i+10; j++ {
			sig = append(sig, strings.TrimSpace(lines[j]))
			if strings.Contains(lines[j], "{") {
				break
			}
		}
		return strings.Join(sig, " ")
	}

	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return clip(code, maxSummarySig)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
