// Package lexical implements BM25 scoring over tokenized code chunks. The
// index is rebuilt in memory from the persisted chunk metadata on every load,
// so it never needs its own on-disk format.
package lexical

import (
	"math"
	"regexp"
	"strings"
)

const (
	k1      = 1.5
	b       = 0.75
	epsilon = 0.25
)

var wordPattern = regexp.MustCompile(`\w+`)

// Tokenize lowercases text and splits it into word tokens. Identifiers keep
// their underscores; punctuation and operators are dropped.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Index is a BM25 (Okapi) index over a fixed corpus of token slices.
// Scores are comparable within one index only.
type Index struct {
	docFreqs  []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// New builds an index over the given tokenized documents. Terms whose raw
// IDF is negative (present in more than half the corpus) are floored to
// epsilon times the average IDF so they still contribute positively.
func New(docs [][]string) *Index {
	idx := &Index{
		docFreqs: make([]map[string]int, len(docs)),
		docLens:  make([]int, len(docs)),
		idf:      make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, doc := range docs {
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		for tok := range freqs {
			df[tok]++
		}
		idx.docFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		total += len(doc)
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(total) / float64(len(docs))
	}

	n := float64(len(docs))
	idfSum := 0.0
	var negative []string
	for tok, freq := range df {
		v := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		idx.idf[tok] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, tok)
		}
	}
	if len(df) > 0 {
		floor := epsilon * idfSum / float64(len(df))
		for _, tok := range negative {
			idx.idf[tok] = floor
		}
	}
	return idx
}

// Scores returns the BM25 score of every document against the query tokens,
// in corpus order.
func (idx *Index) Scores(query []string) []float64 {
	scores := make([]float64, len(idx.docFreqs))
	for _, tok := range query {
		idf, ok := idx.idf[tok]
		if !ok {
			continue
		}
		for i, freqs := range idx.docFreqs {
			f := float64(freqs[tok])
			if f == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(idx.docLens[i])/idx.avgDocLen)
			scores[i] += idf * f * (k1 + 1) / (f + norm)
		}
	}
	return scores
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docFreqs)
}
