package retrieval

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"codescout/internal/lexical"
)

// SanitizeScore coerces non-finite scores to 0.0 with a surfaced warning.
// A corrupt score must never reach ranking or serialization.
func SanitizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		fmt.Fprintf(os.Stderr, "warning: non-finite relevance score %v coerced to 0\n", score)
		return 0.0
	}
	return score
}

// scoreAndRank runs the cross-encoder over all candidates, applies name
// boosts and file aggregation per config, and returns the topK best.
func (e *Engine) scoreAndRank(query string, candidates []Candidate, topK int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = e.comparisonText(c)
	}

	scores, err := e.encoder.Score(query, texts)
	if err != nil {
		// A failed batch must not abort retrieval; every candidate falls
		// back to the sanitized zero score and boosts still apply.
		fmt.Fprintf(os.Stderr, "warning: cross-encoder scoring failed: %v\n", err)
		scores = make([]float64, len(candidates))
	}
	for i := range candidates {
		candidates[i].RerankScore = SanitizeScore(scores[i])
	}

	if e.cfg.UseNameBoosting {
		e.applyNameBoosts(query, candidates)
	}

	if e.cfg.UseFileAggregation {
		fileScores := AggregateFileScores(candidates, e.cfg.AggregationStrategy)
		w := e.cfg.FileWeight
		for i := range candidates {
			fs := fileScores[candidates[i].FilePath()]
			candidates[i].FileScore = fs
			candidates[i].CombinedScore = w*fs + (1-w)*candidates[i].RerankScore
			candidates[i].HasCombined = true
		}
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// comparisonText builds the text the cross-encoder scores against the
// query: name, docstring/context, and a code preview whose size depends on
// the signature-only setting.
func (e *Engine) comparisonText(c Candidate) string {
	code := c.Row.Code()
	if e.cfg.UseSignatureOnly {
		preview := code
		if i := strings.IndexByte(code, '\n'); i >= 0 {
			preview = code[:i]
		} else if len(preview) > 200 {
			preview = preview[:200]
		}
		return fmt.Sprintf("Function: %s\n%s\n%s", c.Row.Name, c.Row.Context, preview)
	}

	lines := strings.Split(code, "\n")
	var preview string
	if len(lines) > 20 {
		preview = strings.Join(lines[:20], "\n")
	} else if len(code) > 1500 {
		preview = code[:1500]
	} else {
		preview = code
	}
	return fmt.Sprintf("Function: %s\n%s\n%s\n%s", c.Row.Name, c.Row.Docstring, c.Row.Context, preview)
}

// applyNameBoosts layers deterministic lexical boosts on top of the
// cross-encoder scores. Matching both an action word and a domain keyword
// in the function name earns the largest tier; one class alone earns a
// smaller tier; generic token overlap and substring containment add on top.
// Anonymous candidates are penalized instead, since an unnamed unit is
// rarely the intended search target.
func (e *Engine) applyNameBoosts(query string, candidates []Candidate) {
	queryTokens := toSet(lexical.Tokenize(query))
	actions := toSet(e.cfg.ActionWords)
	keywords := toSet(e.cfg.DomainKeywords)

	for i := range candidates {
		c := &candidates[i]
		nameLower := strings.ToLower(c.Row.Name)

		if strings.Contains(nameLower, "anonymous") {
			c.RerankScore -= 1.0
			continue
		}

		nameTokens := toSet(lexical.Tokenize(nameLower))

		actionMatch := false
		keywordMatch := false
		overlap := 0
		for tok := range queryTokens {
			if !nameTokens[tok] {
				continue
			}
			overlap++
			if actions[tok] {
				actionMatch = true
			}
			if keywords[tok] {
				keywordMatch = true
			}
		}

		boost := 0.0
		switch {
		case actionMatch && keywordMatch:
			boost += 3.0
		case actionMatch:
			boost += 2.0
		case keywordMatch:
			boost += 1.5
		}
		boost += float64(overlap) * 0.5

		for tok := range queryTokens {
			if len(tok) > 3 && strings.Contains(nameLower, tok) {
				boost += 1.0
			}
		}

		c.RerankScore += boost
	}
}

// AggregateFileScores collapses per-candidate rerank scores into one score
// per containing file, using the given strategy. Pure function of its
// inputs; the same candidates always yield the same aggregates.
func AggregateFileScores(candidates []Candidate, strategy Strategy) map[string]float64 {
	byFile := make(map[string][]float64)
	for _, c := range candidates {
		path := c.FilePath()
		byFile[path] = append(byFile[path], c.RerankScore)
	}

	aggregated := make(map[string]float64, len(byFile))
	for path, scores := range byFile {
		max, sum := scores[0], 0.0
		for _, s := range scores {
			if s > max {
				max = s
			}
			sum += s
		}
		mean := sum / float64(len(scores))

		switch strategy {
		case StrategyMean:
			aggregated[path] = mean
		case StrategyWeighted:
			aggregated[path] = mean + 0.5*max
		case StrategyCount:
			aggregated[path] = sum / math.Sqrt(float64(len(scores)))
		default:
			aggregated[path] = max
		}
	}
	return aggregated
}

// sortCandidates orders best first. The sort is stable and ties break on
// location so a fixed index and query always produce the same order.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(a, b int) bool {
		sa, sb := candidates[a].finalScore(), candidates[b].finalScore()
		if sa != sb {
			return sa > sb
		}
		return candidates[a].Row.Location < candidates[b].Row.Location
	})
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = true
	}
	return set
}
