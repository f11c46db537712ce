// Package arbiter asks a chat model to pick the single best match among
// retrieved candidates.
package arbiter

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"codescout/internal/llm"
	"codescout/internal/retrieval"
)

const systemPrompt = "You are a code search assistant. The user asks a question and you are " +
	"given numbered candidate functions. Reply with only the number of the candidate " +
	"that best answers the question."

// Arbiter selects one candidate from a ranked list using a chat model.
type Arbiter struct {
	chat llm.Chat
}

// New creates an arbiter over the given chat client.
func New(chat llm.Chat) *Arbiter {
	return &Arbiter{chat: chat}
}

// Select asks the model to choose among candidates and returns the chosen
// one. An unparseable reply falls back to the top-ranked candidate with a
// warning, since the list is already ordered by relevance.
func (a *Arbiter) Select(ctx context.Context, query string, candidates []retrieval.Candidate) (retrieval.Candidate, error) {
	if len(candidates) == 0 {
		return retrieval.Candidate{}, fmt.Errorf("arbiter: no candidates to select from")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, c.Row.Name, c.Row.Location)
		if c.Row.Docstring != "" {
			fmt.Fprintf(&b, "   Doc: %s\n", c.Row.Docstring)
		}
		fmt.Fprintf(&b, "   %s\n", c.Row.Context)
	}

	reply, err := a.chat.Generate(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return retrieval.Candidate{}, fmt.Errorf("arbiter: %w", err)
	}

	if n, ok := firstInt(reply); ok && n >= 1 && n <= len(candidates) {
		return candidates[n-1], nil
	}
	fmt.Fprintf(os.Stderr, "warning: could not parse selection %q, using top-ranked candidate\n", strings.TrimSpace(reply))
	return candidates[0], nil
}

// firstInt extracts the first decimal integer in s.
func firstInt(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil
	}
	return 0, false
}
