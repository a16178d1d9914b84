// Package budget provides token budget estimation for prompts sent to the
// completion service. Because several LLM backends with different tokenizers
// are supported, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters. Japanese text is denser than that, so limits
// should leave generous headroom.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbchat-go/internal/rag"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for the system prompt.
	// The knowledge base is small, so three entries plus instructions fit
	// comfortably; the limit exists for operator-supplied corpora with long
	// entries.
	DefaultMaxContextTokens = 2000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// FitResults drops the lowest-ranked retrieval results until render(results)
// fits within maxTokens. results must already be ordered best first.
//
// The returned slice shares its backing array with results. If even an empty
// result set exceeds the budget, the empty slice is returned; the caller
// decides whether to send the oversized prompt anyway. maxTokens <= 0
// disables trimming.
func FitResults(results []rag.RankedEntry, render func([]rag.RankedEntry) string, maxTokens int) []rag.RankedEntry {
	if maxTokens <= 0 {
		return results
	}
	for len(results) > 0 {
		if Estimate(render(results)) <= maxTokens {
			break
		}
		results = results[:len(results)-1]
	}
	return results
}
