package rag

import (
	"errors"
	"slices"
)

// Threshold is the similarity a result must exceed to be returned by
// [Retrieve].
const Threshold = 0.1

// ErrInvalidTopK is returned when Retrieve is called with topK <= 0.
var ErrInvalidTopK = errors.New("rag: topK must be a positive integer")

// Retrieve ranks every entry of kb against query and returns at most topK
// entries whose similarity exceeds [Threshold].
//
// Entries are sorted by descending similarity; ties keep knowledge-base
// order so output is deterministic. The topK cut is applied before the
// threshold filter. An empty knowledge base or a query with no usable terms
// yields an empty slice and a nil error.
func Retrieve(query string, kb *KnowledgeBase, topK int) ([]RankedEntry, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if kb.Len() == 0 {
		return []RankedEntry{}, nil
	}

	s := kb.Strategy()
	qv := s.Vectorize(query)

	ranked := make([]RankedEntry, len(kb.Entries))
	for i, e := range kb.Entries {
		ranked[i] = RankedEntry{KnowledgeEntry: e, Similarity: s.Similarity(qv, e.Vector)}
	}

	slices.SortStableFunc(ranked, func(a, b RankedEntry) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]RankedEntry, 0, len(ranked))
	for _, r := range ranked {
		if r.Similarity > Threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// IDs returns the ids of results in order.
func IDs(results []RankedEntry) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
