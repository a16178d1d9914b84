package rag

import (
	"math"
	"strings"
	"unicode"
)

// minTermLen is the longest token that is still discarded by [Vectorize].
const minTermLen = 2

// TermVector maps a lower-case term to its occurrence count. Missing keys
// are treated as zero, so vectors with different key sets are comparable.
type TermVector map[string]int

// Len returns the number of distinct terms.
func (v TermVector) Len() int { return len(v) }

// Vectorize lower-cases text, drops every character that is neither an
// ASCII word character nor whitespace, splits on whitespace, discards
// tokens of length <= 2, and counts the rest.
//
// Non-ASCII letters are dropped, so CJK text without embedded ASCII
// contributes no terms. This matches the matching quality of the original
// widget and is intentionally left as-is until a real segmenter is added.
func Vectorize(text string) TermVector {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case isWordRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	tv := make(TermVector)
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) <= minTermLen {
			continue
		}
		tv[tok]++
	}
	return tv
}

// isWordRune reports whether r is in [A-Za-z0-9_].
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Cosine returns the cosine similarity of a and b. It returns exactly 0 when
// either vector has zero norm.
func Cosine(a, b TermVector) float64 {
	var dot, normA, normB float64
	for term, ca := range a {
		fa := float64(ca)
		normA += fa * fa
		if cb, ok := b[term]; ok {
			dot += fa * float64(cb)
		}
	}
	for _, cb := range b {
		fb := float64(cb)
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	// sqrt(normA*normB) keeps Cosine(a, a) exactly 1 for integer counts.
	return min(dot/math.Sqrt(normA*normB), 1)
}

// TermFrequency is the default [Strategy]: bag-of-words term counts compared
// by cosine similarity.
type TermFrequency struct{}

// Vectorize implements [Strategy].
func (TermFrequency) Vectorize(text string) Vector { return Vectorize(text) }

// Similarity implements [Strategy]. Vectors of any other type score 0.
func (TermFrequency) Similarity(a, b Vector) float64 {
	ta, _ := a.(TermVector)
	tb, _ := b.(TermVector)
	return Cosine(ta, tb)
}
