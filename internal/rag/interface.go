// Package rag implements the retrieval core of the chat assistant: text
// vectorization, similarity scoring, knowledge-base construction, ranking,
// context formatting, and prompt assembly.
//
// Every function in this package is pure. A knowledge base is rebuilt from
// the corpus on each request, so concurrent callers share no mutable state
// and need no locking.
package rag

// Vector is an opaque vector representation produced by a [Strategy].
// The default implementation is [TermVector]; an embedding-backed strategy
// can supply its own type without touching the retriever or formatter.
type Vector interface {
	// Len reports the number of non-zero dimensions.
	Len() int
}

// Strategy pairs a vectorizer with the similarity function that knows how
// to compare the vectors it produces. Implementations must be pure and safe
// to call from multiple goroutines.
type Strategy interface {
	// Vectorize converts text to a vector.
	Vectorize(text string) Vector
	// Similarity scores two vectors produced by Vectorize. The result must
	// lie in [0,1] and be symmetric in its arguments.
	Similarity(a, b Vector) float64
}

// Category tags the provenance of a knowledge entry. It is informational
// only and is not used for filtering.
type Category string

// Knowledge entry categories, one per corpus section.
const (
	CategoryCompany        Category = "company"
	CategoryRepresentative Category = "representative"
	CategoryService        Category = "service"
	CategoryServiceFeature Category = "service-feature"
	CategoryValues         Category = "values"
	CategoryFAQ            Category = "faq"
	CategoryCaseStudy      Category = "case-study"
	CategoryContact        Category = "contact"
)

// KnowledgeEntry is the atomic retrievable unit. Entries are never mutated
// after [Build] returns them.
type KnowledgeEntry struct {
	// ID identifies the entry's provenance and is stable across builds.
	ID string
	// Content is the human-readable text shown when the entry is retrieved.
	Content string
	// Category tags where in the corpus the entry came from.
	Category Category
	// Vector is computed from the entry's salient source fields, which are
	// not necessarily identical to Content.
	Vector Vector
}

// RankedEntry is a KnowledgeEntry with the similarity it scored against a
// query. It only exists as a transient retrieval result.
type RankedEntry struct {
	KnowledgeEntry
	// Similarity is the score in [0,1].
	Similarity float64
}
