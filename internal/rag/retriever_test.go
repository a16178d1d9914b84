package rag

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/54b3r/kbchat-go/internal/corpus"
)

func TestRetrieve_AIConsultingScenario(t *testing.T) {
	t.Parallel()

	kb, _ := Build(testCorpus())
	results, err := Retrieve("Tell me about AI consulting pricing", kb, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ID != "service-ai" {
		t.Fatalf("top result = %q, want service-ai (results: %v)", results[0].ID, IDs(results))
	}

	faqRank := -1
	for i, r := range results {
		if r.ID == "faq-0" {
			faqRank = i
		}
	}
	if faqRank == 0 {
		t.Error("office-hours FAQ ranked above the AI consulting service")
	}

	ctx := FormatContext(results)
	if !strings.Contains(ctx, "automating business workflows") {
		t.Errorf("context missing service description:\n%s", ctx)
	}
}

func TestRetrieve_StopwordOnlyQuery(t *testing.T) {
	t.Parallel()

	kb, _ := Build(testCorpus())
	results, err := Retrieve("a an is", kb, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("want no results, got %v", IDs(results))
	}
	if got := FormatContext(results); got != NoContextSentinel {
		t.Errorf("want sentinel, got %q", got)
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	t.Parallel()

	c := corpus.Default()
	queries := []string{
		"How much does AI consulting cost?",
		"Do you offer 24/7 monitoring for operations?",
		"ecommerce marketing and SEO",
		"free consultation",
	}
	for _, q := range queries {
		kb1, _ := Build(c)
		kb2, _ := Build(c)
		a, err := Retrieve(q, kb1, 5)
		if err != nil {
			t.Fatalf("retrieve: %v", err)
		}
		b, err := Retrieve(q, kb2, 5)
		if err != nil {
			t.Fatalf("retrieve: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%q: results differ between runs:\n%v\n%v", q, IDs(a), IDs(b))
		}
	}
}

func TestRetrieve_TiesKeepKnowledgeBaseOrder(t *testing.T) {
	t.Parallel()

	c := &corpus.Corpus{FAQ: []corpus.FAQ{
		{Question: "refund policy", Answer: "refunds within thirty days"},
		{Question: "unrelated", Answer: "nothing here"},
		{Question: "refund policy", Answer: "refunds within thirty days"},
	}}
	kb, _ := Build(c)
	results, err := Retrieve("refund policy", kb, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got := IDs(results); !reflect.DeepEqual(got, []string{"faq-0", "faq-2"}) {
		t.Errorf("got %v, want [faq-0 faq-2]", got)
	}
}

func TestRetrieve_TopKBound(t *testing.T) {
	t.Parallel()

	kb, _ := Build(corpus.Default())
	for k := 1; k <= 10; k++ {
		results, err := Retrieve("AI consulting monitoring development marketing", kb, k)
		if err != nil {
			t.Fatalf("retrieve: %v", err)
		}
		if len(results) > k {
			t.Errorf("topK=%d returned %d results", k, len(results))
		}
	}
}

func TestRetrieve_ThresholdIsExclusive(t *testing.T) {
	t.Parallel()

	// A 100-term query sharing exactly one term with a one-term entry scores
	// 1/sqrt(100) = 0.1, which must be filtered out.
	terms := make([]string, 0, 100)
	terms = append(terms, "alpha")
	for i := 1; i < 100; i++ {
		terms = append(terms, fmt.Sprintf("tok%03d", i))
	}
	query := strings.Join(terms, " ")

	kb := &KnowledgeBase{Entries: []KnowledgeEntry{
		{ID: "edge", Content: "alpha", Vector: Vectorize("alpha")},
		{ID: "above", Content: "alpha tok001", Vector: Vectorize("alpha tok001")},
	}}
	results, err := Retrieve(query, kb, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, r := range results {
		if r.Similarity <= Threshold {
			t.Errorf("%s scored %v but was returned", r.ID, r.Similarity)
		}
	}
	if got := IDs(results); !reflect.DeepEqual(got, []string{"above"}) {
		t.Errorf("got %v, want [above]", got)
	}
}

// TestRetrieve_TopKAppliedBeforeThreshold verifies the cut happens before
// filtering: with topK=1 the single best entry is kept, nothing else.
func TestRetrieve_TopKAppliedBeforeThreshold(t *testing.T) {
	t.Parallel()

	kb, _ := Build(testCorpus())
	results, err := Retrieve("monitoring", kb, 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %v", IDs(results))
	}
}

func TestRetrieve_Degenerate(t *testing.T) {
	t.Parallel()

	full, _ := Build(testCorpus())
	cases := []struct {
		name  string
		query string
		kb    *KnowledgeBase
	}{
		{"nil kb", "consulting", nil},
		{"empty kb", "consulting", &KnowledgeBase{}},
		{"empty query", "", full},
		{"whitespace query", "   \t", full},
		{"punctuation query", "?!...", full},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			results, err := Retrieve(tc.query, tc.kb, 3)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if results == nil || len(results) != 0 {
				t.Errorf("want empty non-nil slice, got %v", results)
			}
		})
	}
}

func TestRetrieve_InvalidTopK(t *testing.T) {
	t.Parallel()

	kb, _ := Build(testCorpus())
	for _, k := range []int{0, -1} {
		if _, err := Retrieve("consulting", kb, k); !errors.Is(err, ErrInvalidTopK) {
			t.Errorf("topK=%d: want ErrInvalidTopK, got %v", k, err)
		}
	}
}

// fixedStrategy scores every pair with the same similarity, proving the
// retriever defers entirely to the knowledge base's strategy.
type fixedStrategy struct{ score float64 }

func (fixedStrategy) Vectorize(text string) Vector      { return TermVector{text: 1} }
func (s fixedStrategy) Similarity(_, _ Vector) float64 { return s.score }

func TestRetrieve_UsesKnowledgeBaseStrategy(t *testing.T) {
	t.Parallel()

	kb, _ := BuildWith(testCorpus(), fixedStrategy{score: 0.5})
	results, err := Retrieve("anything at all", kb, 4)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	want := []string{"company-basic", "representative", "service-ai", "service-ops"}
	if got := IDs(results); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
