package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Parses(t *testing.T) {
	t.Parallel()

	c := Default()
	if c.Company.Name == "" {
		t.Error("default corpus has no company name")
	}
	if len(c.Services) == 0 || len(c.FAQ) == 0 {
		t.Errorf("default corpus is missing services or FAQ: %d services, %d faq", len(c.Services), len(c.FAQ))
	}
	if c.Contact.Email == "" {
		t.Error("default corpus has no contact email")
	}
	if len(c.Problems) != 0 {
		t.Errorf("default corpus has problems: %q", c.Problems)
	}
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	a := Default()
	a.Services[0].Name = "mutated"
	if b := Default(); b.Services[0].Name == "mutated" {
		t.Error("Default shares state between calls")
	}
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.json")
	doc := `{"company":{"name":"Acme"},"services":[{"id":"x","name":"X","features":["f1"]}],"case_studies":[{"title":"T","results":["r"]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Company.Name != "Acme" || len(c.Services) != 1 || c.Services[0].Features[0] != "f1" {
		t.Errorf("unexpected corpus: %+v", c)
	}
	if len(c.CaseStudies) != 1 || c.CaseStudies[0].Results[0] != "r" {
		t.Errorf("case studies not decoded: %+v", c.CaseStudies)
	}
}

func TestParse_WrongTypedItemsAreDropped(t *testing.T) {
	t.Parallel()

	doc := `
services:
  - id: ok
    name: Good Service
    features: [fast]
  - id: bad
    name: Bad Service
    features: "not a list"
faq:
  - just a string
  - question: Is it free?
    answer: Yes.
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Services) != 2 || c.Services[0].Features[0] != "fast" {
		t.Fatalf("services not kept: %+v", c.Services)
	}
	if c.Services[1].Name != "Bad Service" || len(c.Services[1].Features) != 0 {
		t.Errorf("bad features should be dropped, service kept: %+v", c.Services[1])
	}
	if len(c.FAQ) != 1 || c.FAQ[0].Question != "Is it free?" {
		t.Errorf("faq: got %+v", c.FAQ)
	}
	if len(c.Problems) != 2 {
		t.Errorf("expected 2 problems, got %q", c.Problems)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("want error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("services: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("want error for malformed YAML")
	}
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	t.Parallel()

	c, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Company.Name != Default().Company.Name {
		t.Error("empty path should return the default corpus")
	}
}

func TestServiceName(t *testing.T) {
	t.Parallel()

	c := Default()
	if name, ok := c.ServiceName("ai"); !ok || name != "AI Consulting" {
		t.Errorf("ServiceName(ai) = %q, %v", name, ok)
	}
	if _, ok := c.ServiceName("nope"); ok {
		t.Error("unknown id should not resolve")
	}
	var nilCorpus *Corpus
	if _, ok := nilCorpus.ServiceName("ai"); ok {
		t.Error("nil corpus should not resolve")
	}
}
