// Package corpus defines the static business document that the knowledge
// base is built from: company profile, representative, services, values,
// FAQ, case studies and contact details.
//
// A Corpus is constructed once at startup (from a YAML/JSON file or the
// embedded default) and is read-only thereafter. Nothing in this module
// mutates a Corpus after [Load] or [Default] returns it.
package corpus

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCorpus []byte

// Corpus is the structured description of the business.
type Corpus struct {
	// Company is the basic company profile.
	Company Company `yaml:"company"`
	// Representative is the company's representative director.
	Representative Representative `yaml:"representative"`
	// Services is the ordered list of offered services.
	Services []Service `yaml:"services"`
	// Values is the ordered list of company values.
	Values []Value `yaml:"values"`
	// FAQ is the ordered list of frequently asked questions.
	FAQ []FAQ `yaml:"faq"`
	// CaseStudies is the ordered list of customer case studies.
	CaseStudies []CaseStudy `yaml:"case_studies"`
	// Contact holds the public contact details.
	Contact Contact `yaml:"contact"`

	// Problems lists values that had the wrong type and were left out
	// when the document was parsed. The rest of the document is kept.
	Problems []string `yaml:"-"`
}

// Company is the basic company profile.
type Company struct {
	Name        string `yaml:"name"`
	LocalName   string `yaml:"local_name"`
	Description string `yaml:"description"`
	Founded     string `yaml:"founded"`
	Location    string `yaml:"location"`
}

// Representative describes the person who fronts the company.
type Representative struct {
	Name       string `yaml:"name"`
	Title      string `yaml:"title"`
	Message    string `yaml:"message"`
	Background string `yaml:"background"`
}

// Service is one offered service. ID is the stable key used both for
// knowledge entry ids and for the "interest" field of inquiry metadata.
type Service struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Target      string   `yaml:"target"`
	Price       string   `yaml:"price"`
	Features    []string `yaml:"features"`
}

// Value is a single company value.
type Value struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// FAQ is a question/answer pair.
type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// CaseStudy is a customer success story.
type CaseStudy struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Industry    string   `yaml:"industry"`
	Results     []string `yaml:"results"`
}

// Contact holds the public contact details.
type Contact struct {
	Phone         string `yaml:"phone"`
	Email         string `yaml:"email"`
	Office        string `yaml:"office"`
	BusinessHours string `yaml:"business_hours"`
	Consultation  string `yaml:"consultation"`
	ResponseTime  string `yaml:"response_time"`
	Website       string `yaml:"website"`
}

// Load reads a corpus from path. YAML and JSON are both accepted since
// JSON is a subset of YAML.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: failed to read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("corpus: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a corpus document. Syntax errors fail the whole document.
// A value of the wrong type (a scalar where a list or mapping belongs) only
// drops that value: it is recorded in [Corpus.Problems] and everything
// else is returned.
func Parse(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("corpus: parse: %w", err)
		}
		c.Problems = typeErr.Errors
	}
	return &c, nil
}

// Default returns the embedded sample corpus. Each call returns a fresh
// copy so callers cannot affect one another.
func Default() *Corpus {
	c, err := Parse(defaultCorpus)
	if err != nil {
		panic(err) // covered by TestDefault_Parses
	}
	return c
}

// LoadOrDefault loads path when non-empty and falls back to [Default].
func LoadOrDefault(path string) (*Corpus, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ServiceName returns the display name of the service with the given id.
// ok is false when no service matches.
func (c *Corpus) ServiceName(id string) (name string, ok bool) {
	if c == nil || id == "" {
		return "", false
	}
	for _, s := range c.Services {
		if s.ID == id {
			return s.Name, true
		}
	}
	return "", false
}
