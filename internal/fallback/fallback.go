// Package fallback produces canned answers when the completion service is
// unreachable. Answers are chosen by an ordered list of rules: the first
// rule that matches the query wins, and the last rule is an unconditional
// default, so every query gets a reply.
//
// Rule templates are rendered with the same retrieval results the live path
// would have sent to the model, so a fallback answer can still quote the
// knowledge base.
package fallback

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/54b3r/kbchat-go/internal/corpus"
	"github.com/54b3r/kbchat-go/internal/rag"
)

// Kind selects how a rule is matched.
type Kind string

const (
	// KindKeyword matches when the query contains any keyword. See [Rule].
	KindKeyword Kind = "keyword"
	// KindInterest matches when the caller selected a known service.
	KindInterest Kind = "interest"
	// KindDefault always matches. It must be the last rule.
	KindDefault Kind = "default"
)

// Rule is one entry of the ordered rule list.
type Rule struct {
	// Name identifies the rule in logs and metrics.
	Name string `yaml:"name"`
	// Kind selects the matcher. Empty means KindKeyword.
	Kind Kind `yaml:"kind"`
	// Keywords are matched case-insensitively. ASCII keywords match whole
	// words or word sequences of the query, allowing a plural "s" or "es"
	// on the last word. Keywords containing other scripts match as
	// substrings, since those queries are not space-separated.
	Keywords []string `yaml:"keywords"`
	// Template is a text/template rendered with [Data].
	Template string `yaml:"template"`
}

// Data is the value templates are executed against.
type Data struct {
	// Query is the raw user query.
	Query string
	// Meta is the caller-supplied metadata.
	Meta rag.Metadata
	// Company and Contact are copied from the corpus.
	Company corpus.Company
	Contact corpus.Contact
	// Services lists every service in corpus order.
	Services []corpus.Service
	// Interest is the service the caller selected, nil if none matched.
	Interest *corpus.Service
	// Results are the retrieval results for Query.
	Results []rag.RankedEntry
	// Context is the formatted context block for Results.
	Context string
}

// Reply is a rendered fallback answer.
type Reply struct {
	// Rule is the name of the rule that produced Text.
	Rule string
	// Text is the answer shown to the user.
	Text string
}

// lastResort is returned if a template fails at execution time.
const lastResort = "Sorry, the assistant is temporarily unavailable. Please contact us directly and we will get back to you."

// ErrNoDefault is returned when a rule list does not end with a default rule.
var ErrNoDefault = errors.New("fallback: last rule must be of kind default")

type compiledRule struct {
	Rule
	keywords []keyword
	tmpl     *template.Template
}

// keyword is a compiled [Rule] keyword.
type keyword struct {
	text  string
	words []string
	ascii bool
}

func newKeyword(k string) keyword {
	kw := keyword{text: k, ascii: isASCII(k)}
	if kw.ascii {
		kw.words = words(k)
	}
	return kw
}

// in reports whether the keyword occurs in a query already split by words
// and lower-cased.
func (k keyword) in(lowerQuery string, queryWords []string) bool {
	if !k.ascii {
		return strings.Contains(lowerQuery, k.text)
	}
	n := len(k.words)
	if n == 0 {
		return false
	}
	for i := 0; i+n <= len(queryWords); i++ {
		if slices.Equal(queryWords[i:i+n-1], k.words[:n-1]) && inflects(queryWords[i+n-1], k.words[n-1]) {
			return true
		}
	}
	return false
}

// inflects reports whether word is base or its plural.
func inflects(word, base string) bool {
	rest, ok := strings.CutPrefix(word, base)
	return ok && (rest == "" || rest == "s" || rest == "es")
}

// words splits s into ASCII letter and digit runs. Everything else,
// including non-ASCII text, separates words.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r >= utf8.RuneSelf || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Responder selects and renders fallback replies. It is immutable after
// construction and safe for concurrent use.
type Responder struct {
	rules  []compiledRule
	corpus *corpus.Corpus
}

// New compiles rules against c. If rules is empty, [DefaultRules] is used.
func New(c *corpus.Corpus, rules []Rule) (*Responder, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if c == nil {
		c = &corpus.Corpus{}
	}

	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.Kind == "" {
			r.Kind = KindKeyword
		}
		switch r.Kind {
		case KindKeyword:
			if len(r.Keywords) == 0 {
				return nil, fmt.Errorf("fallback: rule %d (%s): keyword rule has no keywords", i, r.Name)
			}
		case KindInterest, KindDefault:
		default:
			return nil, fmt.Errorf("fallback: rule %d (%s): unknown kind %q", i, r.Name, r.Kind)
		}
		if r.Kind == KindDefault && i != len(rules)-1 {
			return nil, fmt.Errorf("fallback: rule %d (%s): default rule must be last", i, r.Name)
		}

		tmpl, err := template.New(r.Name).Funcs(funcs).Parse(r.Template)
		if err != nil {
			return nil, fmt.Errorf("fallback: rule %d (%s): %w", i, r.Name, err)
		}

		kws := make([]keyword, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, newKeyword(k))
			}
		}
		compiled = append(compiled, compiledRule{Rule: r, keywords: kws, tmpl: tmpl})
	}

	if compiled[len(compiled)-1].Kind != KindDefault {
		return nil, ErrNoDefault
	}
	return &Responder{rules: compiled, corpus: c}, nil
}

// Respond returns the reply of the first matching rule.
func (r *Responder) Respond(query string, meta rag.Metadata, results []rag.RankedEntry) Reply {
	data := Data{
		Query:    query,
		Meta:     meta,
		Company:  r.corpus.Company,
		Contact:  r.corpus.Contact,
		Services: r.corpus.Services,
		Interest: r.interest(meta.Service),
		Results:  results,
		Context:  rag.FormatContext(results),
	}
	lower := strings.ToLower(query)
	queryWords := words(lower)

	for _, rule := range r.rules {
		if !rule.matches(lower, queryWords, data) {
			continue
		}
		var buf bytes.Buffer
		if err := rule.tmpl.Execute(&buf, data); err != nil {
			return Reply{Rule: rule.Name, Text: lastResort}
		}
		return Reply{Rule: rule.Name, Text: strings.TrimSpace(buf.String())}
	}
	// Unreachable: New guarantees a trailing default rule.
	return Reply{Rule: "none", Text: lastResort}
}

// Rules returns the names of the compiled rules in evaluation order.
func (r *Responder) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

func (r *Responder) interest(id string) *corpus.Service {
	for i := range r.corpus.Services {
		if id != "" && r.corpus.Services[i].ID == id {
			svc := r.corpus.Services[i]
			return &svc
		}
	}
	return nil
}

func (c compiledRule) matches(lowerQuery string, queryWords []string, data Data) bool {
	switch c.Kind {
	case KindDefault:
		return true
	case KindInterest:
		return data.Interest != nil
	default:
		for _, k := range c.keywords {
			if k.in(lowerQuery, queryWords) {
				return true
			}
		}
		return false
	}
}

// ruleFile is the on-disk shape read by [LoadRules].
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rule list from path.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fallback: failed to read %s: %w", path, err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fallback: failed to parse %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("fallback: %s contains no rules", path)
	}
	return f.Rules, nil
}
