package rag

import (
	"fmt"
	"strings"

	"github.com/54b3r/kbchat-go/internal/corpus"
)

// KnowledgeBase is the ordered sequence of entries built from one corpus.
// It remembers the Strategy its vectors were built with so queries are
// always vectorized the same way.
type KnowledgeBase struct {
	// Entries is in corpus enumeration order.
	Entries []KnowledgeEntry

	strategy Strategy
}

// Len returns the number of entries.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.Entries)
}

// Strategy returns the strategy used to build the knowledge base.
func (kb *KnowledgeBase) Strategy() Strategy {
	if kb == nil || kb.strategy == nil {
		return TermFrequency{}
	}
	return kb.strategy
}

// Skipped records a corpus item that was left out of the knowledge base
// because it was malformed.
type Skipped struct {
	// Item identifies the corpus item (e.g. "services[2]").
	Item string
	// Reason explains what was missing.
	Reason string
}

// String implements fmt.Stringer.
func (s Skipped) String() string { return s.Item + ": " + s.Reason }

// Build flattens c into a knowledge base using the default [TermFrequency]
// strategy. See [BuildWith].
func Build(c *corpus.Corpus) (*KnowledgeBase, []Skipped) {
	return BuildWith(c, TermFrequency{})
}

// BuildWith flattens c into a knowledge base, vectorizing every entry with s.
//
// Entries are emitted in a fixed order: company, representative, each
// service followed by its features, values, FAQ, case studies, contact.
// Malformed items are skipped and reported rather than aborting the build.
// c is never modified.
func BuildWith(c *corpus.Corpus, s Strategy) (*KnowledgeBase, []Skipped) {
	if s == nil {
		s = TermFrequency{}
	}
	b := &builder{strategy: s}
	if c == nil {
		return &KnowledgeBase{strategy: s}, nil
	}

	for _, p := range c.Problems {
		b.skip("corpus", p)
	}
	b.company(c.Company)
	b.representative(c.Representative)
	b.services(c.Services)
	b.values(c.Values)
	b.faq(c.FAQ)
	b.caseStudies(c.CaseStudies)
	b.contact(c.Contact)

	return &KnowledgeBase{Entries: b.entries, strategy: s}, b.skipped
}

// builder accumulates entries and skip reports for a single Build call.
type builder struct {
	strategy Strategy
	entries  []KnowledgeEntry
	skipped  []Skipped
}

func (b *builder) add(id string, cat Category, content string, salient ...string) {
	b.entries = append(b.entries, KnowledgeEntry{
		ID:       id,
		Content:  content,
		Category: cat,
		Vector:   b.strategy.Vectorize(strings.Join(salient, " ")),
	})
}

func (b *builder) skip(item, reason string) {
	b.skipped = append(b.skipped, Skipped{Item: item, Reason: reason})
}

func (b *builder) company(co corpus.Company) {
	if blank(co.Name) {
		b.skip("company", "missing name")
		return
	}
	content := co.Name
	if co.LocalName != "" {
		content += " (" + co.LocalName + ")"
	}
	content += " is " + co.Description + "."
	if co.Founded != "" {
		content += " Founded in " + co.Founded + "."
	}
	if co.Location != "" {
		content += " Headquartered in " + co.Location + "."
	}
	b.add("company-basic", CategoryCompany, content, co.Name, co.LocalName, co.Description)
}

func (b *builder) representative(r corpus.Representative) {
	if blank(r.Name) {
		b.skip("representative", "missing name")
		return
	}
	title := r.Title
	if title == "" {
		title = "Representative"
	}
	content := fmt.Sprintf("%s %s. %s %s", title, r.Name, r.Message, r.Background)
	b.add("representative", CategoryRepresentative, strings.TrimSpace(content), r.Name, r.Message, r.Background)
}

func (b *builder) services(services []corpus.Service) {
	seen := make(map[string]bool, len(services))
	for i, svc := range services {
		item := fmt.Sprintf("services[%d]", i)
		switch {
		case blank(svc.ID):
			b.skip(item, "missing id")
			continue
		case blank(svc.Name):
			b.skip(item, "missing name")
			continue
		case seen[svc.ID]:
			b.skip(item, fmt.Sprintf("duplicate id %q", svc.ID))
			continue
		}
		seen[svc.ID] = true

		id := "service-" + svc.ID
		content := fmt.Sprintf("%s: %s Target: %s Price: %s", svc.Name, svc.Description, svc.Target, svc.Price)
		b.add(id, CategoryService, content, svc.Name, svc.Description, svc.Target, svc.Price)

		for j, feature := range svc.Features {
			if blank(feature) {
				b.skip(fmt.Sprintf("%s.features[%d]", item, j), "empty feature")
				continue
			}
			b.add(fmt.Sprintf("%s-feature-%d", id, j), CategoryServiceFeature,
				svc.Name+" feature: "+feature, svc.Name, feature)
		}
	}
}

func (b *builder) values(values []corpus.Value) {
	for i, v := range values {
		if blank(v.Title) {
			b.skip(fmt.Sprintf("values[%d]", i), "missing title")
			continue
		}
		b.add(fmt.Sprintf("value-%d", i), CategoryValues, v.Title+": "+v.Description, v.Title, v.Description)
	}
}

func (b *builder) faq(faqs []corpus.FAQ) {
	for i, f := range faqs {
		if blank(f.Question) || blank(f.Answer) {
			b.skip(fmt.Sprintf("faq[%d]", i), "missing question or answer")
			continue
		}
		b.add(fmt.Sprintf("faq-%d", i), CategoryFAQ, "Q: "+f.Question+" A: "+f.Answer, f.Question, f.Answer)
	}
}

func (b *builder) caseStudies(cases []corpus.CaseStudy) {
	for i, cs := range cases {
		if blank(cs.Title) {
			b.skip(fmt.Sprintf("case_studies[%d]", i), "missing title")
			continue
		}
		content := fmt.Sprintf("%s: %s Industry: %s Results: %s",
			cs.Title, cs.Description, cs.Industry, strings.Join(cs.Results, ", "))
		b.add(fmt.Sprintf("case-%d", i), CategoryCaseStudy, content,
			cs.Title, cs.Description, cs.Industry, strings.Join(cs.Results, " "))
	}
}

func (b *builder) contact(ct corpus.Contact) {
	if blank(ct.Office) && blank(ct.Phone) && blank(ct.Email) && blank(ct.BusinessHours) {
		b.skip("contact", "no contact details")
		return
	}
	content := fmt.Sprintf("Contact: %s Phone: %s Email: %s Business hours: %s First consultation: %s Response time: %s",
		ct.Office, ct.Phone, ct.Email, ct.BusinessHours, ct.Consultation, ct.ResponseTime)
	b.add("contact", CategoryContact, content, ct.Office, ct.BusinessHours, ct.Consultation)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
