package rag

import (
	"strings"

	"github.com/54b3r/kbchat-go/internal/corpus"
)

// NotProvided is rendered for every metadata field the caller left empty.
const NotProvided = "not provided"

// Metadata is the optional caller identity supplied with a chat request,
// typically mirrored from the inquiry form next to the widget.
type Metadata struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	// Service is the id of the service the customer selected.
	Service string `json:"service,omitempty"`
	Message string `json:"message,omitempty"`
}

// IsZero reports whether no field is set.
func (m Metadata) IsZero() bool { return m == Metadata{} }

// metadataField is one labelled line of the customer information block.
type metadataField struct {
	label string
	value func(Metadata) string
}

// metadataFields fixes the order and labels of the customer information
// block. Every field is always rendered.
var metadataFields = []metadataField{
	{"Name", func(m Metadata) string { return m.Name }},
	{"Company", func(m Metadata) string { return m.Company }},
	{"Email", func(m Metadata) string { return m.Email }},
	{"Phone", func(m Metadata) string { return m.Phone }},
	{"Service of interest", func(m Metadata) string { return m.Service }},
	{"Message", func(m Metadata) string { return m.Message }},
}

// MetadataLabels returns the labels rendered in the customer information
// block, in order.
func MetadataLabels() []string {
	labels := make([]string, len(metadataFields))
	for i, f := range metadataFields {
		labels[i] = f.label
	}
	return labels
}

// Assembler builds the system prompt sent to the completion service.
// The zero value is usable and renders a generic role line and raw
// service ids.
type Assembler struct {
	// Company is the business name used in the role instruction.
	Company string
	// Services maps service ids to display names.
	Services map[string]string
}

// NewAssembler returns an Assembler that names the company and resolves
// service ids from c.
func NewAssembler(c *corpus.Corpus) Assembler {
	a := Assembler{}
	if c == nil {
		return a
	}
	a.Company = c.Company.Name
	a.Services = make(map[string]string, len(c.Services))
	for _, s := range c.Services {
		if s.ID != "" {
			a.Services[s.ID] = s.Name
		}
	}
	return a
}

// BuildPrompt assembles a prompt with the zero [Assembler].
func BuildPrompt(query, context string, meta Metadata) string {
	return Assembler{}.Build(query, context, meta)
}

// Build returns the prompt: role instruction, context block, behavioural
// instructions, customer information, and finally the verbatim query.
func (a Assembler) Build(query, context string, meta Metadata) string {
	if name, ok := a.Services[meta.Service]; ok {
		meta.Service = name
	}

	var b strings.Builder
	if a.Company != "" {
		b.WriteString("You are the AI assistant for " + a.Company + ".")
	} else {
		b.WriteString("You are an AI assistant for this company.")
	}
	b.WriteString(" Use the information below to answer the customer's question politely and accurately.\n\n")

	b.WriteString(context)
	b.WriteString("\n\n")

	b.WriteString(`[Instructions]
- Answer only from the information above.
- If the information is insufficient, ask clarifying questions to learn more.
- Give genuinely useful information rather than sales pitches.
- Respond in the same language the customer used.
- Keep a friendly, professional tone.

[Customer information]
`)
	for _, f := range metadataFields {
		v := strings.TrimSpace(f.value(meta))
		if v == "" {
			v = NotProvided
		}
		b.WriteString(f.label + ": " + v + "\n")
	}

	b.WriteString("\n[Customer question]\n")
	b.WriteString(query)
	return b.String()
}
