package chat

import (
	"strings"

	"github.com/54b3r/kbchat-go/internal/rag"
)

// Draft returns an inquiry message the customer can paste into the contact
// form, personalised from whatever metadata they have filled in so far.
func (a *Assistant) Draft(meta rag.Metadata) string {
	name := strings.TrimSpace(meta.Name)
	company := strings.TrimSpace(meta.Company)

	var b strings.Builder
	b.WriteString("Hello,")

	switch {
	case name != "" && company != "":
		b.WriteString("\n\nMy name is " + name + " from " + company + ".")
	case name != "":
		b.WriteString("\n\nMy name is " + name + ".")
	}

	b.WriteString("\n\nI am writing to ask about your services.")
	if svc, ok := a.corpus.ServiceName(strings.TrimSpace(meta.Service)); ok {
		b.WriteString("\nIn particular, I would like to discuss " + svc + ".")
	}

	b.WriteString("\n\nI would appreciate it if you could get back to me at your convenience.")
	b.WriteString("\n\nBest regards,")
	if name != "" {
		b.WriteString("\n" + name)
	}
	return b.String()
}
