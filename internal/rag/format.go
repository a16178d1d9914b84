package rag

import (
	"strconv"
	"strings"
)

// NoContextSentinel is the context block returned when nothing relevant was
// retrieved. Callers compare against it to detect an empty retrieval.
const NoContextSentinel = "No relevant information was found."

// contextHeader is the first line of a non-empty context block.
const contextHeader = "[Relevant information]"

// FormatContext renders results as a numbered context block in the order
// supplied. Only entry content is rendered; ids and scores stay internal.
func FormatContext(results []RankedEntry) string {
	if len(results) == 0 {
		return NoContextSentinel
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteByte('\n')
	for i, r := range results {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
