package dataset

import "strings"

// Prompt assembles the single user message sent to the assistant: both
// search contexts followed by the question on its own line.
func (r Record) Prompt() string {
	var b strings.Builder
	b.WriteString("FDA Search Terms: ")
	b.WriteString(r.FDASearchTerms)
	b.WriteString("\nFDA Search Results: ")
	b.WriteString(r.FDASearchResults)
	b.WriteString("\nCFR Search Terms: ")
	b.WriteString(r.CFRSearchTerms)
	b.WriteString("\nCFR Search Results: ")
	b.WriteString(r.CFRSearchResults)
	b.WriteString("\n")
	b.WriteString(r.Question)
	return b.String()
}
