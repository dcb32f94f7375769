// Package export writes dataset records as CSV, fine-tuning JSONL, or a PDF
// review sheet.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/regdataset/internal/dataset"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatPDF   Format = "pdf"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSONL, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, jsonl or pdf)", s)
}

// Write encodes records to w in format f.
func Write(w io.Writer, f Format, records []dataset.Record) error {
	switch f {
	case FormatCSV:
		return CSV(w, records)
	case FormatJSONL:
		return JSONL(w, records)
	case FormatPDF:
		return PDF(w, records)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"question", "cfr_search_terms", "fda_search_terms",
	"cfr_search_results", "fda_search_results", "llm_response",
}

// CSV writes one row per record under CSVHeader. Record ids are omitted.
func CSV(w io.Writer, records []dataset.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Question, r.CFRSearchTerms, r.FDASearchTerms, r.CFRSearchResults, r.FDASearchResults, r.LLMResponse}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type example struct {
	Messages []chatMessage `json:"messages"`
}

// JSONL writes one chat fine-tuning example per record: the assembled prompt
// as the user turn and the stored response as the assistant turn. Records
// without a response are skipped.
func JSONL(w io.Writer, records []dataset.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	skipped := 0
	for _, r := range records {
		if strings.TrimSpace(r.LLMResponse) == "" {
			skipped++
			continue
		}
		ex := example{Messages: []chatMessage{
			{Role: openai.ChatMessageRoleUser, Content: r.Prompt()},
			{Role: openai.ChatMessageRoleAssistant, Content: r.LLMResponse},
		}}
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("records without a response left out of jsonl export")
	}
	return nil
}
