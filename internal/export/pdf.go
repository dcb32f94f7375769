package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/regdataset/internal/dataset"
)

// PreviewChars is how much of each search result block the review sheet shows.
const PreviewChars = 500

// PDF renders a review sheet with one section per record.
func PDF(w io.Writer, records []dataset.Record) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Regulatory dataset review", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Dataset review (%d records)", len(records)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, r := range records {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, orDash(r.Question))), "", "L", false)
		field(pdf, tr, "FDA search terms", r.FDASearchTerms)
		field(pdf, tr, "CFR search terms", r.CFRSearchTerms)
		field(pdf, tr, "FDA search results", Preview(r.FDASearchResults, PreviewChars))
		field(pdf, tr, "CFR search results", Preview(r.CFRSearchResults, PreviewChars))
		field(pdf, tr, "Response", r.LLMResponse)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, r.ID, "", 1, "R", false, 0, "")
		pdf.Ln(4)
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func field(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(orDash(value)), "", "L", false)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Preview shortens s to at most n characters, marking the cut with "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
