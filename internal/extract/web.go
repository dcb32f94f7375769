package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/regdataset/internal/fetch"
)

// Fixed markers substituted for page content when extraction is skipped or
// fails. They are plain text so they serialize like any other content.
const (
	NotAvailableText = "Site content not available"
	FailedText       = "Failed to retrieve content"
)

// DefaultAllowedOrigins are the origins whose pages are fetched.
var DefaultAllowedOrigins = []string{"https://www.fda.gov", "https://fda.gov"}

// Status tags the outcome of an extraction.
type Status int

const (
	StatusOK Status = iota
	StatusNotAllowed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotAllowed:
		return "not_allowed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Page is the tagged result of extracting one URL. Text always holds usable
// content: the extracted paragraphs or one of the fixed markers.
type Page struct {
	URL    string
	Text   string
	Status Status
	Err    error
}

// Getter is the subset of fetch.Client used by Web.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Response, error)
}

// Web extracts paragraph text from pages on allow-listed origins.
type Web struct {
	Fetcher Getter
	// AllowedOrigins lists scheme://host origins. Empty means
	// DefaultAllowedOrigins.
	AllowedOrigins []string
}

// Allowed reports whether rawURL's origin is in the allow-list.
func (w *Web) Allowed(rawURL string) bool {
	origin, ok := originOf(rawURL)
	if !ok {
		return false
	}
	allowed := w.AllowedOrigins
	if len(allowed) == 0 {
		allowed = DefaultAllowedOrigins
	}
	for _, a := range allowed {
		if o, ok := originOf(a); ok && o == origin {
			return true
		}
	}
	return false
}

// Extract fetches rawURL once and returns its paragraph text. URLs outside the
// allow-list are never requested.
func (w *Web) Extract(ctx context.Context, rawURL string) Page {
	if !w.Allowed(rawURL) {
		return Page{URL: rawURL, Text: NotAvailableText, Status: StatusNotAllowed}
	}
	if w.Fetcher == nil {
		return w.failed(rawURL, fmt.Errorf("no fetcher configured"))
	}
	log.Debug().Str("url", rawURL).Msg("fetching site content")
	res, err := w.Fetcher.Get(ctx, rawURL)
	if errors.Is(err, fetch.ErrNotHTML) {
		// Downloads such as PDFs answer 200 but carry no paragraphs.
		log.Debug().Err(err).Str("url", rawURL).Msg("no paragraph text in response")
		return Page{URL: rawURL, Status: StatusOK}
	}
	if err != nil {
		return w.failed(rawURL, err)
	}
	text, err := ParagraphText(res.Body, res.ContentType)
	if err != nil {
		return w.failed(rawURL, fmt.Errorf("parse html: %w", err))
	}
	return Page{URL: rawURL, Text: text, Status: StatusOK}
}

func (w *Web) failed(rawURL string, err error) Page {
	log.Warn().Err(err).Str("url", rawURL).Msg("error fetching site content")
	return Page{URL: rawURL, Text: FailedText, Status: StatusFailed, Err: err}
}

// originOf returns the lowercased scheme://host[:port] of rawURL. Default
// ports are dropped so "https://fda.gov:443" matches "https://fda.gov".
func originOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}
