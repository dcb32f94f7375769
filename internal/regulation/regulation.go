// Package regulation queries the eCFR full-text search API and flattens the
// hits into one text block for the answering prompt.
package regulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultEndpoint is the eCFR search results endpoint.
const DefaultEndpoint = "https://www.ecfr.gov/api/search/v1/results"

// FallbackText is returned in place of results when the search fails.
const FallbackText = "Error Getting response from CFR"

const defaultPerPage = 25

// Result is the tagged outcome of a search. Text is always usable: either
// the flattened hits or FallbackText.
type Result struct {
	Text     string
	Hits     int
	Fallback bool
	Err      error
}

// Client searches regulation text. Result sets from eCFR are small enough
// that no size bounding is applied.
type Client struct {
	Endpoint   string // optional, defaults to DefaultEndpoint
	PerPage    int    // optional, defaults to 25
	HTTPClient *http.Client
	UserAgent  string
}

// Search runs query and joins each hit's excerpt and compact hierarchy
// headings with newlines.
func (c *Client) Search(ctx context.Context, query string) Result {
	log.Info().Str("query", query).Msg("searching CFR")
	text, hits, err := c.search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("error with CFR search")
		return Result{Text: FallbackText, Fallback: true, Err: err}
	}
	return Result{Text: text, Hits: hits}
}

func (c *Client) search(ctx context.Context, query string) (string, int, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("parse ecfr endpoint: %w", err)
	}
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", fmt.Sprintf("%d", perPage))
	q.Set("page", "1")
	q.Set("order", "relevance")
	q.Set("paginate_by", "results")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", 0, fmt.Errorf("create ecfr request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ecfr request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("ecfr status: %d", resp.StatusCode)
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", 0, fmt.Errorf("decode ecfr response: %w", err)
	}
	lines := make([]string, 0, len(sr.Results))
	for _, r := range sr.Results {
		lines = append(lines, r.FullTextExcerpt+headingsJSON(r.HierarchyHeadings))
	}
	return strings.Join(lines, "\n"), len(lines), nil
}

// headingsJSON returns the headings exactly as sent, compacted. Decoding into
// a map would reorder the keys. Missing headings render as an empty list.
func headingsJSON(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "[]"
	}
	return buf.String()
}

type searchResponse struct {
	Results []struct {
		FullTextExcerpt   string          `json:"full_text_excerpt"`
		HierarchyHeadings json.RawMessage `json:"hierarchy_headings"`
	} `json:"results"`
}
