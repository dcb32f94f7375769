package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultCSEEndpoint is the Google Custom Search JSON API endpoint.
const DefaultCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// maxCSEResults is the largest page size the Custom Search API accepts.
const maxCSEResults = 10

// GoogleCSE implements Provider against the Google Custom Search JSON API.
// The engine ID (cx) decides which sites are searched; for this tool it is
// an engine scoped to fda.gov.
type GoogleCSE struct {
	APIKey     string
	EngineID   string
	Endpoint   string // optional, defaults to DefaultCSEEndpoint
	HTTPClient *http.Client
	UserAgent  string // optional custom UA
}

func (g *GoogleCSE) Name() string { return "google-cse" }

// Search issues a single request for query and returns up to limit hits in
// rank order. The returned slice is never nil: on any failure it is empty and
// the error describes what went wrong so the caller can log it.
func (g *GoogleCSE) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	out := []Result{}
	if strings.TrimSpace(g.APIKey) == "" || strings.TrimSpace(g.EngineID) == "" {
		return out, ErrMissingCredentials
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > maxCSEResults {
		limit = maxCSEResults
	}
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = DefaultCSEEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return out, fmt.Errorf("parse cse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.APIKey)
	q.Set("cx", g.EngineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return out, fmt.Errorf("create cse request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	hc := g.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return out, fmt.Errorf("cse request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("cse status: %d", resp.StatusCode)
	}
	var cr cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return out, fmt.Errorf("decode cse response: %w", err)
	}
	// A query with zero matches omits "items" entirely.
	for _, it := range cr.Items {
		out = append(out, Result{
			Title:   it.Title,
			Link:    it.Link,
			Snippet: it.Snippet,
			Source:  g.Name(),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}
