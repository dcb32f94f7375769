// Package fetch downloads FDA pages for extraction: one GET per call, bounded
// by a per-request timeout and an optional client-wide concurrency limit.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/hyperifyio/regdataset/internal/cache"
)

// maxBodyBytes caps how much of a page is read. FDA pages are far smaller.
const maxBodyBytes = 8 << 20

const defaultMaxRedirects = 5

// Client fetches HTML pages. The zero value is usable.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each request. Zero leaves it to HTTPClient.
	Timeout time.Duration
	// Cache, when set, serves unchanged pages via conditional GETs.
	Cache *cache.PageCache
	// MaxRedirects caps redirect hops. Zero means 5.
	MaxRedirects int
	// MaxConcurrent limits in-flight requests. Zero is unlimited.
	MaxConcurrent int

	semOnce sync.Once
	sem     *semaphore.Weighted
}

// Response is a successfully fetched page.
type Response struct {
	Body        []byte
	ContentType string
	FromCache   bool
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// ErrNotHTML is returned for responses whose media type is not HTML.
var ErrNotHTML = errors.New("not an HTML page")

// Get fetches rawURL once. A 304 against a cached entry returns the cached body.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	if err := c.acquire(ctx); err != nil {
		return Response{}, err
	}
	defer c.release()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	if !webScheme(req.URL.Scheme) {
		return Response{}, fmt.Errorf("unsupported URL scheme %q", req.URL.Scheme)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	cached := c.lookup(ctx, rawURL)
	if cached.Validated() {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		if ct == "" {
			ct = cached.ContentType
		}
		return Response{Body: cached.Body, ContentType: ct, FromCache: true}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Response{}, &StatusError{URL: rawURL, Code: resp.StatusCode}
	case !isHTML(ct):
		return Response{}, fmt.Errorf("%w: %s", ErrNotHTML, ct)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	if c.Cache != nil {
		entry := cache.PageEntry{
			URL:          rawURL,
			ContentType:  ct,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
		}
		if err := c.Cache.Store(ctx, entry); err != nil {
			log.Debug().Err(err).Str("url", rawURL).Msg("page cache store failed")
		}
	}
	return Response{Body: body, ContentType: ct}, nil
}

func (c *Client) lookup(ctx context.Context, rawURL string) *cache.PageEntry {
	if c.Cache == nil {
		return nil
	}
	e, err := c.Cache.Lookup(ctx, rawURL)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("page cache lookup failed")
		return nil
	}
	return e
}

// httpClient returns a copy of HTTPClient with the redirect policy applied.
func (c *Client) httpClient() *http.Client {
	var hc http.Client
	if c.HTTPClient != nil {
		hc = *c.HTTPClient
	}
	max := c.MaxRedirects
	if max <= 0 {
		max = defaultMaxRedirects
	}
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		if !webScheme(req.URL.Scheme) {
			return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
		}
		return nil
	}
	return &hc
}

func webScheme(s string) bool {
	s = strings.ToLower(s)
	return s == "http" || s == "https"
}

// isHTML accepts HTML media types. An empty header is left to the parser.
func isHTML(ct string) bool {
	if strings.TrimSpace(ct) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.semOnce.Do(func() { c.sem = semaphore.NewWeighted(int64(c.MaxConcurrent)) })
	return c.sem.Acquire(ctx, 1)
}

func (c *Client) release() {
	if c.sem != nil {
		c.sem.Release(1)
	}
}
