package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const pagesDir = "pages"

// PageEntry is one cached FDA page with the validators needed to revalidate it.
type PageEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
	Body         []byte    `json:"body"`
}

// Validated reports whether the entry can be used for a conditional GET.
func (e *PageEntry) Validated() bool {
	return e != nil && (e.ETag != "" || e.LastModified != "")
}

// PageCache keeps fetched pages under <Dir>/pages, one JSON document per URL.
type PageCache struct {
	Dir         string
	StrictPerms bool
	// Now stamps SavedAt. Defaults to time.Now.
	Now func() time.Time
}

func (c *PageCache) path(url string) string {
	return filepath.Join(c.Dir, pagesDir, digest(url)+".json")
}

// Lookup returns the cached entry for url, or nil when there is none.
func (c *PageCache) Lookup(_ context.Context, url string) (*PageEntry, error) {
	if c == nil || c.Dir == "" {
		return nil, errors.New("cache dir not configured")
	}
	b, err := os.ReadFile(c.path(url))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e PageEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode page %s: %w", url, err)
	}
	return &e, nil
}

// Store writes e atomically, replacing any previous entry for e.URL.
func (c *PageCache) Store(_ context.Context, e PageEntry) error {
	if c == nil {
		return errors.New("cache dir not configured")
	}
	if err := ensureDir(filepath.Join(c.Dir, pagesDir), c.StrictPerms); err != nil {
		return err
	}
	if e.SavedAt.IsZero() {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		e.SavedAt = now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	dst := c.path(e.URL)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, fileMode(c.StrictPerms)); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
