package search

import (
	"context"
	"errors"
)

// Result represents a single ranked search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"-"` // provider name for observability
}

// Provider is a minimal interface for search providers. Implementations must
// return results in provider rank order and never return a nil slice, so
// callers can degrade to "no results" without branching on nil.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// ErrMissingCredentials is returned when a provider that requires an API key
// is used without one. No request is made in that case.
var ErrMissingCredentials = errors.New("search provider credentials not provided")
