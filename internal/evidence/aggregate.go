package evidence

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/regdataset/internal/extract"
	"github.com/hyperifyio/regdataset/internal/search"
)

// ErrNoResults is returned by Collect when the provider found nothing.
var ErrNoResults = errors.New("no search results")

// PageExtractor turns a URL into page text. *extract.Web implements it.
type PageExtractor interface {
	Extract(ctx context.Context, url string) extract.Page
}

// Aggregator searches, attaches page content to each hit and enforces the
// byte budget. An Aggregator holds configuration only; every call builds and
// owns its own Set.
type Aggregator struct {
	Provider  search.Provider
	Extractor PageExtractor
	// MaxResults is the number of hits requested. Zero means DefaultMaxResults.
	MaxResults int
	// ByteBudget bounds the serialized Set. Zero means DefaultByteBudget.
	ByteBudget int
	// Concurrency bounds parallel page extraction. Zero or one is sequential.
	Concurrency int
}

// Collect runs the search, extracts every hit and trims the result. A
// provider failure is returned as an error together with an empty Set.
func (a *Aggregator) Collect(ctx context.Context, query string) (Set, TrimReport, error) {
	if a.Provider == nil {
		return Set{}, TrimReport{}, errors.New("no search provider configured")
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	budget := a.ByteBudget
	if budget <= 0 {
		budget = DefaultByteBudget
	}

	log.Info().Str("query", query).Str("provider", a.Provider.Name()).Msg("searching FDA website")
	hits, err := a.Provider.Search(ctx, query, maxResults)
	if err != nil {
		return Set{}, TrimReport{}, err
	}
	if len(hits) == 0 {
		return Set{}, TrimReport{}, ErrNoResults
	}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	set := make(Set, len(hits))
	for i, h := range hits {
		set[i] = Item{Title: h.Title, Link: h.Link, Snippet: h.Snippet}
	}
	a.attachContent(ctx, set)

	rep, err := Trim(set, budget)
	if err != nil {
		return Set{}, rep, err
	}
	if rep.Exhausted {
		log.Warn().Int("length", rep.After).Int("budget", budget).Msg("evidence over budget with all content removed")
	}
	return set, rep, nil
}

// Aggregate is Collect for callers that only want the stored string. Every
// failure is logged and degrades to EmptySet.
func (a *Aggregator) Aggregate(ctx context.Context, query string) string {
	set, rep, err := a.Collect(ctx, query)
	switch {
	case errors.Is(err, ErrNoResults):
		log.Info().Str("query", query).Msg("no results found")
		return EmptySet
	case err != nil:
		log.Warn().Err(err).Str("query", query).Msg("error fetching search results")
		return EmptySet
	}
	log.Info().Int("items", len(set)).Int("length", rep.After).Int("trim_steps", rep.Steps).Msg("evidence collected")
	return set.String()
}

// attachContent fills in Content for every item. Each extraction writes only
// its own slot, so rank order survives concurrent fetches, and all fetches
// finish before trimming starts.
func (a *Aggregator) attachContent(ctx context.Context, set Set) {
	if a.Extractor == nil {
		for i := range set {
			set[i].Content = extract.FailedText
		}
		return
	}
	var g errgroup.Group
	limit := a.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := range set {
		i := i
		g.Go(func() error {
			page := a.Extractor.Extract(ctx, set[i].Link)
			set[i].Content = page.Text
			return nil
		})
	}
	_ = g.Wait()
}
