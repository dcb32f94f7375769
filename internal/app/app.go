package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/regdataset/internal/budget"
	"github.com/hyperifyio/regdataset/internal/cache"
	"github.com/hyperifyio/regdataset/internal/dataset"
	"github.com/hyperifyio/regdataset/internal/evidence"
	"github.com/hyperifyio/regdataset/internal/export"
	"github.com/hyperifyio/regdataset/internal/extract"
	"github.com/hyperifyio/regdataset/internal/fetch"
	"github.com/hyperifyio/regdataset/internal/llm"
	"github.com/hyperifyio/regdataset/internal/regulation"
	"github.com/hyperifyio/regdataset/internal/search"
)

// EvidenceSource produces the bounded FDA evidence string for search terms.
type EvidenceSource interface {
	Aggregate(ctx context.Context, query string) string
}

// RegulationSource produces regulation text for search terms.
type RegulationSource interface {
	Search(ctx context.Context, query string) regulation.Result
}

// Answerer produces a model response for a prompt.
type Answerer interface {
	Answer(ctx context.Context, messages []llm.Message) (string, error)
}

// ErrLLMNotConfigured is returned by GenerateAnswer when no assistant is set up.
var ErrLLMNotConfigured = errors.New("llm not configured")

// App wires the record store to the search and answering stages.
type App struct {
	cfg        Config
	store      *dataset.Store
	evidence   EvidenceSource
	regulation RegulationSource
	answerer   Answerer
	models     llm.ModelLister
}

// New opens the dataset and builds every stage from cfg.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	store, err := dataset.Open(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	hc := newHTTPClient(cfg.SSLVerify)

	var pageCache *cache.PageCache
	var answerCache *cache.AnswerCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.Reset(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			st, err := cache.Purge(cfg.CacheDir, cfg.CacheMaxAge, time.Now())
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			}
			log.Debug().Int("pages", st.Pages).Int("answers", st.Answers).Msg("cache purged")
		}
		pageCache = &cache.PageCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		if cfg.CacheAnswers {
			answerCache = &cache.AnswerCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		}
	}

	var provider search.Provider
	if cfg.SearchFile != "" {
		provider = &search.FileProvider{Path: cfg.SearchFile}
	} else {
		provider = &search.GoogleCSE{
			APIKey:     cfg.GoogleSearchKey,
			EngineID:   cfg.GoogleSearchEngineID,
			HTTPClient: hc,
			UserAgent:  cfg.UserAgent,
		}
	}
	fetcher := &fetch.Client{
		HTTPClient:    hc,
		UserAgent:     cfg.UserAgent,
		Timeout:       15 * time.Second,
		Cache:         pageCache,
		MaxConcurrent: cfg.FetchConcurrency,
	}

	a := &App{
		cfg:   cfg,
		store: store,
		evidence: &evidence.Aggregator{
			Provider:    provider,
			Extractor:   &extract.Web{Fetcher: fetcher, AllowedOrigins: cfg.AllowedOrigins},
			MaxResults:  cfg.EvidenceMaxResults,
			ByteBudget:  cfg.EvidenceByteBudget,
			Concurrency: cfg.FetchConcurrency,
		},
		regulation: &regulation.Client{Endpoint: cfg.CFREndpoint, HTTPClient: hc, UserAgent: cfg.UserAgent},
	}
	if ValidateLLMConfig(cfg) == nil {
		client := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, hc)
		a.models = client
		a.answerer = &llm.Answerer{
			Client:       client,
			AssistantID:  cfg.AssistantID,
			Model:        cfg.LLMModel,
			PollInterval: cfg.PollInterval,
			MaxWait:      cfg.MaxWait,
			Cache:        answerCache,
		}
	}
	return a, nil
}

// Close releases the dataset.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Preflight lists models to confirm the LLM endpoint is reachable. It is
// best-effort and only logs.
func (a *App) Preflight(ctx context.Context) {
	if a.models == nil {
		log.Warn().Msg("LLM not configured; answer generation unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.models.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
}

// Edit lists record fields set by the operator. Nil fields are unchanged.
type Edit struct {
	Question       *string
	CFRSearchTerms *string
	FDASearchTerms *string
	LLMResponse    *string
}

// AddRecord creates a record and applies e to it.
func (a *App) AddRecord(ctx context.Context, e Edit) (dataset.Record, error) {
	r, err := a.store.Create(ctx)
	if err != nil {
		return dataset.Record{}, err
	}
	log.Info().Str("id", r.ID).Msg("record added")
	return a.UpdateRecord(ctx, r.ID, e)
}

// ListRecords returns every record in creation order.
func (a *App) ListRecords(ctx context.Context) ([]dataset.Record, error) {
	return a.store.List(ctx)
}

// GetRecord returns one record.
func (a *App) GetRecord(ctx context.Context, id string) (dataset.Record, error) {
	return a.store.Get(ctx, id)
}

// DeleteRecord removes one record.
func (a *App) DeleteRecord(ctx context.Context, id string) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("id", id).Msg("record deleted")
	return nil
}

// UpdateRecord stores e. Changed search terms trigger the matching search and
// the results are stored alongside the terms.
func (a *App) UpdateRecord(ctx context.Context, id string, e Edit) (dataset.Record, error) {
	cur, err := a.store.Get(ctx, id)
	if err != nil {
		return dataset.Record{}, err
	}
	p := dataset.Patch{Question: e.Question, LLMResponse: e.LLMResponse}
	if e.CFRSearchTerms != nil && *e.CFRSearchTerms != cur.CFRSearchTerms {
		res := a.searchCFR(ctx, *e.CFRSearchTerms)
		p.CFRSearchTerms, p.CFRSearchResults = e.CFRSearchTerms, &res
	}
	if e.FDASearchTerms != nil && *e.FDASearchTerms != cur.FDASearchTerms {
		res := a.searchFDA(ctx, *e.FDASearchTerms)
		p.FDASearchTerms, p.FDASearchResults = e.FDASearchTerms, &res
	}
	return a.store.Update(ctx, id, p)
}

// RefreshEvidence re-runs both searches for the record's current terms.
func (a *App) RefreshEvidence(ctx context.Context, id string) (dataset.Record, error) {
	cur, err := a.store.Get(ctx, id)
	if err != nil {
		return dataset.Record{}, err
	}
	cfr := a.searchCFR(ctx, cur.CFRSearchTerms)
	fda := a.searchFDA(ctx, cur.FDASearchTerms)
	return a.store.Update(ctx, id, dataset.Patch{CFRSearchResults: &cfr, FDASearchResults: &fda})
}

// Evidence runs the FDA evidence stage alone.
func (a *App) Evidence(ctx context.Context, terms string) string {
	return a.evidence.Aggregate(ctx, terms)
}

func (a *App) searchFDA(ctx context.Context, terms string) string {
	if strings.TrimSpace(terms) == "" {
		return ""
	}
	return a.evidence.Aggregate(ctx, terms)
}

func (a *App) searchCFR(ctx context.Context, terms string) string {
	if strings.TrimSpace(terms) == "" {
		return ""
	}
	res := a.regulation.Search(ctx, terms)
	if !res.Fallback {
		log.Debug().Int("hits", res.Hits).Str("query", terms).Msg("regulation text collected")
	}
	return res.Text
}

// BuildPrompt assembles the prompt for r and warns when it likely overflows
// the model context.
func (a *App) BuildPrompt(r dataset.Record) string {
	prompt := r.Prompt()
	if chk := budget.CheckPrompt(a.cfg.LLMModel, prompt, 0); !chk.Fits() {
		log.Warn().
			Str("model", chk.Model).
			Int("prompt_tokens", chk.PromptTokens).
			Int("context_tokens", chk.ContextTokens).
			Msg("prompt may exceed model context")
	}
	return prompt
}

// GenerateAnswer sends the record's prompt to the assistant and stores the
// reply. On failure the stored response is cleared and the error returned.
func (a *App) GenerateAnswer(ctx context.Context, id string) (dataset.Record, error) {
	cur, err := a.store.Get(ctx, id)
	if err != nil {
		return dataset.Record{}, err
	}
	if a.answerer == nil {
		return cur, ErrLLMNotConfigured
	}
	prompt := a.BuildPrompt(cur)
	answer, aerr := a.answerer.Answer(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if aerr != nil {
		answer = ""
		log.Warn().Err(aerr).Str("id", id).Msg("answer generation failed")
	}
	r, err := a.store.Update(ctx, id, dataset.Patch{LLMResponse: &answer})
	if err != nil {
		return dataset.Record{}, err
	}
	if aerr != nil {
		return r, fmt.Errorf("generate answer: %w", aerr)
	}
	return r, nil
}

// Export writes every record to w in format f.
func (a *App) Export(ctx context.Context, f export.Format, w io.Writer) error {
	records, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if err := export.Write(w, f, records); err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	log.Info().Int("records", len(records)).Str("format", string(f)).Msg("dataset exported")
	return nil
}
