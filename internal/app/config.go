package app

import (
	"time"

	"github.com/hyperifyio/regdataset/internal/evidence"
	"github.com/hyperifyio/regdataset/internal/extract"
	"github.com/hyperifyio/regdataset/internal/llm"
)

// DefaultUserAgent identifies outbound search and page requests.
const DefaultUserAgent = "regdataset/1.0 (+https://github.com/hyperifyio/regdataset)"

// Config holds runtime configuration for the application.
type Config struct {
	DatasetPath string

	// Search
	GoogleSearchKey      string
	GoogleSearchEngineID string
	SearchFile           string
	UserAgent            string
	CFREndpoint          string

	// LLM
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	AssistantID  string
	PollInterval time.Duration
	// MaxWait bounds run polling; zero polls until the run ends.
	MaxWait time.Duration

	// Evidence
	AllowedOrigins     []string
	EvidenceMaxResults int
	EvidenceByteBudget int
	FetchConcurrency   int

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	// CacheAnswers reuses stored answers for identical prompts. Off by default
	// so answering a record again always starts a new assistant run.
	CacheAnswers bool

	SSLVerify bool
	Verbose   bool
}

// DefaultConfig returns the built-in defaults, the lowest configuration layer.
func DefaultConfig() Config {
	return Config{
		DatasetPath:        "regdataset.db",
		UserAgent:          DefaultUserAgent,
		LLMModel:           llm.DefaultModel,
		PollInterval:       llm.DefaultPollInterval,
		MaxWait:            llm.DefaultMaxWait,
		AllowedOrigins:     append([]string(nil), extract.DefaultAllowedOrigins...),
		EvidenceMaxResults: evidence.DefaultMaxResults,
		EvidenceByteBudget: evidence.DefaultByteBudget,
		FetchConcurrency:   4,
		CacheDir:           ".regdataset-cache",
		SSLVerify:          true,
	}
}
