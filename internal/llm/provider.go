package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Assistants is the subset of the OpenAI Assistants API the answering stage
// needs. *openai.Client satisfies it directly; tests substitute fakes.
type Assistants interface {
	CreateThreadAndRun(ctx context.Context, request openai.CreateThreadAndRunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// ModelLister is an optional capability used for a best-effort preflight.
// Callers should use a type assertion to detect availability.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// NewOpenAIClient builds a client for the OpenAI API or a compatible server.
// The Assistants endpoints require the v2 beta header, which DefaultConfig
// already sets.
func NewOpenAIClient(apiKey, baseURL string, hc openai.HTTPDoer) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return openai.NewClientWithConfig(cfg)
}
