package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/regdataset/internal/cache"
)

const (
	// DefaultModel is the model the assistant run is pinned to.
	DefaultModel = "gpt-4o"
	// DefaultPollInterval is the delay between run status checks.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultMaxWait bounds how long a run is polled.
	DefaultMaxWait = 5 * time.Minute
)

var (
	// ErrRunNotCompleted is returned when a run ends in a terminal status
	// other than completed.
	ErrRunNotCompleted = errors.New("assistant run did not complete")
	// ErrPollTimeout is returned when MaxWait elapses before the run ends.
	ErrPollTimeout = errors.New("assistant run polling timed out")
	// ErrEmptyAnswer is returned when the thread holds no text reply.
	ErrEmptyAnswer = errors.New("assistant returned no text")
)

// Message is one prompt message. Role is "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Answerer sends a prompt to an OpenAI assistant and waits for its reply.
type Answerer struct {
	Client      Assistants
	AssistantID string
	Model       string // defaults to DefaultModel

	// PollInterval is the fixed delay between status checks.
	PollInterval time.Duration
	// MaxWait bounds polling. Zero or negative polls until the run ends or
	// ctx is done.
	MaxWait time.Duration

	Sleep Sleeper // defaults to SleepContext
	Now   Clock   // defaults to time.Now

	// Cache, when set, returns a stored answer for an identical prompt.
	Cache *cache.AnswerCache
}

// Answer creates a thread with messages, runs the assistant on it and returns
// the text of the newest message once the run completes.
func (a *Answerer) Answer(ctx context.Context, messages []Message) (string, error) {
	if a.Client == nil || strings.TrimSpace(a.AssistantID) == "" {
		return "", errors.New("answerer not configured: client and assistant id are required")
	}
	model := a.Model
	if model == "" {
		model = DefaultModel
	}
	var key string
	if a.Cache != nil {
		key = cache.AnswerKey(a.AssistantID, model, promptText(messages))
		cached, ok, err := a.Cache.Get(ctx, key)
		if err != nil {
			log.Debug().Err(err).Msg("answer cache lookup failed")
		}
		if ok && strings.TrimSpace(cached) != "" {
			log.Debug().Str("assistant", a.AssistantID).Msg("answer served from cache")
			return cached, nil
		}
	}

	req := openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{AssistantID: a.AssistantID, Model: model},
		Thread:     openai.ThreadRequest{Messages: threadMessages(messages)},
	}
	run, err := a.Client.CreateThreadAndRun(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create thread and run: %w", err)
	}
	run, err = a.Wait(ctx, run)
	if err != nil {
		return "", err
	}
	if run.Status != openai.RunStatusCompleted {
		if run.LastError != nil {
			return "", fmt.Errorf("%w: status %s: %s: %s", ErrRunNotCompleted, run.Status, run.LastError.Code, run.LastError.Message)
		}
		return "", fmt.Errorf("%w: status %s", ErrRunNotCompleted, run.Status)
	}

	answer, err := a.firstText(ctx, run)
	if err != nil {
		return "", err
	}
	if a.Cache != nil {
		if err := a.Cache.Save(ctx, key, answer); err != nil {
			log.Debug().Err(err).Msg("answer cache save failed")
		}
	}
	return answer, nil
}

// firstText returns the first text part of the newest message in the run's
// thread, which is the assistant's reply.
func (a *Answerer) firstText(ctx context.Context, run openai.Run) (string, error) {
	limit := 20
	order := "desc"
	runID := run.ID
	list, err := a.Client.ListMessage(ctx, run.ThreadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return "", ErrEmptyAnswer
	}
	for _, c := range list.Messages[0].Content {
		if c.Text != nil {
			return c.Text.Value, nil
		}
	}
	return "", ErrEmptyAnswer
}

func threadMessages(messages []Message) []openai.ThreadMessage {
	out := make([]openai.ThreadMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ThreadMessageRoleUser
		if m.Role == string(openai.ThreadMessageRoleAssistant) {
			role = openai.ThreadMessageRoleAssistant
		}
		out = append(out, openai.ThreadMessage{Role: role, Content: m.Content})
	}
	return out
}

func promptText(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
