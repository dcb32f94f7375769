package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// RunState is the polling state of an assistant run.
type RunState int

const (
	StateQueued RunState = iota
	StateInProgress
	StateTerminal
)

func (s RunState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInProgress:
		return "in_progress"
	default:
		return "terminal"
	}
}

// StateOf maps an API run status onto the polling state machine. Only
// queued and in_progress keep the poller waiting; every other status,
// including requires_action and cancelling, ends polling.
func StateOf(status openai.RunStatus) RunState {
	switch status {
	case openai.RunStatusQueued:
		return StateQueued
	case openai.RunStatusInProgress:
		return StateInProgress
	default:
		return StateTerminal
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Clock returns the current time.
type Clock func() time.Time

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait polls run until it reaches a terminal state, MaxWait elapses, or ctx
// is done. The returned run is the last one observed.
func (a *Answerer) Wait(ctx context.Context, run openai.Run) (openai.Run, error) {
	interval := a.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	sleep := a.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	for {
		state := StateOf(run.Status)
		if state == StateTerminal {
			return run, nil
		}
		if a.MaxWait > 0 && now().Sub(start) >= a.MaxWait {
			return run, fmt.Errorf("%w after %s (last status %s)", ErrPollTimeout, a.MaxWait, run.Status)
		}
		log.Debug().Str("run", run.ID).Str("state", state.String()).Msg("waiting on assistant run")
		if err := sleep(ctx, interval); err != nil {
			return run, err
		}
		next, err := a.Client.RetrieveRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("retrieve run: %w", err)
		}
		run = next
	}
}
