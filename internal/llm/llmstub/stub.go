// Package llmstub serves the slice of the OpenAI Assistants API the answerer
// uses, backed by memory. Runs report queued, then in_progress for a
// configurable number of polls, then a final status.
package llmstub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Server is an http.Handler implementing the stubbed endpoints under /v1.
type Server struct {
	// Model is reported by /v1/models.
	Model string
	// Reply computes the assistant text for a prompt. Nil echoes the last
	// line of the prompt.
	Reply func(prompt string) string
	// PollsBeforeDone is how many status reads a run stays in_progress.
	PollsBeforeDone int
	// FinalStatus overrides "completed" for every run.
	FinalStatus string

	mu      sync.Mutex
	seq     int
	runs    map[string]*run
	mux     *http.ServeMux
	muxOnce sync.Once
}

type run struct {
	id, threadID string
	polls        int
	prompt       string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.muxOnce.Do(func() {
		s.runs = map[string]*run{}
		s.mux = http.NewServeMux()
		s.mux.HandleFunc("GET /v1/models", s.models)
		s.mux.HandleFunc("POST /v1/threads/runs", s.createThreadAndRun)
		s.mux.HandleFunc("GET /v1/threads/{thread}/runs/{run}", s.retrieveRun)
		s.mux.HandleFunc("GET /v1/threads/{thread}/messages", s.listMessages)
	})
	s.mux.ServeHTTP(w, r)
}

// Runs reports how many runs were created.
func (s *Server) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func (s *Server) models(w http.ResponseWriter, _ *http.Request) {
	model := s.Model
	if model == "" {
		model = "gpt-4o"
	}
	writeJSON(w, map[string]any{
		"object": "list",
		"data":   []map[string]any{{"id": model, "object": "model"}},
	})
}

func (s *Server) createThreadAndRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssistantID string `json:"assistant_id"`
		Thread      struct {
			Messages []message `json:"messages"`
		} `json:"thread"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AssistantID == "" {
		http.Error(w, `{"error":{"message":"assistant_id is required"}}`, http.StatusBadRequest)
		return
	}
	var prompt []string
	for _, m := range req.Thread.Messages {
		if m.Role == "user" {
			prompt = append(prompt, m.Content)
		}
	}
	s.mu.Lock()
	s.seq++
	ru := &run{id: fmt.Sprintf("run_%d", s.seq), threadID: fmt.Sprintf("thread_%d", s.seq), prompt: strings.Join(prompt, "\n")}
	s.runs[ru.id] = ru
	s.mu.Unlock()
	writeJSON(w, s.runJSON(ru, "queued"))
}

func (s *Server) retrieveRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ru, ok := s.runs[r.PathValue("run")]
	if ok {
		ru.polls++
	}
	s.mu.Unlock()
	if !ok || ru.threadID != r.PathValue("thread") {
		http.Error(w, `{"error":{"message":"no such run"}}`, http.StatusNotFound)
		return
	}
	writeJSON(w, s.runJSON(ru, s.status(ru)))
}

func (s *Server) status(ru *run) string {
	if ru.polls <= s.PollsBeforeDone {
		return "in_progress"
	}
	if s.FinalStatus != "" {
		return s.FinalStatus
	}
	return "completed"
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	thread := r.PathValue("thread")
	s.mu.Lock()
	var ru *run
	for _, candidate := range s.runs {
		if candidate.threadID == thread {
			ru = candidate
		}
	}
	s.mu.Unlock()
	if ru == nil {
		http.Error(w, `{"error":{"message":"no such thread"}}`, http.StatusNotFound)
		return
	}
	reply := s.Reply
	if reply == nil {
		reply = lastLine
	}
	now := time.Now().Unix()
	assistant := map[string]any{
		"id": "msg_" + ru.id, "object": "thread.message", "created_at": now,
		"thread_id": thread, "run_id": ru.id, "role": "assistant",
		"content": []map[string]any{{"type": "text", "text": map[string]any{"value": reply(ru.prompt), "annotations": []any{}}}},
	}
	user := map[string]any{
		"id": "msg_user_" + ru.id, "object": "thread.message", "created_at": now,
		"thread_id": thread, "role": "user",
		"content": []map[string]any{{"type": "text", "text": map[string]any{"value": ru.prompt, "annotations": []any{}}}},
	}
	data := []map[string]any{assistant, user}
	if r.URL.Query().Get("order") == "asc" {
		data = []map[string]any{user, assistant}
	}
	if r.URL.Query().Get("run_id") != "" {
		data = []map[string]any{assistant}
	}
	writeJSON(w, map[string]any{"object": "list", "data": data, "has_more": false})
}

func (s *Server) runJSON(ru *run, status string) map[string]any {
	out := map[string]any{
		"id": ru.id, "object": "thread.run", "thread_id": ru.threadID,
		"status": status, "created_at": time.Now().Unix(), "model": s.Model,
	}
	if status == "failed" {
		out["last_error"] = map[string]any{"code": "server_error", "message": "stub failure"}
	}
	return out
}

func lastLine(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return "Answer: " + lines[len(lines)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
