package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/regdataset/internal/llm/llmstub"
)

// openai-stub serves a fake Assistants API so the answer command can run
// offline: LLM_BASE_URL=http://localhost:8081/v1 ASSISTANTID=asst_stub.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	polls, _ := strconv.Atoi(os.Getenv("STUB_POLLS"))

	stub := &llmstub.Server{Model: model, PollsBeforeDone: polls, FinalStatus: os.Getenv("STUB_FINAL_STATUS")}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		stub.ServeHTTP(w, r)
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}
