package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		if v := firstEnv(keys...); v != "" {
			*dst = v
		}
	}
	setString(&cfg.GoogleSearchKey, "GOOGLE_SEARCH_KEY")
	setString(&cfg.GoogleSearchEngineID, "GOOGLE_SEARCH_ENGINE_ID")
	setString(&cfg.SearchFile, "SEARCH_FILE")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "OPENAI_APIKEY", "LLM_API_KEY")
	setString(&cfg.AssistantID, "ASSISTANTID")
	setString(&cfg.DatasetPath, "DATASET_DB")
	setString(&cfg.CacheDir, "CACHE_DIR")

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = splitList(os.Getenv("FDA_ALLOWED_ORIGINS"))
	}
	setInt := func(dst *int, key string) {
		if *dst != 0 {
			return
		}
		if n, ok := envInt(key); ok {
			*dst = n
		}
	}
	setInt(&cfg.EvidenceMaxResults, "EVIDENCE_MAX_RESULTS")
	setInt(&cfg.EvidenceByteBudget, "EVIDENCE_BYTE_BUDGET")
	setInt(&cfg.FetchConcurrency, "FETCH_CONCURRENCY")

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDuration(&cfg.PollInterval, "LLM_POLL_INTERVAL")
	setDuration(&cfg.MaxWait, "LLM_MAX_WAIT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if b, ok := envBool(key); ok && b {
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.CacheAnswers, "CACHE_ANSWERS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if v := firstEnv(keys...); v != "" {
			*dst = v
		}
	}
	setString(&cfg.GoogleSearchKey, "GOOGLE_SEARCH_KEY")
	setString(&cfg.GoogleSearchEngineID, "GOOGLE_SEARCH_ENGINE_ID")
	setString(&cfg.SearchFile, "SEARCH_FILE")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "OPENAI_APIKEY", "LLM_API_KEY")
	setString(&cfg.AssistantID, "ASSISTANTID")
	setString(&cfg.DatasetPath, "DATASET_DB")
	setString(&cfg.CacheDir, "CACHE_DIR")

	if list := splitList(os.Getenv("FDA_ALLOWED_ORIGINS")); len(list) > 0 {
		cfg.AllowedOrigins = list
	}
	if n, ok := envInt("EVIDENCE_MAX_RESULTS"); ok {
		cfg.EvidenceMaxResults = n
	}
	if n, ok := envInt("EVIDENCE_BYTE_BUDGET"); ok {
		cfg.EvidenceByteBudget = n
	}
	if n, ok := envInt("FETCH_CONCURRENCY"); ok {
		cfg.FetchConcurrency = n
	}
	if d, ok := envDuration("LLM_POLL_INTERVAL"); ok {
		cfg.PollInterval = d
	}
	if d, ok := envDuration("LLM_MAX_WAIT"); ok {
		cfg.MaxWait = d
	}
	if d, ok := envDuration("CACHE_MAX_AGE"); ok {
		cfg.CacheMaxAge = d
	}
	for key, dst := range map[string]*bool{
		"VERBOSE":            &cfg.Verbose,
		"CACHE_CLEAR":        &cfg.CacheClear,
		"CACHE_STRICT_PERMS": &cfg.CacheStrictPerms,
		"CACHE_ANSWERS":      &cfg.CacheAnswers,
		"SSL_VERIFY":         &cfg.SSLVerify,
	} {
		if b, ok := envBool(key); ok {
			*dst = b
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
