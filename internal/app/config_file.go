package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the YAML/JSON configuration file schema.
type FileConfig struct {
	Dataset string `yaml:"dataset" json:"dataset"`

	Google struct {
		Key      string `yaml:"key" json:"key"`
		EngineID string `yaml:"engineID" json:"engineID"`
	} `yaml:"google" json:"google"`

	Search struct {
		File      string `yaml:"file" json:"file"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
		CFR       string `yaml:"cfrEndpoint" json:"cfrEndpoint"`
	} `yaml:"search" json:"search"`

	LLM struct {
		BaseURL      string        `yaml:"base" json:"base"`
		Model        string        `yaml:"model" json:"model"`
		APIKey       string        `yaml:"key" json:"key"`
		AssistantID  string        `yaml:"assistant" json:"assistant"`
		PollInterval time.Duration `yaml:"pollInterval" json:"pollInterval"`
		MaxWait      time.Duration `yaml:"maxWait" json:"maxWait"`
	} `yaml:"llm" json:"llm"`

	Evidence struct {
		AllowedOrigins []string `yaml:"allowedOrigins" json:"allowedOrigins"`
		MaxResults     int      `yaml:"maxResults" json:"maxResults"`
		ByteBudget     int      `yaml:"byteBudget" json:"byteBudget"`
		Concurrency    int      `yaml:"concurrency" json:"concurrency"`
	} `yaml:"evidence" json:"evidence"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Answers     bool          `yaml:"answers" json:"answers"`
	} `yaml:"cache" json:"cache"`

	SSLVerify *bool `yaml:"sslVerify" json:"sslVerify"`
	Verbose   bool  `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays file values onto cfg wherever cfg still holds a
// zero or built-in default value.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()
	str := func(dst *string, dflt, v string) {
		if (*dst == "" || *dst == dflt) && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, dflt, v int) {
		if (*dst == 0 || *dst == dflt) && v > 0 {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, dflt, v time.Duration) {
		if (*dst == 0 || *dst == dflt) && v > 0 {
			*dst = v
		}
	}

	str(&cfg.DatasetPath, def.DatasetPath, fc.Dataset)
	str(&cfg.GoogleSearchKey, "", fc.Google.Key)
	str(&cfg.GoogleSearchEngineID, "", fc.Google.EngineID)
	str(&cfg.SearchFile, "", fc.Search.File)
	str(&cfg.UserAgent, def.UserAgent, fc.Search.UserAgent)
	str(&cfg.CFREndpoint, "", fc.Search.CFR)

	str(&cfg.LLMBaseURL, "", fc.LLM.BaseURL)
	str(&cfg.LLMModel, def.LLMModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, "", fc.LLM.APIKey)
	str(&cfg.AssistantID, "", fc.LLM.AssistantID)
	dur(&cfg.PollInterval, def.PollInterval, fc.LLM.PollInterval)
	dur(&cfg.MaxWait, def.MaxWait, fc.LLM.MaxWait)

	if len(fc.Evidence.AllowedOrigins) > 0 && (len(cfg.AllowedOrigins) == 0 || sameList(cfg.AllowedOrigins, def.AllowedOrigins)) {
		cfg.AllowedOrigins = append([]string(nil), fc.Evidence.AllowedOrigins...)
	}
	num(&cfg.EvidenceMaxResults, def.EvidenceMaxResults, fc.Evidence.MaxResults)
	num(&cfg.EvidenceByteBudget, def.EvidenceByteBudget, fc.Evidence.ByteBudget)
	num(&cfg.FetchConcurrency, def.FetchConcurrency, fc.Evidence.Concurrency)

	str(&cfg.CacheDir, def.CacheDir, fc.Cache.Dir)
	dur(&cfg.CacheMaxAge, 0, fc.Cache.MaxAge)
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if fc.Cache.Answers {
		cfg.CacheAnswers = true
	}
	if fc.SSLVerify != nil {
		cfg.SSLVerify = *fc.SSLVerify
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks settings every command relies on.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DatasetPath) == "" {
		return errors.New("config: dataset path is required (or set DATASET_DB)")
	}
	if cfg.EvidenceMaxResults < 0 || cfg.FetchConcurrency < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.EvidenceByteBudget < len("[]") {
		return fmt.Errorf("config: evidence byte budget %d is too small", cfg.EvidenceByteBudget)
	}
	if cfg.PollInterval < 0 || cfg.MaxWait < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}

// ValidateLLMConfig checks the settings answer generation needs.
func ValidateLLMConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AssistantID) == "" {
		return errors.New("config: assistant id is required (or set ASSISTANTID)")
	}
	if strings.TrimSpace(cfg.LLMAPIKey) == "" && strings.TrimSpace(cfg.LLMBaseURL) == "" {
		return errors.New("config: llm key is required (or set OPENAI_APIKEY)")
	}
	return nil
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
