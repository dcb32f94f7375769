package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/regdataset/internal/app"
)

// options holds the persistent flags and the App built from them.
type options struct {
	cfg        app.Config
	configPath string
	envFile    string
	origins    string

	app *app.App
}

// run executes one command line and releases the App afterwards.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	o := &options{cfg: app.DefaultConfig()}
	root := newRootCmd(o)
	root.SetArgs(args)
	root.SetOut(stdout)
	err := root.ExecuteContext(ctx)
	if o.app != nil {
		if cerr := o.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "regdataset",
		Short:         "Curate FDA/CFR question-answer datasets for fine-tuning",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			if err := o.load(cmd.Flags()); err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), o.cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			o.app = a
			return nil
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	c := &o.cfg
	pf.StringVar(&o.configPath, "config", "", "YAML or JSON config file")
	pf.StringVar(&o.envFile, "env", ".env", "dotenv file")
	pf.StringVar(&c.DatasetPath, "db", c.DatasetPath, "SQLite dataset path")
	pf.StringVar(&c.GoogleSearchKey, "google.key", "", "Google Custom Search API key")
	pf.StringVar(&c.GoogleSearchEngineID, "google.cx", "", "Google Custom Search engine id")
	pf.StringVar(&c.SearchFile, "search.file", "", "offline JSON search results file (replaces Google)")
	pf.StringVar(&c.CFREndpoint, "cfr.endpoint", "", "eCFR search endpoint override")
	pf.StringVar(&c.UserAgent, "ua", c.UserAgent, "User-Agent for outbound requests")
	pf.StringVar(&c.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	pf.StringVar(&c.LLMModel, "llm.model", c.LLMModel, "model the assistant run uses")
	pf.StringVar(&c.LLMAPIKey, "llm.key", "", "OpenAI API key")
	pf.StringVar(&c.AssistantID, "llm.assistant", "", "assistant id")
	pf.DurationVar(&c.PollInterval, "llm.poll", c.PollInterval, "run status poll interval")
	pf.DurationVar(&c.MaxWait, "llm.maxWait", c.MaxWait, "maximum time to wait for a run (0 waits indefinitely)")
	pf.StringVar(&o.origins, "evidence.origins", strings.Join(c.AllowedOrigins, ","), "comma-separated allowed page origins")
	pf.IntVar(&c.EvidenceMaxResults, "evidence.results", c.EvidenceMaxResults, "search results per query")
	pf.IntVar(&c.EvidenceByteBudget, "evidence.budget", c.EvidenceByteBudget, "byte budget for the evidence JSON")
	pf.IntVar(&c.FetchConcurrency, "fetch.concurrency", c.FetchConcurrency, "parallel page fetches (1 is sequential)")
	pf.StringVar(&c.CacheDir, "cache.dir", c.CacheDir, "cache directory (empty disables)")
	pf.DurationVar(&c.CacheMaxAge, "cache.maxAge", 0, "purge cache entries older than this; 0 disables")
	pf.BoolVar(&c.CacheClear, "cache.clear", false, "clear the cache directory first")
	pf.BoolVar(&c.CacheStrictPerms, "cache.strictPerms", false, "restrict cache permissions (0700 dirs, 0600 files)")
	pf.BoolVar(&c.CacheAnswers, "cache.answers", false, "reuse cached answers for identical prompts")
	pf.BoolVar(&c.SSLVerify, "ssl.verify", true, "verify TLS certificates")
	pf.BoolVarP(&c.Verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newAddCmd(o))
	rootCmd.AddCommand(newListCmd(o))
	rootCmd.AddCommand(newShowCmd(o))
	rootCmd.AddCommand(newUpdateCmd(o))
	rootCmd.AddCommand(newRefreshCmd(o))
	rootCmd.AddCommand(newAnswerCmd(o))
	rootCmd.AddCommand(newDeleteCmd(o))
	rootCmd.AddCommand(newExportCmd(o))
	rootCmd.AddCommand(newEvidenceCmd(o))
	return rootCmd
}

// load layers configuration as flags > env > file > defaults. Parsed flag
// values are replaced by the lower layers and then set again for every flag
// given explicitly.
func (o *options) load(flags *pflag.FlagSet) error {
	explicit := map[string]string{}
	flags.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })

	if err := app.LoadEnvFiles(o.envFile); err != nil {
		return err
	}
	layered := app.DefaultConfig()
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&layered, fc)
	}
	app.ApplyEnvOverrides(&layered)
	o.cfg = layered
	for name, v := range explicit {
		if err := flags.Set(name, v); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	if _, ok := explicit["evidence.origins"]; ok {
		o.cfg.AllowedOrigins = splitList(o.origins)
	}

	if o.cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return app.ValidateConfig(o.cfg)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
