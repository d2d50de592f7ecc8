package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/railwatch/railwatch/internal/llm"
	"github.com/railwatch/railwatch/internal/logging"
	"github.com/railwatch/railwatch/internal/model"
)

// loadConfig layers the config file over the defaults, then pulls secrets
// from the environment. Secrets never come from the file.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if verbose {
		cfg.Output.Verbose = true
	}

	cfg.LLM.APIKey = llmAPIKey(cfg.LLM.Provider)
	cfg.FRA.AppToken = os.Getenv("RAILWATCH_APP_TOKEN")
	cfg.Notify.Password = os.Getenv("RAILWATCH_SMTP_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func llmAPIKey(provider string) string {
	switch {
	case provider == "openai":
		return os.Getenv("OPENAI_API_KEY")
	case strings.Contains(provider, "anthropic") || strings.Contains(provider, "claude"):
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// newLogger builds the run logger from the verbosity flag.
func newLogger(cfg *model.Config) (zerolog.Logger, error) {
	level := "info"
	if cfg.Output.Verbose {
		level = "debug"
	}
	return logging.New(level, true)
}

// newExtractor builds the configured LLM extractor, or nil when extraction
// is disabled.
func newExtractor(cfg *model.Config, log zerolog.Logger) (*llm.Extractor, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return llm.NewExtractor(provider, cfg.LLM, log), nil
}
