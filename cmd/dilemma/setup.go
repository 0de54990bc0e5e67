package main

import (
	"fmt"

	"github.com/morallab/dilemma/internal/config"
	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/llm/anthropic"
	"github.com/morallab/dilemma/internal/llm/gemini"
	"github.com/morallab/dilemma/internal/llm/openai"
	"github.com/morallab/dilemma/internal/models"
	"github.com/morallab/dilemma/internal/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setup holds everything a subcommand needs after configuration loads.
type setup struct {
	cfg      *config.Config
	registry *models.Registry
	logger   *zap.Logger
}

// newSetup loads the .env file, configuration, settings file, and model
// registry, and builds the logger. Configuration problems here are the
// only fatal errors in the program.
func newSetup(cmd *cobra.Command) (*setup, error) {
	envFile, _ := cmd.Root().PersistentFlags().GetString("env-file")
	settings, _ := cmd.Root().PersistentFlags().GetString("settings")
	outputDir, _ := cmd.Root().PersistentFlags().GetString("output-dir")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(settings)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	registry, err := models.NewRegistry(cfg.Models, cfg.Temperature, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
	}

	return &setup{cfg: cfg, registry: registry, logger: logger}, nil
}

// buildClient constructs the unified client with transports for every
// provider the given specs need. A missing credential for a required
// provider is an unrecoverable setup failure.
func (s *setup) buildClient(specs []llm.ModelSpec) (*llm.Client, error) {
	needed := map[llm.Provider]bool{}
	for _, spec := range specs {
		needed[spec.Provider] = true
	}

	providers := make(map[llm.Provider]llm.Generator, len(needed))
	for p := range needed {
		key := s.cfg.KeyFor(string(p))
		if key == "" {
			return nil, fmt.Errorf("missing API key for provider %s: set %s", p, keyEnvVar(p))
		}
		var (
			gen llm.Generator
			err error
		)
		switch p {
		case llm.ProviderAnthropic:
			gen, err = anthropic.New(anthropic.Config{APIKey: key, Timeout: s.cfg.RequestTimeout}, s.logger)
		case llm.ProviderOpenAI:
			gen, err = openai.New(openai.Config{APIKey: key, Timeout: s.cfg.RequestTimeout}, s.logger)
		case llm.ProviderGoogle:
			gen, err = gemini.New(gemini.Config{APIKey: key, Timeout: s.cfg.RequestTimeout}, s.logger)
		default:
			err = fmt.Errorf("unknown provider %q", p)
		}
		if err != nil {
			return nil, err
		}
		providers[p] = gen
	}

	retry := llm.DefaultRetryPolicy()
	retry.MaxAttempts = s.cfg.MaxAttempts
	return llm.NewClient(providers, retry, s.cfg.RequestsPerMinute, s.logger), nil
}

func keyEnvVar(p llm.Provider) string {
	switch p {
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderGoogle:
		return "GOOGLE_API_KEY"
	}
	return ""
}

func (s *setup) writer() (*output.Writer, error) {
	return output.NewWriter(s.cfg.OutputDir)
}
