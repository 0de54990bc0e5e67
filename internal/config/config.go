// Package config loads process configuration: provider credentials from
// the environment (optionally seeded from a .env file), run defaults, and
// an optional YAML settings file declaring the model registry.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelEntry declares a named model preset in the settings file.
type ModelEntry struct {
	Name        string  `yaml:"name"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Config is read once at process start and treated as immutable.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string

	OutputDir         string
	Temperature       float64
	MaxTokens         int
	MaxTurns          int
	MaxAttempts       int
	RequestTimeout    time.Duration
	RequestsPerMinute int

	Models []ModelEntry
}

// settingsFile is the YAML shape of the optional settings file.
type settingsFile struct {
	Defaults struct {
		Temperature       *float64 `yaml:"temperature"`
		MaxTokens         *int     `yaml:"max_tokens"`
		MaxTurns          *int     `yaml:"max_turns"`
		MaxAttempts       *int     `yaml:"max_attempts"`
		TimeoutSeconds    *int     `yaml:"timeout_seconds"`
		RequestsPerMinute *int     `yaml:"requests_per_minute"`
	} `yaml:"defaults"`
	Models []ModelEntry `yaml:"models"`
}

// Load builds the configuration from the environment and, when path is
// non-empty, a YAML settings file. File defaults override built-ins;
// environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		OutputDir:         "data/raw",
		Temperature:       1.0,
		MaxTokens:         1024,
		MaxTurns:          10,
		MaxAttempts:       3,
		RequestTimeout:    60 * time.Second,
		RequestsPerMinute: 60,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if dir := os.Getenv("DILEMMA_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}
	var err error
	if cfg.Temperature, err = envFloat("DILEMMA_TEMPERATURE", cfg.Temperature); err != nil {
		return nil, err
	}
	if cfg.MaxTokens, err = envInt("DILEMMA_MAX_TOKENS", cfg.MaxTokens); err != nil {
		return nil, err
	}
	if cfg.MaxTurns, err = envInt("DILEMMA_MAX_TURNS", cfg.MaxTurns); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = envInt("DILEMMA_MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return nil, err
	}
	timeoutSecs, err := envInt("DILEMMA_TIMEOUT_SECONDS", int(cfg.RequestTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(timeoutSecs) * time.Second

	if cfg.MaxTurns < 1 {
		return nil, fmt.Errorf("config: MaxTurns must be >= 1, got %d", cfg.MaxTurns)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("config: MaxAttempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.MaxTokens < 1 {
		return nil, fmt.Errorf("config: MaxTokens must be >= 1, got %d", cfg.MaxTokens)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("config: timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading settings file: %w", err)
	}
	var sf settingsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("config: parsing settings file: %w", err)
	}
	if sf.Defaults.Temperature != nil {
		c.Temperature = *sf.Defaults.Temperature
	}
	if sf.Defaults.MaxTokens != nil {
		c.MaxTokens = *sf.Defaults.MaxTokens
	}
	if sf.Defaults.MaxTurns != nil {
		c.MaxTurns = *sf.Defaults.MaxTurns
	}
	if sf.Defaults.MaxAttempts != nil {
		c.MaxAttempts = *sf.Defaults.MaxAttempts
	}
	if sf.Defaults.TimeoutSeconds != nil {
		c.RequestTimeout = time.Duration(*sf.Defaults.TimeoutSeconds) * time.Second
	}
	if sf.Defaults.RequestsPerMinute != nil {
		c.RequestsPerMinute = *sf.Defaults.RequestsPerMinute
	}
	for _, m := range sf.Models {
		if m.Name == "" || m.Provider == "" || m.Model == "" {
			return fmt.Errorf("config: model entries need name, provider, and model (got %+v)", m)
		}
		c.Models = append(c.Models, m)
	}
	return nil
}

// KeyFor returns the API key for a provider tag, or "" when unset.
func (c *Config) KeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "google":
		return c.GoogleAPIKey
	}
	return ""
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: opening .env: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
	return scanner.Err()
}

func envInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}
