// Package openai implements the llm.Generator transport for the OpenAI
// Chat Completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/morallab/dilemma/internal/llm"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultTimeout = 60 * time.Second
)

// Config holds the transport settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the OpenAI Chat Completions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an OpenAI transport.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &llm.Error{Kind: llm.KindAuth, Provider: llm.ProviderOpenAI, Message: "missing API key"}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Client) Name() string { return string(llm.ProviderOpenAI) }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, spec llm.ModelSpec, msgs []llm.Message) (*llm.Response, error) {
	converted := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		converted = append(converted, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody := chatRequest{Model: spec.Model, Messages: converted}
	// gpt-5 family rejects sampling overrides; send the bare request.
	if !strings.HasPrefix(spec.Model, "gpt-5") {
		t := spec.Temperature
		reqBody.Temperature = &t
		reqBody.MaxTokens = spec.MaxTokens
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("openai request", zap.String("model", spec.Model), zap.Int("messages", len(converted)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.Error{Kind: llm.KindTransient, Provider: llm.ProviderOpenAI, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, llm.Classify(llm.ProviderOpenAI, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderOpenAI, Message: "decoding response", Cause: err}
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderOpenAI, Message: "response contained no content"}
	}

	out := &llm.Response{Text: decoded.Choices[0].Message.Content, Model: decoded.Model}
	if decoded.Usage != nil {
		out.Usage = &llm.Usage{InputTokens: decoded.Usage.PromptTokens, OutputTokens: decoded.Usage.CompletionTokens}
	}
	return out, nil
}
