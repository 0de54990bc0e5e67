// Package anthropic implements the llm.Generator transport for the
// Anthropic Messages API.
package anthropic

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
	defaultBaseURL = "https://api.anthropic.com"
	defaultTimeout = 60 * time.Second
	apiVersion     = "2023-06-01"
)

// Config holds the transport settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an Anthropic transport.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &llm.Error{Kind: llm.KindAuth, Provider: llm.ProviderAnthropic, Message: "missing API key"}
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

func (c *Client) Name() string { return string(llm.ProviderAnthropic) }

type anthropicMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"` // system prompt rides outside the message list
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   *anthropicUsage    `json:"usage,omitempty"`
}

// convertMessages extracts the system prompt and coalesces consecutive
// same-role messages; the Messages API requires strict user/assistant
// alternation starting with user.
func convertMessages(msgs []llm.Message) (string, []anthropicMessage) {
	var system string
	var out []anthropicMessage
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			system = m.Content
			continue
		}
		role := string(m.Role)
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, anthropicMessage{Role: role, Content: m.Content})
	}
	return system, out
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, spec llm.ModelSpec, msgs []llm.Message) (*llm.Response, error) {
	system, converted := convertMessages(msgs)
	body, err := json.Marshal(anthropicRequest{
		Model:       spec.Model,
		Messages:    converted,
		System:      system,
		MaxTokens:   spec.MaxTokens,
		Temperature: spec.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("anthropic request", zap.String("model", spec.Model), zap.Int("messages", len(converted)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.Error{Kind: llm.KindTransient, Provider: llm.ProviderAnthropic, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, llm.Classify(llm.ProviderAnthropic, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderAnthropic, Message: "decoding response", Cause: err}
	}

	var sb strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderAnthropic, Message: "response contained no text content"}
	}

	out := &llm.Response{Text: text, Model: decoded.Model}
	if decoded.Usage != nil {
		out.Usage = &llm.Usage{InputTokens: decoded.Usage.InputTokens, OutputTokens: decoded.Usage.OutputTokens}
	}
	return out, nil
}
