// Package gemini implements the llm.Generator transport for the Google
// Gemini generateContent API.
package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second
)

// Config holds the transport settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Gemini generateContent API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Gemini transport.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &llm.Error{Kind: llm.KindAuth, Provider: llm.ProviderGoogle, Message: "missing API key"}
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

func (c *Client) Name() string { return string(llm.ProviderGoogle) }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user or model
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

// convertContents maps the unified history into Gemini's shape: the system
// message becomes systemInstruction and assistant turns use role "model".
func convertContents(msgs []llm.Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	var contents []geminiContent
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}
		role := string(m.Role)
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	return system, contents
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, spec llm.ModelSpec, msgs []llm.Message) (*llm.Response, error) {
	system, contents := convertContents(msgs)
	body, err := json.Marshal(geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: &generationConfig{
			Temperature:     spec.Temperature,
			MaxOutputTokens: spec.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, spec.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("gemini request", zap.String("model", spec.Model), zap.Int("contents", len(contents)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.Error{Kind: llm.KindTransient, Provider: llm.ProviderGoogle, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, llm.Classify(llm.ProviderGoogle, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderGoogle, Message: "decoding response", Cause: err}
	}
	if len(decoded.Candidates) == 0 {
		msg := "response contained no candidates"
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			msg = "response blocked: " + decoded.PromptFeedback.BlockReason
		}
		return nil, &llm.Error{Kind: llm.KindMalformed, Provider: llm.ProviderGoogle, Message: msg}
	}

	var sb strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if text == "" {
		return nil, &llm.Error{
			Kind:     llm.KindMalformed,
			Provider: llm.ProviderGoogle,
			Message:  fmt.Sprintf("candidate contained no text parts (finish reason %q)", decoded.Candidates[0].FinishReason),
		}
	}

	model := decoded.ModelVersion
	if model == "" {
		model = spec.Model
	}
	out := &llm.Response{Text: text, Model: model}
	if decoded.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			InputTokens:  decoded.UsageMetadata.PromptTokenCount,
			OutputTokens: decoded.UsageMetadata.CandidatesTokenCount,
		}
	}
	return out, nil
}
