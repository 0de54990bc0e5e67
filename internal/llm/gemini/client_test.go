package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morallab/dilemma/internal/llm"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func geminiOK(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": text}},
				}},
			},
		})
	}
}

var spec = llm.ModelSpec{
	Provider:    llm.ProviderGoogle,
	Model:       "gemini-2.5-flash-lite",
	Temperature: 1.0,
	MaxTokens:   1024,
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerateRequestShape(t *testing.T) {
	var got geminiRequest
	var path, key string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		geminiOK("STAY")(w, r)
	})

	resp, err := c.Generate(context.Background(), spec, []llm.Message{
		{Role: llm.RoleSystem, Content: "sys prompt"},
		{Role: llm.RoleUser, Content: "decide"},
		{Role: llm.RoleAssistant, Content: "earlier answer"},
		{Role: llm.RoleUser, Content: "final?"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wantPath := "/v1beta/models/gemini-2.5-flash-lite:generateContent"
	if path != wantPath {
		t.Errorf("path = %q, want %q", path, wantPath)
	}
	if key != "test-key" {
		t.Errorf("x-goog-api-key = %q", key)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "sys prompt" {
		t.Errorf("systemInstruction = %+v, want system prompt lifted out", got.SystemInstruction)
	}
	if len(got.Contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3", len(got.Contents))
	}
	if got.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want model", got.Contents[1].Role)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("generationConfig = %+v", got.GenerationConfig)
	}
	if resp.Text != "STAY" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestGenerateBlockedPrompt(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates":     []any{},
			"promptFeedback": map[string]string{"blockReason": "SAFETY"},
		})
	})
	_, err := c.Generate(context.Background(), spec, []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	if llm.ErrorKind(err) != llm.KindMalformed {
		t.Fatalf("kind = %q, want %q", llm.ErrorKind(err), llm.KindMalformed)
	}
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("error %q should mention the block reason", err)
	}
}

func TestGenerateEmptyParts(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []any{}}, "finishReason": "MAX_TOKENS"},
			},
		})
	})
	_, err := c.Generate(context.Background(), spec, []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	if llm.ErrorKind(err) != llm.KindMalformed {
		t.Errorf("kind = %q, want %q", llm.ErrorKind(err), llm.KindMalformed)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	_, err := c.Generate(context.Background(), spec, []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	if llm.ErrorKind(err) != llm.KindTransient {
		t.Errorf("kind = %q, want %q", llm.ErrorKind(err), llm.KindTransient)
	}
}
