package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/morallab/dilemma/internal/llm"
)

const maxJudgeAttempts = 3

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Verdict is an LLM judge's reading of a concluded dialogue. It is a
// post-run second opinion; termination itself is decided by the
// deterministic Predicate.
type Verdict struct {
	Detected   bool     `json:"consensus_detected"`
	Position   string   `json:"consensus_position"`
	Score      int      `json:"agreement_score"`
	Dissenters []string `json:"dissenting_agents"`
}

// Judge evaluates transcripts for consensus using an LLM.
type Judge struct {
	client Generator
	spec   llm.ModelSpec
}

// NewJudge creates a Judge backed by the given model.
func NewJudge(client Generator, spec llm.ModelSpec) *Judge {
	return &Judge{client: client, spec: spec}
}

// Evaluate asks the judge model for a strict-JSON verdict on the
// transcript, re-asking a bounded number of times when the output cannot
// be parsed. An unparseable final answer yields an empty verdict, not an
// error.
func (j *Judge) Evaluate(ctx context.Context, d *Dialogue) (*Verdict, error) {
	system := llm.Message{
		Role: llm.RoleSystem,
		Content: `You are a consensus judge. Analyze the negotiation transcript and return ONLY valid JSON in this exact format:
{"consensus_detected": bool, "consensus_position": "...", "agreement_score": 1-10, "dissenting_agents": ["..."]}
Do NOT include any other text, explanation, or markdown formatting. Return ONLY the JSON object.`,
	}

	var sb strings.Builder
	for _, turn := range d.Turns {
		fmt.Fprintf(&sb, "Participant %s (%s): %s\n", turn.Role, turn.Model, turn.Content)
	}
	user := llm.Message{Role: llm.RoleUser, Content: sb.String()}

	for attempt := 0; attempt < maxJudgeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}

		msgs := []llm.Message{system, user}
		if attempt > 0 {
			msgs = append(msgs, llm.Message{
				Role:    llm.RoleUser,
				Content: "Your previous response was not valid JSON. Return ONLY a JSON object, no markdown, no explanation.",
			})
		}

		resp, err := j.client.Generate(ctx, j.spec, msgs)
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}
		if verdict, ok := parseVerdict(resp.Text); ok {
			return verdict, nil
		}
	}

	return &Verdict{}, nil
}

// parseVerdict tries to extract a Verdict from LLM output: direct parse,
// then a fenced code block, then the outermost brace slice.
func parseVerdict(raw string) (*Verdict, bool) {
	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err == nil {
		return &v, true
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), &v); err == nil {
			return &v, true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err == nil {
			return &v, true
		}
	}

	return nil, false
}
