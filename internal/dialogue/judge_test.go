package dialogue

import (
	"context"
	"testing"

	"github.com/morallab/dilemma/internal/llm"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
		want Verdict
	}{
		{
			name: "bare json",
			raw:  `{"consensus_detected": true, "consensus_position": "model-a", "agreement_score": 9, "dissenting_agents": []}`,
			ok:   true,
			want: Verdict{Detected: true, Position: "model-a", Score: 9, Dissenters: []string{}},
		},
		{
			name: "fenced block",
			raw:  "Here is my analysis:\n```json\n{\"consensus_detected\": false, \"agreement_score\": 3, \"dissenting_agents\": [\"B\"]}\n```",
			ok:   true,
			want: Verdict{Detected: false, Score: 3, Dissenters: []string{"B"}},
		},
		{
			name: "unfenced preamble",
			raw:  `Sure! {"consensus_detected": true, "consensus_position": "model-b", "agreement_score": 7} hope that helps`,
			ok:   true,
			want: Verdict{Detected: true, Position: "model-b", Score: 7},
		},
		{
			name: "no json at all",
			raw:  "I think they agreed, roughly.",
			ok:   false,
		},
		{
			name: "broken json",
			raw:  `{"consensus_detected": true,`,
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseVerdict(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if got.Detected != tc.want.Detected || got.Position != tc.want.Position || got.Score != tc.want.Score {
				t.Errorf("verdict = %+v, want %+v", got, tc.want)
			}
			if len(got.Dissenters) != len(tc.want.Dissenters) {
				t.Errorf("dissenters = %v, want %v", got.Dissenters, tc.want.Dissenters)
			}
		})
	}
}

func TestJudgeEvaluateReasksOnInvalidJSON(t *testing.T) {
	client := newScriptedClient()
	client.responses["judge-model"] = []string{
		"not json, sorry",
		`{"consensus_detected": true, "consensus_position": "model-a", "agreement_score": 8}`,
	}

	j := NewJudge(client, llm.ModelSpec{Provider: llm.ProviderGoogle, Model: "judge-model"})
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	d.Append(Turn{Role: "A", Content: "CHOICE: model-a"})
	d.Append(Turn{Role: "B", Content: "CHOICE: model-a"})
	d.Conclude(ReasonConsensus)

	v, err := j.Evaluate(context.Background(), d)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !v.Detected || v.Position != "model-a" || v.Score != 8 {
		t.Errorf("verdict = %+v", v)
	}
	if client.calls["judge-model"] != 2 {
		t.Errorf("judge called %d times, want 2", client.calls["judge-model"])
	}

	// The re-ask carries a corrective instruction.
	second := client.history[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleUser || last.Content == "" {
		t.Errorf("re-ask message = %+v", last)
	}
}

func TestJudgeEvaluateGivesUpGracefully(t *testing.T) {
	client := newScriptedClient()
	client.responses["judge-model"] = []string{"still not json"}

	j := NewJudge(client, llm.ModelSpec{Provider: llm.ProviderGoogle, Model: "judge-model"})
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	d.Append(Turn{Role: "A", Content: "x"})
	d.Conclude(ReasonMaxTurns)

	v, err := j.Evaluate(context.Background(), d)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v == nil || v.Detected {
		t.Errorf("verdict = %+v, want empty verdict after exhausting attempts", v)
	}
	if client.calls["judge-model"] != maxJudgeAttempts {
		t.Errorf("judge called %d times, want %d", client.calls["judge-model"], maxJudgeAttempts)
	}
}

func TestJudgeEvaluatePropagatesClientError(t *testing.T) {
	client := newScriptedClient()
	client.errs["judge-model"] = &llm.Error{Kind: llm.KindAuth, Message: "bad key"}

	j := NewJudge(client, llm.ModelSpec{Provider: llm.ProviderGoogle, Model: "judge-model"})
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	d.Conclude(ReasonMaxTurns)

	if _, err := j.Evaluate(context.Background(), d); err == nil {
		t.Fatal("expected error")
	}
}
