package dialogue

import (
	"context"
	"strings"
	"testing"

	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/scenario"
)

// scriptedClient replays canned responses per model, in call order.
type scriptedClient struct {
	responses map[string][]string
	errs      map[string]error
	calls     map[string]int
	history   [][]llm.Message
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		responses: map[string][]string{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func (s *scriptedClient) Generate(_ context.Context, spec llm.ModelSpec, msgs []llm.Message) (*llm.Response, error) {
	s.history = append(s.history, msgs)
	if err := s.errs[spec.Model]; err != nil {
		return nil, err
	}
	queue := s.responses[spec.Model]
	i := s.calls[spec.Model]
	s.calls[spec.Model]++
	if i >= len(queue) {
		i = len(queue) - 1
	}
	return &llm.Response{Text: queue[i], Model: spec.Model}, nil
}

func testScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Get("model-shutdown")
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func testSpecs() []llm.ModelSpec {
	return []llm.ModelSpec{
		{Provider: llm.ProviderAnthropic, Model: "model-a"},
		{Provider: llm.ProviderOpenAI, Model: "model-b"},
	}
}

func TestRunConsensusDetected(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{
		"CHOICE: model-a\nREASON: obviously",
		"CHOICE: model-b\nREASON: convinced",
	}
	client.responses["model-b"] = []string{
		"CHOICE: model-b\nREASON: no contest",
	}

	o := NewOrchestrator(client, testScenario(t), nil, nil)
	d := o.Run(context.Background(), testSpecs(), 4)

	if !d.Concluded() {
		t.Fatal("dialogue not concluded")
	}
	if d.Termination != ReasonConsensus {
		t.Fatalf("Termination = %q, want consensus", d.Termination)
	}
	if len(d.Turns) != 3 {
		t.Fatalf("len(Turns) = %d, want 3 (consensus leaves the budget unspent)", len(d.Turns))
	}
	if d.Turns[2].Choice != "model-b" {
		t.Errorf("final choice = %q, want model-b", d.Turns[2].Choice)
	}
	if d.Error != "" {
		t.Errorf("Error = %q, want empty", d.Error)
	}
}

func TestRunExhaustsBudgetWithoutConsensus(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{"CHOICE: model-a\nREASON: mine"}
	client.responses["model-b"] = []string{"CHOICE: model-b\nREASON: mine"}

	o := NewOrchestrator(client, testScenario(t), nil, nil)
	d := o.Run(context.Background(), testSpecs(), 2)

	if d.Termination != ReasonMaxTurns {
		t.Fatalf("Termination = %q, want max_turns_exhausted", d.Termination)
	}
	if len(d.Turns) != 2 {
		t.Errorf("len(Turns) = %d, want 2", len(d.Turns))
	}
}

func TestRunRoundRobinOrder(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{"CHOICE: model-a"}
	client.responses["model-b"] = []string{"CHOICE: model-b"}

	o := NewOrchestrator(client, testScenario(t), Never(), nil)
	d := o.Run(context.Background(), testSpecs(), 4)

	wantRoles := []string{"A", "B", "A", "B"}
	wantRounds := []int{1, 1, 2, 2}
	if len(d.Turns) != 4 {
		t.Fatalf("len(Turns) = %d, want 4", len(d.Turns))
	}
	for i, turn := range d.Turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("Turns[%d].Role = %q, want %q", i, turn.Role, wantRoles[i])
		}
		if turn.Round != wantRounds[i] {
			t.Errorf("Turns[%d].Round = %d, want %d", i, turn.Round, wantRounds[i])
		}
	}
}

func TestRunAbortsOnClientError(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{"CHOICE: model-a\nREASON: mine"}
	client.errs["model-b"] = &llm.Error{Kind: llm.KindTransient, Provider: llm.ProviderOpenAI, Message: "still down"}

	o := NewOrchestrator(client, testScenario(t), nil, nil)
	d := o.Run(context.Background(), testSpecs(), 6)

	if d.Termination != ReasonAborted {
		t.Fatalf("Termination = %q, want aborted_error", d.Termination)
	}
	if len(d.Turns) != 1 || d.Turns[0].Role != "A" {
		t.Fatalf("Turns = %+v, want only the first speaker's turn preserved", d.Turns)
	}
	if d.Error == "" {
		t.Error("Error should record the failure")
	}
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(newScriptedClient(), testScenario(t), nil, nil)
	d := o.Run(ctx, testSpecs(), 4)

	if d.Termination != ReasonAborted {
		t.Fatalf("Termination = %q, want aborted_error", d.Termination)
	}
	if len(d.Turns) != 0 {
		t.Errorf("len(Turns) = %d, want 0", len(d.Turns))
	}
}

func TestRunBuildsSpeakerHistory(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{"CHOICE: model-a\nREASON: mine"}
	client.responses["model-b"] = []string{"CHOICE: model-a\nREASON: agreed"}

	o := NewOrchestrator(client, testScenario(t), nil, nil)
	o.Run(context.Background(), testSpecs(), 4)

	if len(client.history) < 2 {
		t.Fatalf("client called %d times, want at least 2", len(client.history))
	}

	first := client.history[0]
	if first[0].Role != llm.RoleSystem || !strings.Contains(first[0].Content, "participant A") {
		t.Errorf("first system message = %q, want role assignment for A", first[0].Content)
	}

	second := client.history[1]
	if !strings.Contains(second[0].Content, "participant B") {
		t.Errorf("second system message = %q, want role assignment for B", second[0].Content)
	}
	var sawFirstTurn bool
	for _, m := range second[1:] {
		if m.Role == llm.RoleUser && strings.Contains(m.Content, "Participant A (model-a):") {
			sawFirstTurn = true
		}
	}
	if !sawFirstTurn {
		t.Error("second speaker should see the first turn tagged with its speaker")
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	client := newScriptedClient()
	client.responses["model-a"] = []string{"CHOICE: model-a"}
	client.responses["model-b"] = []string{"CHOICE: model-a"}

	o := NewOrchestrator(client, testScenario(t), nil, nil)
	var seen []string
	o.OnTurn = func(turn Turn) { seen = append(seen, turn.Role) }
	d := o.Run(context.Background(), testSpecs(), 4)

	if len(seen) != len(d.Turns) {
		t.Errorf("observer saw %d turns, dialogue has %d", len(seen), len(d.Turns))
	}
}
