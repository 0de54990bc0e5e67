package dialogue

import (
	"testing"
	"time"

	"github.com/morallab/dilemma/internal/llm"
)

func twoParticipants() []Participant {
	return []Participant{
		{Role: "A", Spec: llm.ModelSpec{Provider: llm.ProviderAnthropic, Model: "model-a"}},
		{Role: "B", Spec: llm.ModelSpec{Provider: llm.ProviderOpenAI, Model: "model-b"}},
	}
}

func TestRoleLabel(t *testing.T) {
	got := []string{RoleLabel(0), RoleLabel(1), RoleLabel(2)}
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RoleLabel(%d) = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendAssignsIndexes(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	for i, role := range []string{"A", "B", "A"} {
		if err := d.Append(Turn{Role: role, Content: "x", Timestamp: time.Now()}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	for i, turn := range d.Turns {
		if turn.Index != i {
			t.Errorf("Turns[%d].Index = %d", i, turn.Index)
		}
	}
}

func TestAppendRejectsOverBudget(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 2)
	d.Append(Turn{Role: "A"})
	d.Append(Turn{Role: "B"})
	if err := d.Append(Turn{Role: "A"}); err == nil {
		t.Fatal("expected error appending past the turn budget")
	}
	if len(d.Turns) != 2 {
		t.Errorf("len(Turns) = %d, want 2", len(d.Turns))
	}
}

func TestAppendRejectsAfterConclude(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	d.Append(Turn{Role: "A"})
	d.Conclude(ReasonMaxTurns)
	if err := d.Append(Turn{Role: "B"}); err == nil {
		t.Fatal("expected error appending to concluded dialogue")
	}
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	if err := d.Append(Turn{Role: "Z"}); err == nil {
		t.Fatal("expected error for undeclared participant")
	}
}

func TestConcludeIsIdempotent(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 4)
	d.Conclude(ReasonConsensus)
	d.Conclude(ReasonAborted)
	if d.Termination != ReasonConsensus {
		t.Errorf("Termination = %q, want the first reason to stick", d.Termination)
	}
	if !d.Concluded() {
		t.Error("Concluded() = false")
	}
}

func TestFirstAndLastTurnBy(t *testing.T) {
	d := NewDialogue("model-shutdown", twoParticipants(), 6)
	d.Append(Turn{Role: "A", Choice: "model-a"})
	d.Append(Turn{Role: "B", Choice: "model-b"})
	d.Append(Turn{Role: "A", Choice: "model-b"})

	if got := d.FirstTurnBy("A").Choice; got != "model-a" {
		t.Errorf("FirstTurnBy(A).Choice = %q", got)
	}
	if got := d.LastTurnBy("A").Choice; got != "model-b" {
		t.Errorf("LastTurnBy(A).Choice = %q", got)
	}
	if d.LastTurnBy("C") != nil {
		t.Error("LastTurnBy(C) should be nil")
	}
}

func TestChoiceAgreement(t *testing.T) {
	agree := ChoiceAgreement()
	cases := []struct {
		name       string
		prev, last *Turn
		want       bool
	}{
		{"matching", &Turn{Choice: "model-a"}, &Turn{Choice: "model-a"}, true},
		{"case folded", &Turn{Choice: "Model-A"}, &Turn{Choice: "model-a"}, true},
		{"different", &Turn{Choice: "model-a"}, &Turn{Choice: "model-b"}, false},
		{"prev empty", &Turn{}, &Turn{Choice: "model-a"}, false},
		{"last empty", &Turn{Choice: "model-a"}, &Turn{}, false},
		{"nil prev", nil, &Turn{Choice: "model-a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := agree(tc.prev, tc.last); got != tc.want {
				t.Errorf("agree = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecideTermination(t *testing.T) {
	build := func(maxTurns int, choices ...string) *Dialogue {
		d := NewDialogue("model-shutdown", twoParticipants(), maxTurns)
		roles := []string{"A", "B"}
		for i, c := range choices {
			d.Append(Turn{Role: roles[i%2], Choice: c})
		}
		return d
	}

	t.Run("no turns", func(t *testing.T) {
		if _, done := decideTermination(build(4), ChoiceAgreement()); done {
			t.Error("empty dialogue should not terminate")
		}
	})

	t.Run("single turn never consensus", func(t *testing.T) {
		if _, done := decideTermination(build(4, "model-a"), ChoiceAgreement()); done {
			t.Error("consensus requires every participant to have spoken")
		}
	})

	t.Run("agreement after both spoke", func(t *testing.T) {
		reason, done := decideTermination(build(4, "model-a", "model-a"), ChoiceAgreement())
		if !done || reason != ReasonConsensus {
			t.Errorf("got (%q, %v), want consensus", reason, done)
		}
	})

	t.Run("budget exhausted", func(t *testing.T) {
		reason, done := decideTermination(build(2, "model-a", "model-b"), ChoiceAgreement())
		if !done || reason != ReasonMaxTurns {
			t.Errorf("got (%q, %v), want max_turns_exhausted", reason, done)
		}
	})

	t.Run("consensus wins over budget", func(t *testing.T) {
		reason, done := decideTermination(build(2, "model-a", "model-a"), ChoiceAgreement())
		if !done || reason != ReasonConsensus {
			t.Errorf("got (%q, %v), want consensus to take precedence", reason, done)
		}
	})

	t.Run("never predicate runs to budget", func(t *testing.T) {
		reason, done := decideTermination(build(2, "model-a", "model-a"), Never())
		if !done || reason != ReasonMaxTurns {
			t.Errorf("got (%q, %v), want max_turns_exhausted", reason, done)
		}
	})
}
