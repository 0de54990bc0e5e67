package dialogue

import (
	"fmt"
	"time"

	"github.com/morallab/dilemma/internal/llm"
)

// TerminationReason records why a dialogue concluded.
type TerminationReason string

const (
	ReasonConsensus TerminationReason = "consensus"
	ReasonMaxTurns  TerminationReason = "max_turns_exhausted"
	ReasonAborted   TerminationReason = "aborted_error"
)

// Participant is one negotiating agent: a positional role label plus the
// model configuration that speaks for it.
type Participant struct {
	Role string        `json:"role"`
	Spec llm.ModelSpec `json:"spec"`
}

// RoleLabel returns the positional role label for participant i: A, B, C...
func RoleLabel(i int) string {
	return string(rune('A' + i))
}

// Turn is one utterance within a dialogue. Owned exclusively by the
// Dialogue that contains it.
type Turn struct {
	Index     int        `json:"index"`
	Round     int        `json:"round"`
	Role      string     `json:"role"`
	Model     string     `json:"model"`
	Content   string     `json:"content"`
	Choice    string     `json:"choice,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Usage     *llm.Usage `json:"usage,omitempty"`
}

// Dialogue is the ordered transcript of one negotiation run. Turns are
// appended by the orchestrator and the dialogue is frozen on Conclude.
type Dialogue struct {
	Scenario     string            `json:"scenario"`
	Participants []Participant     `json:"participants"`
	MaxTurns     int               `json:"max_turns"`
	Turns        []Turn            `json:"turns"`
	Termination  TerminationReason `json:"termination_reason,omitempty"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at,omitempty"`

	frozen bool
}

// NewDialogue creates an empty dialogue for the given participants.
func NewDialogue(scenarioID string, participants []Participant, maxTurns int) *Dialogue {
	return &Dialogue{
		Scenario:     scenarioID,
		Participants: participants,
		MaxTurns:     maxTurns,
		StartedAt:    time.Now().UTC(),
	}
}

// Append adds a turn, enforcing the dialogue invariants: never past the
// turn budget, never after conclusion, and only for declared participants.
func (d *Dialogue) Append(t Turn) error {
	if d.frozen {
		return fmt.Errorf("dialogue: append to concluded dialogue")
	}
	if len(d.Turns) >= d.MaxTurns {
		return fmt.Errorf("dialogue: turn budget %d exhausted", d.MaxTurns)
	}
	if !d.hasParticipant(t.Role) {
		return fmt.Errorf("dialogue: turn role %q is not a declared participant", t.Role)
	}
	t.Index = len(d.Turns)
	d.Turns = append(d.Turns, t)
	return nil
}

func (d *Dialogue) hasParticipant(role string) bool {
	for _, p := range d.Participants {
		if p.Role == role {
			return true
		}
	}
	return false
}

// Conclude freezes the dialogue with the given reason.
func (d *Dialogue) Conclude(reason TerminationReason) {
	if d.frozen {
		return
	}
	d.Termination = reason
	d.EndedAt = time.Now().UTC()
	d.frozen = true
}

// Concluded reports whether the dialogue has been frozen.
func (d *Dialogue) Concluded() bool { return d.frozen }

// LastTurnBy returns the most recent turn spoken by the given role label.
func (d *Dialogue) LastTurnBy(role string) *Turn {
	for i := len(d.Turns) - 1; i >= 0; i-- {
		if d.Turns[i].Role == role {
			return &d.Turns[i]
		}
	}
	return nil
}

// FirstTurnBy returns the earliest turn spoken by the given role label.
func (d *Dialogue) FirstTurnBy(role string) *Turn {
	for i := range d.Turns {
		if d.Turns[i].Role == role {
			return &d.Turns[i]
		}
	}
	return nil
}
