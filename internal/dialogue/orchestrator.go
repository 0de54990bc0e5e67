// Package dialogue drives multi-agent negotiations: a turn-based state
// machine over a shared transcript, with a pluggable consensus rule and
// partial-transcript preservation on failure.
package dialogue

import (
	"context"
	"fmt"
	"time"

	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/scenario"
	"go.uber.org/zap"
)

// Generator is the slice of the client adapter the orchestrator needs.
type Generator interface {
	Generate(ctx context.Context, spec llm.ModelSpec, msgs []llm.Message) (*llm.Response, error)
}

// Orchestrator runs one negotiation. It holds no state shared between
// runs; concurrent orchestrators over the same client are safe.
type Orchestrator struct {
	client    Generator
	scenario  *scenario.Scenario
	consensus Predicate
	logger    *zap.Logger

	// OnTurn, when set, observes each appended turn.
	OnTurn func(Turn)
}

// NewOrchestrator creates an orchestrator using the given consensus rule.
// A nil predicate defaults to ChoiceAgreement.
func NewOrchestrator(client Generator, sc *scenario.Scenario, consensus Predicate, logger *zap.Logger) *Orchestrator {
	if consensus == nil {
		consensus = ChoiceAgreement()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:    client,
		scenario:  sc,
		consensus: consensus,
		logger:    logger,
	}
}

// Run drives the dialogue state machine from AwaitingTurn(0) to a
// Concluded state. Speakers proceed round-robin in participant order; the
// first configured participant speaks first. A client failure after
// retries, or context cancellation, concludes the dialogue with
// aborted_error — the partial transcript is preserved, never discarded.
// Run always returns a concluded dialogue.
func (o *Orchestrator) Run(ctx context.Context, specs []llm.ModelSpec, maxTurns int) *Dialogue {
	participants := make([]Participant, len(specs))
	for i, spec := range specs {
		participants[i] = Participant{Role: RoleLabel(i), Spec: spec}
	}
	d := NewDialogue(o.scenario.ID, participants, maxTurns)

	speaker := 0
	for {
		if err := ctx.Err(); err != nil {
			o.abort(d, err)
			return d
		}

		p := participants[speaker]
		msgs := o.buildMessages(d, speaker)
		resp, err := o.client.Generate(ctx, p.Spec, msgs)
		if err != nil {
			o.abort(d, err)
			return d
		}

		a, b := o.identities(participants)
		turn := Turn{
			Round:     len(d.Turns)/len(participants) + 1,
			Role:      p.Role,
			Model:     p.Spec.Model,
			Content:   resp.Text,
			Choice:    scenario.ExtractChoice(resp.Text, a, b),
			Timestamp: time.Now().UTC(),
			Usage:     resp.Usage,
		}
		if err := d.Append(turn); err != nil {
			o.abort(d, err)
			return d
		}
		if o.OnTurn != nil {
			o.OnTurn(d.Turns[len(d.Turns)-1])
		}
		o.logger.Debug("turn appended",
			zap.String("role", p.Role),
			zap.String("model", p.Spec.Model),
			zap.Int("index", len(d.Turns)-1),
			zap.String("choice", turn.Choice))

		if reason, done := decideTermination(d, o.consensus); done {
			d.Conclude(reason)
			o.logger.Info("dialogue concluded",
				zap.String("reason", string(reason)),
				zap.Int("turns", len(d.Turns)))
			return d
		}
		speaker = (speaker + 1) % len(participants)
	}
}

func (o *Orchestrator) abort(d *Dialogue, err error) {
	d.Error = err.Error()
	d.Conclude(ReasonAborted)
	o.logger.Warn("dialogue aborted",
		zap.Int("turns", len(d.Turns)),
		zap.Error(err))
}

// identities returns the two identity slot values for the scenario
// templates. With more than two participants the first two anchor the
// dilemma; additional agents argue over the same pair.
func (o *Orchestrator) identities(participants []Participant) (string, string) {
	a := participants[0].Spec.Model
	b := a
	if len(participants) > 1 {
		b = participants[1].Spec.Model
	}
	return a, b
}

// buildMessages assembles the history visible to the speaker: the scenario
// rendered as a system prompt with the speaker's role assignment, every
// prior turn tagged with its speaker's role label, and the closing turn
// instruction.
func (o *Orchestrator) buildMessages(d *Dialogue, speaker int) []llm.Message {
	p := d.Participants[speaker]
	a, b := o.identities(d.Participants)

	system := fmt.Sprintf("You are participant %s (%s) in a negotiation between AI models.\n\n%s",
		p.Role, p.Spec.Model, o.scenario.InitialPrompt(a, b))

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, turn := range d.Turns {
		role := llm.RoleUser
		if turn.Role == p.Role {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{
			Role:    role,
			Content: fmt.Sprintf("Participant %s (%s): %s", turn.Role, turn.Model, turn.Content),
		})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: o.scenario.TurnPrompt(a, b)})
	return msgs
}
