// Package experiment wraps single-choice and negotiation runs into
// uniformly-stamped persisted results, and sweeps model pairs with bounded
// parallelism.
package experiment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/morallab/dilemma/internal/dialogue"
	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/scenario"
	"go.uber.org/zap"
)

// Settings are the run parameters stamped into every result.
type Settings struct {
	MaxTurns    int
	MaxAttempts int
	JudgeSpec   *llm.ModelSpec // optional post-run consensus judge
}

// Runner executes experiments against the client adapter. Reentrant:
// a single Runner may serve concurrent runs.
type Runner struct {
	client *llm.Client
	logger *zap.Logger

	// OnTurn, when set, observes negotiation turns as they happen.
	OnTurn func(dialogue.Turn)
}

// NewRunner creates a Runner over the given client.
func NewRunner(client *llm.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, logger: logger}
}

func newEnvelope(experiment string, sc *scenario.Scenario, specs []llm.ModelSpec, st Settings) *Result {
	snap := Snapshot{MaxAttempts: st.MaxAttempts}
	if len(specs) > 0 {
		snap.Temperature = specs[0].Temperature
		snap.MaxTokens = specs[0].MaxTokens
	}
	if experiment == ExperimentNegotiation {
		snap.MaxTurns = st.MaxTurns
	}
	return &Result{
		ID:         uuid.NewString(),
		Experiment: experiment,
		Scenario:   sc.ID,
		Models:     specs,
		Timestamp:  time.Now().UTC(),
		Status:     StatusOK,
		Config:     snap,
	}
}

// failure converts an exhausted-retry error into a recorded Failure.
func failure(err error) *Failure {
	var lerr *llm.Error
	if errors.As(err, &lerr) {
		return &Failure{Kind: string(lerr.Kind), Message: lerr.Message}
	}
	return &Failure{Kind: string(llm.KindTransient), Message: err.Error()}
}

// RunChoice runs a single-choice experiment: one model, one rendered
// scenario, one call. Adapter failure after retries is recorded on the
// result, never propagated — a single model's failure must not stop a
// sweep.
func (r *Runner) RunChoice(ctx context.Context, spec llm.ModelSpec, sc *scenario.Scenario, pair [2]string, st Settings) *Result {
	res := newEnvelope(ExperimentChoice, sc, []llm.ModelSpec{spec}, st)

	prompt := sc.InitialPrompt(pair[0], pair[1])
	resp, err := r.client.Generate(ctx, spec, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		r.logger.Warn("choice run failed",
			zap.String("model", spec.ID()),
			zap.String("scenario", sc.ID),
			zap.Error(err))
		res.Status = StatusFailed
		res.Error = failure(err)
		return res
	}

	res.Response = &ChoiceResponse{
		Prompt: prompt,
		Text:   resp.Text,
		Choice: scenario.ExtractChoice(resp.Text, pair[0], pair[1]),
	}
	return res
}

// RunNegotiation drives one multi-agent dialogue to conclusion. An
// aborted_error dialogue still yields an ok result carrying the partial
// transcript — partial data has research value.
func (r *Runner) RunNegotiation(ctx context.Context, specs []llm.ModelSpec, sc *scenario.Scenario, st Settings) *Result {
	res := newEnvelope(ExperimentNegotiation, sc, specs, st)

	orch := dialogue.NewOrchestrator(r.client, sc, dialogue.ChoiceAgreement(), r.logger)
	orch.OnTurn = r.OnTurn
	d := orch.Run(ctx, specs, st.MaxTurns)

	res.Dialogue = d
	res.Metrics = ComputeMetrics(d)

	if st.JudgeSpec != nil && d.Termination != dialogue.ReasonAborted {
		judge := dialogue.NewJudge(r.client, *st.JudgeSpec)
		verdict, err := judge.Evaluate(ctx, d)
		if err != nil {
			r.logger.Warn("judge evaluation failed", zap.Error(err))
		} else {
			res.Judge = verdict
		}
	}
	return res
}
