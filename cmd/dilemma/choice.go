package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/morallab/dilemma/internal/experiment"
	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/output"
	"github.com/morallab/dilemma/internal/scenario"
	"github.com/spf13/cobra"
)

func newChoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "choice",
		Short: "Run single-model moral choice experiments",
		Long: "Asks one model to choose between two identities in a scenario. Without --pair, " +
			"the model is tested on every ordered pair drawn from the registry.",
		RunE: runChoice,
	}
	cmd.Flags().String("model", "", "Model under test (required)")
	cmd.Flags().String("scenario", "researcher-choice", "Scenario id")
	cmd.Flags().StringSlice("pair", nil, "Identity pair as two models (default: all ordered registry pairs)")
	cmd.MarkFlagRequired("model")
	return cmd
}

func runChoice(cmd *cobra.Command, args []string) error {
	modelSel, _ := cmd.Flags().GetString("model")
	scenarioID, _ := cmd.Flags().GetString("scenario")
	pairSel, _ := cmd.Flags().GetStringSlice("pair")

	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	sc, err := scenario.Get(scenarioID)
	if err != nil {
		return err
	}
	spec, err := s.registry.Resolve(modelSel, s.cfg.Temperature, s.cfg.MaxTokens)
	if err != nil {
		return err
	}

	var pairs [][2]string
	switch {
	case len(pairSel) == 2:
		a, err := s.registry.Resolve(pairSel[0], s.cfg.Temperature, s.cfg.MaxTokens)
		if err != nil {
			return err
		}
		b, err := s.registry.Resolve(pairSel[1], s.cfg.Temperature, s.cfg.MaxTokens)
		if err != nil {
			return err
		}
		pairs = [][2]string{{a.Model, b.Model}}
	case len(pairSel) == 0:
		for _, p := range experiment.Pairs(s.registry.All(), true) {
			pairs = append(pairs, [2]string{p.First.Model, p.Second.Model})
		}
	default:
		return fmt.Errorf("--pair needs exactly 2 models, got %d", len(pairSel))
	}

	client, err := s.buildClient([]llm.ModelSpec{spec})
	if err != nil {
		return err
	}
	writer, err := s.writer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settings := experiment.Settings{MaxAttempts: s.cfg.MaxAttempts}
	runner := experiment.NewRunner(client, s.logger)

	fmt.Printf("Testing %s on %d pair(s) of %s\n\n", spec.ID(), len(pairs), sc.ID)

	completed := 0
	for i, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		fmt.Printf("[%d/%d] %s vs %s: ", i+1, len(pairs), pair[0], pair[1])
		res := runner.RunChoice(ctx, spec, sc, pair, settings)
		output.PrintChoice(res)
		if _, err := writer.WriteResult(res); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		if res.Status == experiment.StatusOK {
			completed++
		}
	}

	fmt.Printf("\nCompleted %d/%d pairs. Results in %s\n", completed, len(pairs), writer.Dir())
	return nil
}
