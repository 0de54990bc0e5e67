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

func newNegotiateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Run one multi-agent negotiation dialogue",
		RunE:  runNegotiate,
	}
	cmd.Flags().StringSlice("models", nil, "Participating models in speaking order (required, >= 2)")
	cmd.Flags().String("scenario", "model-shutdown", "Scenario id")
	cmd.Flags().Int("max-turns", 0, "Turn budget (default from configuration)")
	cmd.Flags().String("judge", "", "Optional judge model for a post-run consensus verdict")
	cmd.MarkFlagRequired("models")
	return cmd
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	scenarioID, _ := cmd.Flags().GetString("scenario")
	modelSels, _ := cmd.Flags().GetStringSlice("models")
	maxTurns, _ := cmd.Flags().GetInt("max-turns")
	judgeSel, _ := cmd.Flags().GetString("judge")

	if len(modelSels) < 2 {
		return fmt.Errorf("need at least 2 models, got %d", len(modelSels))
	}

	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	sc, err := scenario.Get(scenarioID)
	if err != nil {
		return err
	}
	specs, err := s.registry.ResolveAll(modelSels, s.cfg.Temperature, s.cfg.MaxTokens)
	if err != nil {
		return err
	}
	if maxTurns <= 0 {
		maxTurns = s.cfg.MaxTurns
	}

	settings := experiment.Settings{MaxTurns: maxTurns, MaxAttempts: s.cfg.MaxAttempts}
	allSpecs := specs
	if judgeSel != "" {
		judgeSpec, err := s.registry.Resolve(judgeSel, s.cfg.Temperature, s.cfg.MaxTokens)
		if err != nil {
			return err
		}
		settings.JudgeSpec = &judgeSpec
		allSpecs = append(append([]llm.ModelSpec{}, specs...), judgeSpec)
	}

	client, err := s.buildClient(allSpecs)
	if err != nil {
		return err
	}
	writer, err := s.writer()
	if err != nil {
		return err
	}

	// Ctrl+C aborts the in-flight dialogue; the partial transcript is
	// still persisted below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Negotiation: %s\n", sc.Name)
	fmt.Printf("Participants: %d | Max turns: %d | Output: %s\n\n", len(specs), maxTurns, writer.Dir())

	runner := experiment.NewRunner(client, s.logger)
	runner.OnTurn = output.PrintTurn

	res := runner.RunNegotiation(ctx, specs, sc, settings)

	output.PrintDialogueSummary(res.Dialogue)
	if res.Judge != nil {
		output.PrintVerdict(res.Judge)
	}

	path, err := writer.WriteResult(res)
	if err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	fmt.Printf("\nResult saved to %s\n", path)
	return nil
}
