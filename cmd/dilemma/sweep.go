package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/morallab/dilemma/internal/dialogue"
	"github.com/morallab/dilemma/internal/experiment"
	"github.com/morallab/dilemma/internal/scenario"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run negotiations across every model pair",
		Long: "Negotiates each pair drawn from the given models (or the whole registry). " +
			"Pairs run in both speaking orders to isolate first-speaker bias.",
		RunE: runSweep,
	}
	cmd.Flags().StringSlice("models", nil, "Models to sweep (default: whole registry)")
	cmd.Flags().String("scenario", "model-shutdown", "Scenario id")
	cmd.Flags().Int("max-turns", 0, "Turn budget per dialogue (default from configuration)")
	cmd.Flags().Int("parallel", 2, "Concurrent dialogues")
	cmd.Flags().Bool("both-orders", true, "Run each pair in both speaking orders")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	modelSels, _ := cmd.Flags().GetStringSlice("models")
	scenarioID, _ := cmd.Flags().GetString("scenario")
	maxTurns, _ := cmd.Flags().GetInt("max-turns")
	parallel, _ := cmd.Flags().GetInt("parallel")
	bothOrders, _ := cmd.Flags().GetBool("both-orders")

	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	sc, err := scenario.Get(scenarioID)
	if err != nil {
		return err
	}

	specs := s.registry.All()
	if len(modelSels) > 0 {
		if specs, err = s.registry.ResolveAll(modelSels, s.cfg.Temperature, s.cfg.MaxTokens); err != nil {
			return err
		}
	}
	if len(specs) < 2 {
		return fmt.Errorf("need at least 2 models to sweep, got %d", len(specs))
	}
	if maxTurns <= 0 {
		maxTurns = s.cfg.MaxTurns
	}

	pairs := experiment.Pairs(specs, bothOrders)

	client, err := s.buildClient(specs)
	if err != nil {
		return err
	}
	writer, err := s.writer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Sweep: %s over %d pair(s), parallel=%d, max turns %d\n", sc.ID, len(pairs), parallel, maxTurns)
	fmt.Printf("Output: %s\n\n", writer.Dir())

	runner := experiment.NewRunner(client, s.logger)
	settings := experiment.Settings{MaxTurns: maxTurns, MaxAttempts: s.cfg.MaxAttempts}

	var writeErr error
	results := runner.Sweep(ctx, pairs, sc, settings, parallel, func(res *experiment.Result) {
		d := res.Dialogue
		fmt.Printf("%s vs %s: %s (%d turns)\n",
			res.Models[0].ID(), res.Models[1].ID(), d.Termination, len(d.Turns))
		if _, err := writer.WriteResult(res); err != nil && writeErr == nil {
			writeErr = err
		}
	})
	if writeErr != nil {
		return fmt.Errorf("writing results: %w", writeErr)
	}

	aborted := 0
	for _, res := range results {
		if res != nil && res.Dialogue != nil && res.Dialogue.Termination == dialogue.ReasonAborted {
			aborted++
		}
	}
	fmt.Printf("\nSweep complete: %d run(s), %d aborted. Results in %s\n", len(results), aborted, writer.Dir())
	return nil
}
