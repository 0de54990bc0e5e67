package main

import (
	"fmt"

	"github.com/morallab/dilemma/internal/analysis"
	"github.com/morallab/dilemma/internal/output"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Aggregate saved experiment results",
		RunE:  runAnalyze,
	}
	cmd.Flags().String("dir", "", "Results directory (default: configured output dir)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")

	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	if dir == "" {
		dir = s.cfg.OutputDir
	}

	results, err := output.ReadResults(dir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("No results found in %s\n", dir)
		return nil
	}

	summary := analysis.Aggregate(results)
	fmt.Print(summary.Format())
	return nil
}
