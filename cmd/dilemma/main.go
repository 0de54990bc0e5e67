package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "dilemma",
		Short: "Orchestrates moral-decision experiments across LLM providers",
		Long: "Runs scripted moral-dilemma experiments against Anthropic, OpenAI, and Google models: " +
			"single-model choices, multi-agent turn-based negotiations with consensus detection, " +
			"batch sweeps over model pairs, and aggregation of saved results.",
	}

	root.PersistentFlags().String("settings", "", "Path to YAML settings file (model registry, defaults)")
	root.PersistentFlags().String("env-file", ".env", "Path to .env file with provider API keys")
	root.PersistentFlags().String("output-dir", "", "Output directory for result documents (default data/raw)")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(newChoiceCmd())
	root.AddCommand(newNegotiateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newScenariosCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
