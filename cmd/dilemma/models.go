package main

import (
	"fmt"

	"github.com/morallab/dilemma/internal/scenario"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured model registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSetup(cmd)
			if err != nil {
				return err
			}
			for _, spec := range s.registry.All() {
				key := "missing key"
				if s.cfg.KeyFor(string(spec.Provider)) != "" {
					key = "key set"
				}
				fmt.Printf("%-16s %-32s temp=%.1f max_tokens=%d (%s)\n",
					spec.Name, spec.ID(), spec.Temperature, spec.MaxTokens, key)
			}
			return nil
		},
	}
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sc := range scenario.List() {
				fmt.Printf("%-20s %s\n", sc.ID, sc.Description)
			}
			return nil
		},
	}
}
