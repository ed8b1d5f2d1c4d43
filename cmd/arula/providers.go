package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

func buildProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the provider families arula knows how to talk to",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := []struct {
				family models.ProviderFamily
				desc   string
			}{
				{models.FamilyOpenAI, "OpenAI and OpenAI-compatible chat completions"},
				{models.FamilyOpenRouter, "OpenRouter, OpenAI wire-compatible"},
				{models.FamilyAnthropic, "Anthropic Messages API"},
				{models.FamilyOllama, "Ollama local inference"},
				{models.FamilyZai, "Z.AI (GLM models), OpenAI wire-compatible plus usage tracking"},
				{models.FamilyCustom, "Any custom OpenAI-compatible endpoint"},
			}
			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", row.family, row.desc)
			}
			return nil
		},
	}
}
