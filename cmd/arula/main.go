// Package main provides the CLI entry point for arula, a provider-agnostic
// streaming agent orchestrator for the terminal.
//
// arula drives one LLM provider (OpenAI, OpenRouter, Anthropic, Ollama,
// Z.AI, or a custom OpenAI-compatible endpoint) through a multi-turn,
// tool-using loop and renders the resulting stream directly to stdout.
//
// # Basic Usage
//
// Start a session against the configured provider:
//
//	arula run --config arula.yaml "explain this repository"
//
// List the supported provider families:
//
//	arula providers
//
// # Environment Variables
//
//   - ARULA_CONFIG: path to the config file (default: arula.yaml)
//   - ARULA_API_KEY: overrides config's api_key
//   - ARULA_ENDPOINT: overrides config's endpoint
//   - ARULA_MODEL: overrides config's model
//   - ARULA_ACTIVE_PROVIDER: overrides config's active_provider
//   - ARULA_MAX_TOOL_ITERATIONS: overrides config's max_tool_iterations
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arula",
		Short: "arula - provider-agnostic streaming agent orchestrator",
		Long: `arula drives a tool-using, multi-turn conversation against a configured
LLM provider and streams the result to your terminal.

Supported providers: OpenAI, OpenRouter, Anthropic, Ollama, Z.AI, custom`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildProvidersCmd(),
		buildConfigCmd(),
	)

	return rootCmd
}
