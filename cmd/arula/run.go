package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/CriticalRange/arula-cli-sub001/internal/config"
	"github.com/CriticalRange/arula-cli-sub001/internal/eventbus"
	"github.com/CriticalRange/arula-cli-sub001/internal/metrics"
	"github.com/CriticalRange/arula-cli-sub001/internal/orchestrator"
	"github.com/CriticalRange/arula-cli-sub001/internal/providers"
	"github.com/CriticalRange/arula-cli-sub001/internal/session"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools/builtin"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools/websearch"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var configPath, systemPrompt, workspace string

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Start one streaming session against the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, configPath, systemPrompt, workspace, args[0])
		},
	}

	cmd.Flags().StringVar(&configPath, "config", envOr("ARULA_CONFIG", "arula.yaml"), "path to the config file")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt for the session")
	cmd.Flags().StringVar(&workspace, "workspace", ".", "working directory file tools are scoped to")

	return cmd
}

func runSession(cmd *cobra.Command, configPath, systemPrompt, workspace, prompt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := tools.NewRegistry()
	for _, t := range builtin.All(builtin.Config{
		Workspace:    workspace,
		MaxReadBytes: 0,
		SearchConfig: websearch.Config{},
	}) {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}

	adapter := providers.NewAdapter()
	bus := eventbus.New()
	m := metrics.New()
	loop := orchestrator.NewLoop(adapter, registry, bus, m)
	manager := session.NewManager(loop, bus, m)

	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	sessionID := uuid.NewString()
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req := session.StartStreamRequest{
		SessionID: sessionID,
		Profile:   cfg.Profile(),
		System:    systemPrompt,
		Prompt:    prompt,
		Config:    cfg.LoopConfig(),
	}
	if err := manager.StartStream(ctx, req); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	return renderEvents(ctx, sub)
}

// renderEvents drains sub.Events, writing tokens/thinking/tool activity to
// stdout as they arrive, until the session's terminal event for this turn.
func renderEvents(ctx context.Context, sub *eventbus.Subscription) error {
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case models.StreamStarted:
			case models.Token:
				fmt.Fprint(os.Stdout, e.Text)
			case models.Thinking:
				fmt.Fprintf(os.Stderr, "[thinking] %s", e.Text)
			case models.ToolCallStart:
				fmt.Fprintf(os.Stderr, "\n[tool] %s %s\n", e.Name, strings.TrimSpace(e.Display))
			case models.ToolCallResult:
				status := "ok"
				if !e.Success {
					status = "error"
				}
				fmt.Fprintf(os.Stderr, "[tool %s] %s\n", status, e.Summary)
			case models.BashOutputLine:
				fmt.Fprintln(os.Stderr, e.Line)
			case models.StreamFinished:
				fmt.Fprintln(os.Stdout)
				return nil
			case models.StreamErrored:
				fmt.Fprintln(os.Stdout)
				return fmt.Errorf("stream error: %s", e.Message)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
