// Package orchestrator implements the Agent Orchestrator component: the
// multi-turn, tool-using loop that drives one stream_turn call from a
// normalized transcript down to a terminal Finish or Error, dispatching
// through the Tool Registry in between. Grounded on the teacher's
// internal/agent/loop.go AgenticLoop/LoopConfig/LoopState shape and its
// Init -> Stream -> ExecuteTools -> Complete phase diagram (with a
// Continue loopback), generalized to the provider-agnostic StreamEvent
// sum type this spec defines.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/CriticalRange/arula-cli-sub001/internal/eventbus"
	"github.com/CriticalRange/arula-cli-sub001/internal/metrics"
	"github.com/CriticalRange/arula-cli-sub001/internal/providers"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools"
	"github.com/CriticalRange/arula-cli-sub001/internal/transcript"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// DefaultMaxToolIterations is the ceiling on tool-use round trips within
// one stream_turn call when the caller does not set one. It counts
// round trips after the first assistant completion, not completions
// themselves: MaxToolIterations=0 still runs one assistant turn, per
// spec.md section 8's boundary case, it just never loops back with tool
// results.
const DefaultMaxToolIterations = 10

// LoopConfig controls one stream_turn invocation. Field names and
// defaults match spec.md section 4.B exactly.
type LoopConfig struct {
	MaxToolIterations int
	AutoExecuteTools  bool
	ThinkingEnabled   bool
}

// sanitizeLoopConfig clamps a negative MaxToolIterations to zero. Applying
// DefaultMaxToolIterations itself is the config layer's job (internal/config
// resolves an absent option to 10 before a LoopConfig is ever built), so a
// bare zero reaching here is a deliberate "never loop back" choice, not an
// absent one, and must not be overwritten.
func sanitizeLoopConfig(cfg LoopConfig) LoopConfig {
	if cfg.MaxToolIterations < 0 {
		cfg.MaxToolIterations = 0
	}
	return cfg
}

// Loop drives stream_turn for one provider profile against one Tool
// Registry. A Loop is safe for concurrent use by multiple sessions; all
// per-turn state lives on the stack of the goroutine StreamTurn spawns.
type Loop struct {
	Adapter  *providers.Adapter
	Registry *tools.Registry
	Bus      *eventbus.Bus // optional: nil means no UI event translation
	Metrics  *metrics.Metrics
}

// NewLoop constructs a Loop. Bus and m may be nil for a headless caller
// (e.g. a test, or a CLI that only cares about the returned StreamEvent
// channel and does its own rendering).
func NewLoop(adapter *providers.Adapter, registry *tools.Registry, bus *eventbus.Bus, m *metrics.Metrics) *Loop {
	return &Loop{Adapter: adapter, Registry: registry, Bus: bus, Metrics: m}
}

// StreamTurn implements the public stream_turn contract: it normalizes
// history+prompt into a transcript, then runs completions through the
// Provider Adapter, executing any requested tool calls sequentially in
// between, for at most cfg.MaxToolIterations tool round trips (so at most
// cfg.MaxToolIterations+1 completions). It returns a channel of the
// unified StreamEvent sequence. Only the last completion's FinishEvent is
// forwarded (the iteration cap sends its own, Reason
// "tool_iteration_limit"), so at most one FinishEvent or ErrorEvent is
// sent, and it is the last event before the channel closes; a turn ended
// by ctx cancellation closes the channel without either. As a side effect, it
// translates the same sequence into UI events published on l.Bus (if
// set) under sessionID, per spec.md section 2's "(B) translates those
// into UI events on (G)".
func (l *Loop) StreamTurn(ctx context.Context, sessionID string, profile models.ProviderProfile, systemPrompt, prompt string, history []models.ChatMessage, cfg LoopConfig) <-chan models.StreamEvent {
	cfg = sanitizeLoopConfig(cfg)
	out := make(chan models.StreamEvent, 16)

	// phase and iteration track where in the loop diagram execution
	// currently sits, so a panic recovered below can be classified the
	// same way a normal throw site would classify it.
	phase := PhaseInit
	iteration := 0

	go func() {
		defer close(out)
		defer func() {
			if p := recover(); p != nil {
				loopErr := &LoopError{Phase: phase, Iteration: iteration, Message: fmt.Sprintf("panic: %v", p)}
				msg := loopErr.Error()
				l.emit(ctx, out, models.ErrorEvent{Message: msg})
				l.publish(ctx, models.NewStreamErrored(sessionID, msg))
			}
		}()

		txn := transcript.Repair(transcript.Normalize(history, systemPrompt, prompt))
		toolCatalog := l.Registry.AsLLMTools()

		// roundTrips counts completed tool-result loopbacks, not assistant
		// completions: the first completion always runs regardless of
		// cfg.MaxToolIterations (spec.md section 8's "max_tool_iterations=0
		// immediately short-circuits after the first assistant turn" —
		// after, not instead of).
		for roundTrips := 0; ; roundTrips++ {
			iteration = roundTrips
			phase = PhaseStream
			if ctx.Err() != nil {
				return
			}

			events, err := l.Adapter.OpenStreamWithRetry(ctx, providers.StreamRequest{
				Profile:    profile,
				Transcript: txn,
				Tools:      toolCatalog,
			}, func(attempt int) {
				if l.Metrics != nil {
					l.Metrics.RecordProviderRetry(string(profile.Family))
				}
			})
			if err != nil {
				loopErr := &LoopError{Phase: PhaseStream, Iteration: roundTrips, Cause: err}
				msg := loopErr.Error()
				l.emit(ctx, out, models.ErrorEvent{Message: msg})
				l.publish(ctx, models.NewStreamErrored(sessionID, msg))
				return
			}

			assistantText := ""
			var completed []models.ToolCall
			var finish *models.FinishEvent
			var sawError bool

			for ev := range events {
				if ctx.Err() != nil {
					return
				}
				switch e := ev.(type) {
				case models.StartEvent:
					l.emit(ctx, out, e)
				case models.TextDeltaEvent:
					assistantText += e.Text
					l.emit(ctx, out, e)
					l.publish(ctx, models.NewToken(sessionID, e.Text, false))
				case models.ReasoningDeltaEvent:
					l.emit(ctx, out, e)
					l.publish(ctx, models.NewThinking(sessionID, e.Text))
				case models.ToolCallStartEvent:
					l.emit(ctx, out, e)
				case models.ToolCallDeltaEvent:
					l.emit(ctx, out, e)
				case models.ToolCallCompleteEvent:
					completed = append(completed, e.Call)
					l.emit(ctx, out, e)
				case models.FinishEvent:
					// Held back: only the turn's final completion forwards it.
					fin := e
					finish = &fin
				case models.ErrorEvent:
					sawError = true
					l.emit(ctx, out, e)
					loopErr := &LoopError{Phase: PhaseStream, Iteration: roundTrips, Message: e.Message}
					l.publish(ctx, models.NewStreamErrored(sessionID, loopErr.Error()))
				}
			}

			if sawError {
				return
			}

			if len(completed) == 0 {
				if finish != nil {
					l.emit(ctx, out, *finish)
				}
				l.publish(ctx, models.NewToken(sessionID, "", true))
				l.publish(ctx, models.NewStreamFinished(sessionID))
				return
			}

			if !cfg.AutoExecuteTools {
				// The pending tool-call events have already been forwarded
				// above (ToolCallStartEvent/ToolCallDeltaEvent/
				// ToolCallCompleteEvent); the caller decides what happens
				// to them next.
				if finish != nil {
					l.emit(ctx, out, *finish)
				}
				l.publish(ctx, models.NewStreamFinished(sessionID))
				return
			}

			if roundTrips >= cfg.MaxToolIterations {
				break
			}

			assistantMsg := models.ChatMessage{
				Role:      models.RoleAssistant,
				ToolCalls: completed,
			}
			if assistantText != "" {
				assistantMsg.Content = assistantText
				assistantMsg.HasContent = true
			}
			txn = append(txn, assistantMsg)
			phase = PhaseExecuteTools

			for _, call := range completed {
				if ctx.Err() != nil {
					return
				}
				if call.ID == "" {
					call.ID = uuid.NewString()
				}

				toolID := call.ID
				disp := tools.ResolveToolDisplay(call.Name, parseArgsForDisplay(call.Arguments), "")
				l.publish(ctx, models.NewToolCallStart(sessionID, toolID, call.Name, tools.FormatToolSummary(disp)))

				result, execErr := l.invokeTool(ctx, call)
				if execErr != nil {
					toolErr := NewToolError(call.Name, execErr).WithToolCallID(call.ID)
					result = models.ToolResult{Content: toolErr.Error(), IsError: true}
				}

				l.publish(ctx, models.NewToolCallResult(sessionID, toolID, call.Name, !result.IsError, summarize(result)))

				reply := transcript.ReplyWithCorrelation(call, profile.Family, result.Content)
				txn = append(txn, reply)
			}
		}

		// Iteration cap reached: synthesize the warning text delta and
		// Finish the spec requires, then terminate the turn.
		warning := "(tool iteration limit reached)"
		l.emit(ctx, out, models.TextDeltaEvent{Text: warning})
		l.publish(ctx, models.NewToken(sessionID, warning, false))
		l.emit(ctx, out, models.FinishEvent{Reason: "tool_iteration_limit"})
		l.publish(ctx, models.NewToken(sessionID, "", true))
		l.publish(ctx, models.NewStreamFinished(sessionID))
	}()

	return out
}

// invokeTool parses a tool call's arguments as JSON and, on success,
// dispatches through the Tool Registry. A JSON parse failure is not a
// loop error: it is synthesized into a failing ToolResult so the turn
// can continue and the model sees why its call was rejected.
func (l *Loop) invokeTool(ctx context.Context, call models.ToolCall) (models.ToolResult, error) {
	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(args), &probe); err != nil {
		return models.ToolResult{
			Content: fmt.Sprintf("arguments for %s are not valid JSON: %v", call.Name, err),
			IsError: true,
		}, nil
	}

	result, err := l.Registry.Execute(ctx, call)
	if l.Metrics != nil {
		l.Metrics.RecordToolExecution(call.Name, result.IsError || err != nil, 0)
	}
	return result, err
}

func (l *Loop) emit(ctx context.Context, out chan<- models.StreamEvent, ev models.StreamEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

func (l *Loop) publish(ctx context.Context, ev models.UIEvent) {
	if l.Bus == nil {
		return
	}
	l.Bus.Publish(ctx, ev)
}

func parseArgsForDisplay(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}

func summarize(result models.ToolResult) string {
	const maxLen = 200
	s := result.Content
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
