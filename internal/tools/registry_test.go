package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

type stubTool struct {
	name    string
	desc    string
	schema  json.RawMessage
	execute func(ctx context.Context, params json.RawMessage) (models.ToolResult, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.desc }
func (s *stubTool) Schema() json.RawMessage {
	if s.schema == nil {
		return json.RawMessage(`{}`)
	}
	return s.schema
}
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
	if s.execute != nil {
		return s.execute(ctx, params)
	}
	return models.ToolResult{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "echo", desc: "echoes input"}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Get("echo")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Name() != "echo" {
		t.Errorf("Get() returned tool named %q, want %q", got.Name(), "echo")
	}
}

func TestRegistryRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: ""}); err == nil {
		t.Fatal("Register() error = nil, want error for empty name")
	}
}

func TestRegistryRegisterRejectsInvalidSchema(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "broken", schema: json.RawMessage(`{not json`)}
	if err := r.Register(tool); err == nil {
		t.Fatal("Register() error = nil, want error for malformed schema")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "temp"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.Unregister("temp")
	if _, ok := r.Get("temp"); ok {
		t.Error("Get() ok = true after Unregister(), want false")
	}
}

func TestRegistryAsLLMTools(t *testing.T) {
	r := NewRegistry()
	schema := json.RawMessage(`{"type":"object"}`)
	if err := r.Register(&stubTool{name: "a", desc: "tool a", schema: schema}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&stubTool{name: "b", desc: "tool b", schema: schema}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	schemas := r.AsLLMTools()
	if len(schemas) != 2 {
		t.Fatalf("AsLLMTools() returned %d entries, want 2", len(schemas))
	}
	names := map[string]bool{}
	for _, s := range schemas {
		names[s.Name] = true
	}
	if !names["a"] || !names["b"] {
		t.Errorf("AsLLMTools() names = %v, want both a and b", names)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), models.ToolCall{Name: "missing"})
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Fatalf("Execute() error = %v, want unknown tool error", err)
	}
}

func TestRegistryExecuteValidatesArguments(t *testing.T) {
	r := NewRegistry()
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"]
	}`)
	if err := r.Register(&stubTool{name: "needs_text", schema: schema}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := r.Execute(context.Background(), models.ToolCall{Name: "needs_text", Arguments: `{}`}); err == nil {
		t.Fatal("Execute() error = nil, want schema validation failure")
	}

	result, err := r.Execute(context.Background(), models.ToolCall{Name: "needs_text", Arguments: `{"text":"hi"}`})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result.Content != "ok" {
		t.Errorf("Execute() content = %q, want %q", result.Content, "ok")
	}
}

func TestRegistryExecuteDefaultsEmptyArguments(t *testing.T) {
	r := NewRegistry()
	var seen string
	tool := &stubTool{
		name: "noargs",
		execute: func(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
			seen = string(params)
			return models.ToolResult{Content: "done"}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Execute(context.Background(), models.ToolCall{Name: "noargs"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if seen != "{}" {
		t.Errorf("Execute() passed params = %q, want %q", seen, "{}")
	}
}

func TestRegistryExecutePropagatesToolError(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{
		name: "failing",
		execute: func(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
			return models.ToolResult{Content: "bad input", IsError: true}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	result, err := r.Execute(context.Background(), models.ToolCall{Name: "failing"})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil for a tool-level failure", err)
	}
	if !result.IsError {
		t.Error("Execute() result.IsError = false, want true")
	}
}

func TestRegistryExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{
		name: "panicky",
		execute: func(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
			panic("boom")
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, err := r.Execute(context.Background(), models.ToolCall{Name: "panicky"})
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("Execute() error = %v, want panic recovery error", err)
	}
}

func TestRegistryExecuteTimesOut(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{
		name: "slow",
		execute: func(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
			select {
			case <-time.After(time.Second):
				return models.ToolResult{Content: "too slow"}, nil
			case <-ctx.Done():
				return models.ToolResult{}, ctx.Err()
			}
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Execute(ctx, models.ToolCall{Name: "slow"})
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want deadline exceeded", err)
	}
}
