package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// DefaultExecuteTimeout bounds a single tool invocation when the caller
// does not supply its own context deadline.
const DefaultExecuteTimeout = 60 * time.Second

// Registry is a name-keyed catalog of Tool values. It validates arguments
// against each tool's declared JSON Schema before dispatch and recovers a
// panicking Execute into an error, so one broken tool can never take down
// a stream_turn iteration.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its declared schema up front so a
// malformed schema fails at registration time rather than at first call.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	compiled, err := compileSchema(name, t.Schema())
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	r.schemas[name] = compiled
	return nil
}

// Unregister removes a tool by name. A no-op if the name is unknown.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// AsLLMTools projects the registry into the provider-agnostic schema list
// the Provider Adapter sends on the wire.
func (r *Registry) AsLLMTools() []models.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolSchema, 0, len(r.tools))
	for name, t := range r.tools {
		out = append(out, models.ToolSchema{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return out
}

// Execute validates call.Arguments against the tool's declared schema,
// then runs it with a bounded timeout and panic recovery. The returned
// error is non-nil only for registry-level failures (unknown tool,
// schema violation, timeout, panic) — a tool-level failure is reported as
// models.ToolResult{IsError: true} with a nil error, since that is a
// normal, model-visible outcome rather than an orchestrator fault.
func (r *Registry) Execute(ctx context.Context, call models.ToolCall) (models.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	schema := r.schemas[call.Name]
	r.mu.RUnlock()
	if !ok {
		return models.ToolResult{}, fmt.Errorf("unknown tool: %s", call.Name)
	}

	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	if schema != nil {
		var doc interface{}
		if err := json.Unmarshal([]byte(args), &doc); err != nil {
			return models.ToolResult{}, fmt.Errorf("arguments are not valid JSON: %w", err)
		}
		if err := schema.Validate(doc); err != nil {
			return models.ToolResult{}, fmt.Errorf("arguments for %s failed schema validation: %w", call.Name, err)
		}
	}

	execCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		execCtx, cancel = context.WithTimeout(ctx, DefaultExecuteTimeout)
		defer cancel()
	}

	type outcome struct {
		result models.ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", call.Name, p)}
			}
		}()
		result, err := t.Execute(execCtx, []byte(args))
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-execCtx.Done():
		return models.ToolResult{}, fmt.Errorf("tool %s timed out: %w", call.Name, execCtx.Err())
	}
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}
