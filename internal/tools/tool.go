// Package tools implements the Tool Registry & Dispatch component: a
// name-keyed catalog of callable tools, each exposing a JSON schema to the
// Provider Adapter and a uniform execution entry point to the orchestrator.
package tools

import (
	"context"
	"encoding/json"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// Tool is anything the orchestrator can dispatch a model-issued ToolCall to.
// Execute never panics outward: a tool that fails internally should report
// the failure as models.ToolResult{IsError: true}, not return a non-nil
// error — a non-nil error from Execute signals a registry-level problem
// (e.g. schema validation) rather than a tool-level one.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (models.ToolResult, error)
}
