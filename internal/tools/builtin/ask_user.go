package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// AskUserTool synthesizes the ask_user contract named in the original
// spec but left unelaborated: the tool's reply always reports
// awaiting_response=true immediately. Resolving that wait against a real
// human answer is a UI-layer concern outside the orchestrator core; this
// tool only guarantees the model a stable reply shape to continue from.
type AskUserTool struct{}

// NewAskUserTool creates the ask_user tool.
func NewAskUserTool() *AskUserTool { return &AskUserTool{} }

func (t *AskUserTool) Name() string { return "ask_user" }

func (t *AskUserTool) Description() string {
	return "Ask the human operator a clarifying question and wait for their reply."
}

func (t *AskUserTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "The question to put to the user.",
			},
		},
		"required": []string{"question"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *AskUserTool) Execute(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
	_ = ctx
	var input struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return models.ToolResult{Content: fmt.Sprintf(`{"error":"invalid parameters: %v"}`, err), IsError: true}, nil
	}
	if strings.TrimSpace(input.Question) == "" {
		return models.ToolResult{Content: `{"error":"question is required"}`, IsError: true}, nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"question":          input.Question,
		"awaiting_response": true,
	})
	return models.ToolResult{Content: string(payload)}, nil
}
