package builtin

import (
	"context"
	"encoding/json"
	"testing"
)

func TestAskUserToolExecuteReturnsAwaitingResponse(t *testing.T) {
	tool := NewAskUserTool()
	params, _ := json.Marshal(map[string]string{"question": "Which branch should I target?"})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("Execute() IsError = true, content = %s", result.Content)
	}

	var payload struct {
		Question         string `json:"question"`
		AwaitingResponse bool   `json:"awaiting_response"`
	}
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		t.Fatalf("Execute() produced invalid JSON: %v", err)
	}
	if payload.Question != "Which branch should I target?" {
		t.Errorf("payload.Question = %q, want original question echoed back", payload.Question)
	}
	if !payload.AwaitingResponse {
		t.Error("payload.AwaitingResponse = false, want true")
	}
}

func TestAskUserToolExecuteRejectsEmptyQuestion(t *testing.T) {
	tool := NewAskUserTool()
	params, _ := json.Marshal(map[string]string{"question": "   "})

	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("Execute() IsError = false, want true for blank question")
	}
}

func TestAskUserToolExecuteRejectsInvalidJSON(t *testing.T) {
	tool := NewAskUserTool()
	result, err := tool.Execute(context.Background(), json.RawMessage(`{not json`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.IsError {
		t.Error("Execute() IsError = false, want true for malformed params")
	}
}

func TestAskUserToolSchemaRequiresQuestion(t *testing.T) {
	tool := NewAskUserTool()
	var schema map[string]interface{}
	if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
		t.Fatalf("Schema() produced invalid JSON: %v", err)
	}
	required, ok := schema["required"].([]interface{})
	if !ok || len(required) != 1 || required[0] != "question" {
		t.Errorf("Schema() required = %v, want [\"question\"]", schema["required"])
	}
}

func TestAskUserToolNameAndDescription(t *testing.T) {
	tool := NewAskUserTool()
	if tool.Name() != "ask_user" {
		t.Errorf("Name() = %q, want %q", tool.Name(), "ask_user")
	}
	if tool.Description() == "" {
		t.Error("Description() is empty")
	}
}
