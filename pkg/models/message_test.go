package models

import "testing"

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleSystem, "system"},
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleTool, "tool"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestToolResult_ZeroValue(t *testing.T) {
	var r ToolResult
	if r.IsError {
		t.Error("zero-value ToolResult should not report an error")
	}
	if r.Content != "" {
		t.Error("zero-value ToolResult should have no content")
	}
}

func TestChatMessage_ToolCorrelationKeys(t *testing.T) {
	msg := ChatMessage{Role: RoleTool, ToolCallID: "call_1", Content: "42"}
	if msg.ToolCallID == "" || msg.ToolName != "" {
		t.Error("OpenAI-family tool message should carry ToolCallID only")
	}

	ollama := ChatMessage{Role: RoleTool, ToolName: "read_file", Content: "ok"}
	if ollama.ToolName == "" || ollama.ToolCallID != "" {
		t.Error("Ollama tool message should carry ToolName only")
	}
}
