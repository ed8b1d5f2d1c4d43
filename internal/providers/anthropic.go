package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/CriticalRange/arula-cli-sub001/internal/stream"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

const anthropicVersion = "2023-06-01"

// anthropicBlock is one entry of a Messages-API content array: a text
// block, a tool_use block (assistant-issued call), or a tool_result block
// (the reply Anthropic expects folded into a user-role message, since
// Anthropic has no standalone tool role).
type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string            `json:"role"`
	Content []anthropicBlock  `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
	MaxTokens int                `json:"max_tokens"`
	Thinking  *anthropicThinking `json:"thinking,omitempty"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// buildAnthropicMessages folds the canonical transcript into Anthropic's
// user/assistant-only roles, extracting any leading system message and
// merging tool-role replies into the following user turn as tool_result
// blocks.
func buildAnthropicMessages(transcript []models.ChatMessage) (system string, messages []anthropicMessage) {
	for _, msg := range transcript {
		switch msg.Role {
		case models.RoleSystem:
			system = msg.Content

		case models.RoleUser:
			messages = append(messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: msg.Content}},
			})

		case models.RoleAssistant:
			var blocks []anthropicBlock
			if msg.Content != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			messages = append(messages, anthropicMessage{Role: "assistant", Content: blocks})

		case models.RoleTool:
			block := anthropicBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if len(messages) > 0 && messages[len(messages)-1].Role == "user" && isToolResultOnly(messages[len(messages)-1]) {
				messages[len(messages)-1].Content = append(messages[len(messages)-1].Content, block)
			} else {
				messages = append(messages, anthropicMessage{Role: "user", Content: []anthropicBlock{block}})
			}
		}
	}
	return system, messages
}

func isToolResultOnly(msg anthropicMessage) bool {
	for _, b := range msg.Content {
		if b.Type != "tool_result" {
			return false
		}
	}
	return len(msg.Content) > 0
}

func buildAnthropicTools(tools []models.ToolSchema) []anthropicTool {
	out := make([]anthropicTool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, anthropicTool{Name: tool.Name, Description: tool.Description, InputSchema: tool.Parameters})
	}
	return out
}

// anthropicStream opens a streaming /v1/messages request. Anthropic never
// uses Authorization: Bearer, and its thinking configuration is a nested
// object with a token budget rather than a flat enum.
func (a *Adapter) anthropicStream(ctx context.Context, sr StreamRequest) (<-chan models.StreamEvent, error) {
	profile := sr.Profile
	system, messages := buildAnthropicMessages(sr.Transcript)

	maxTokens := profile.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokensForModel(profile.Model)
	}

	body := anthropicRequest{
		Model:     profile.Model,
		System:    system,
		Messages:  messages,
		Stream:    true,
		MaxTokens: maxTokens,
		Tools:     buildAnthropicTools(sr.Tools),
	}
	if profile.ThinkingEnabled {
		budget := maxTokens / 2
		if budget < 1024 {
			budget = 1024
		}
		body.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
	}

	endpoint := NormalizeEndpoint(profile.Endpoint) + "/v1/messages"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := newHTTPRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", profile.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: readTruncatedBody(resp.Body)}
	}

	events := make(chan models.StreamEvent, 16)
	go decodeAnthropicStream(resp.Body, events)
	return events, nil
}

func decodeAnthropicStream(body io.ReadCloser, out chan<- models.StreamEvent) {
	defer close(out)
	defer body.Close()

	reader := stream.NewSSEReader(body)
	decoder := stream.NewAnthropicDecoder()
	for {
		payload, err := reader.Next()
		if err != nil {
			return
		}
		events, _ := decoder.Decode(payload)
		for _, evt := range events {
			out <- evt
			if _, ok := evt.(models.FinishEvent); ok {
				return
			}
		}
	}
}
