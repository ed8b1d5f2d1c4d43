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

// ollamaMessage uses an object, not a string, for tool-call arguments:
// Ollama rejects a stringified arguments payload outright.
type ollamaMessage struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	ToolName  string             `json:"tool_name,omitempty"`
	ToolCalls []ollamaToolCallOut `json:"tool_calls,omitempty"`
}

type ollamaToolCallOut struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaOptions struct {
	NumPredict int  `json:"num_predict,omitempty"`
	Think      bool `json:"think,omitempty"`
}

type ollamaToolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaToolDef `json:"tools,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

func buildOllamaMessages(transcript []models.ChatMessage) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(transcript))
	for _, msg := range transcript {
		om := ollamaMessage{Role: string(msg.Role), Content: msg.Content}
		if msg.Role == models.RoleTool {
			om.ToolName = msg.ToolName
		}
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			out2 := ollamaToolCallOut{}
			out2.Function.Name = tc.Name
			out2.Function.Arguments = args
			om.ToolCalls = append(om.ToolCalls, out2)
		}
		out = append(out, om)
	}
	return out
}

func buildOllamaTools(tools []models.ToolSchema) []ollamaToolDef {
	out := make([]ollamaToolDef, 0, len(tools))
	for _, tool := range tools {
		def := ollamaToolDef{Type: "function"}
		def.Function.Name = tool.Name
		def.Function.Description = tool.Description
		def.Function.Parameters = tool.Parameters
		out = append(out, def)
	}
	return out
}

// ollamaStream implements the Ollama family: /api/chat, num_predict
// instead of max_tokens, no stream_options/tool_choice, options.think
// for the thinking toggle.
func (a *Adapter) ollamaStream(ctx context.Context, sr StreamRequest) (<-chan models.StreamEvent, error) {
	profile := sr.Profile
	body := ollamaRequest{
		Model:    profile.Model,
		Messages: buildOllamaMessages(sr.Transcript),
		Stream:   true,
		Tools:    buildOllamaTools(sr.Tools),
	}
	if profile.MaxTokens > 0 || profile.ThinkingEnabled {
		body.Options = &ollamaOptions{NumPredict: profile.MaxTokens, Think: profile.ThinkingEnabled}
	}

	endpoint := NormalizeEndpoint(profile.Endpoint) + "/api/chat"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := newHTTPRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if profile.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+profile.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: readTruncatedBody(resp.Body)}
	}

	events := make(chan models.StreamEvent, 16)
	go decodeOllamaNDJSON(resp.Body, events)
	return events, nil
}

func decodeOllamaNDJSON(body io.ReadCloser, out chan<- models.StreamEvent) {
	defer close(out)
	defer body.Close()

	reader := stream.NewNDJSONReader(body)
	decoder := stream.NewOllamaDecoder()
	for {
		line, err := reader.Next()
		if err != nil {
			return
		}
		events, _ := decoder.Decode(line)
		for _, evt := range events {
			out <- evt
			if _, ok := evt.(models.FinishEvent); ok {
				return
			}
		}
	}
}
