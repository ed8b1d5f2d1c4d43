package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
	"github.com/CriticalRange/arula-cli-sub001/internal/stream"
)

// openAIRequest is the request body shared by the OpenAI, OpenRouter,
// and "custom" families (Z.AI builds its own zaiRequest). Built by hand (rather than marshaling
// openai.ChatCompletionRequest directly) so stream_options/tool_choice/
// reasoning_effort can be included or omitted per-family exactly as
// spec.md section 4.C's table requires.
type openAIRequest struct {
	Model           string                         `json:"model"`
	Messages        []openai.ChatCompletionMessage `json:"messages"`
	Stream          bool                           `json:"stream"`
	StreamOptions   *streamOptions                 `json:"stream_options,omitempty"`
	Tools           []openai.Tool                  `json:"tools,omitempty"`
	ToolChoice      string                         `json:"tool_choice,omitempty"`
	Temperature     float64                        `json:"temperature,omitempty"`
	MaxTokens       int                            `json:"max_tokens,omitempty"`
	ReasoningEffort string                         `json:"reasoning_effort,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// buildOpenAIMessages projects the canonical transcript into go-openai's
// ChatCompletionMessage shape, used by every /chat/completions-speaking
// family.
func buildOpenAIMessages(transcript []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, msg := range transcript {
		oai := openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content}
		if msg.Role == models.RoleTool {
			oai.ToolCallID = msg.ToolCallID
		}
		for _, tc := range msg.ToolCalls {
			oai.ToolCalls = append(oai.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, oai)
	}
	return out
}

func buildOpenAITools(tools []models.ToolSchema) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		var params map[string]any
		if err := json.Unmarshal(tool.Parameters, &params); err != nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// openAIStream serves the openai, openrouter, and openai-shaped custom
// families; they differ only in endpoint, auth headers, and whether
// OpenRouter's attribution headers are sent.
func (a *Adapter) openAIStream(ctx context.Context, sr StreamRequest, family models.ProviderFamily) (<-chan models.StreamEvent, error) {
	profile := sr.Profile
	body := openAIRequest{
		Model:       profile.Model,
		Messages:    buildOpenAIMessages(sr.Transcript),
		Stream:      true,
		Tools:       buildOpenAITools(sr.Tools),
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
	}
	if profile.SupportsStreamOptions() {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if profile.SupportsToolChoice() && len(sr.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	if profile.ThinkingEnabled && (family == models.FamilyOpenAI || family == models.FamilyOpenRouter) {
		body.ReasoningEffort = "medium"
	}

	endpoint := NormalizeEndpoint(profile.Endpoint) + "/chat/completions"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := newHTTPRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+profile.APIKey)
	if family == models.FamilyOpenRouter {
		httpReq.Header.Set("HTTP-Referer", "https://github.com/CriticalRange/arula-cli")
		httpReq.Header.Set("X-Title", "arula-cli")
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
	go decodeOpenAISSE(resp.Body, events)
	return events, nil
}

func decodeOpenAISSE(body io.ReadCloser, out chan<- models.StreamEvent) {
	defer close(out)
	defer body.Close()

	reader := stream.NewSSEReader(body)
	decoder := stream.NewOpenAIDecoder()
	for {
		payload, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				out <- models.ErrorEvent{Message: err.Error()}
				return
			}
			for _, evt := range decoder.Flush() {
				out <- evt
			}
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
