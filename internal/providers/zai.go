package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/CriticalRange/arula-cli-sub001/internal/stream"
	"github.com/CriticalRange/arula-cli-sub001/internal/transcript"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// zaiMessage mirrors openai.ChatCompletionMessage but without omitempty
// on Content: Z.AI rejects a null content field on assistant messages
// that only carry tool calls, so an empty string must always be present.
type zaiMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []openai.ToolCall `json:"tool_calls,omitempty"`
}

type zaiRequest struct {
	Model     string       `json:"model"`
	Messages  []zaiMessage `json:"messages"`
	Stream    bool         `json:"stream"`
	Tools     []openai.Tool `json:"tools,omitempty"`
	Thinking  *zaiThinking `json:"thinking,omitempty"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type zaiThinking struct {
	Type string `json:"type"`
}

type zaiResponse struct {
	Choices []struct {
		Message struct {
			Content   string            `json:"content"`
			ToolCalls []openai.ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func buildZaiMessages(msgs []models.ChatMessage) []zaiMessage {
	out := make([]zaiMessage, 0, len(msgs))
	for _, msg := range msgs {
		zm := zaiMessage{Role: string(msg.Role), Content: msg.Content}
		if msg.Role == models.RoleTool {
			zm.ToolCallID = msg.ToolCallID
		}
		for _, tc := range msg.ToolCalls {
			zm.ToolCalls = append(zm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, zm)
	}
	return out
}

// zaiStream implements the Z.AI family: stream_options and tool_choice
// are always excluded (stream_options trips error 1210), tools with
// object/array-typed parameters are dropped rather than sent, and any
// remaining tools force a one-shot (non-streaming) fallback rather than
// a streaming request, since Z.AI drops tool-calling support in
// streaming mode entirely.
func (a *Adapter) zaiStream(ctx context.Context, sr StreamRequest) (<-chan models.StreamEvent, error) {
	profile := sr.Profile
	filteredMessages := transcript.FilterForZai(sr.Transcript)
	filteredTools := FilterZaiTools(sr.Tools)

	if len(filteredTools) > 0 {
		return a.zaiOneShot(ctx, profile, filteredMessages, filteredTools)
	}
	return a.zaiStreamNoTools(ctx, profile, filteredMessages)
}

func (a *Adapter) zaiRequestBody(profile models.ProviderProfile, messages []models.ChatMessage, tools []models.ToolSchema, streaming bool) zaiRequest {
	body := zaiRequest{
		Model:     profile.Model,
		Messages:  buildZaiMessages(messages),
		Stream:    streaming,
		MaxTokens: profile.MaxTokens,
	}
	if len(tools) > 0 {
		body.Tools = buildOpenAITools(tools)
	}
	if profile.ThinkingEnabled {
		body.Thinking = &zaiThinking{Type: "enabled"}
	}
	return body
}

func (a *Adapter) zaiHTTPRequest(ctx context.Context, profile models.ProviderProfile, body zaiRequest) (*http.Response, error) {
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
	httpReq.Header.Set("Accept-Language", "en-US,en")

	resp, err := a.http1.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: readTruncatedBody(resp.Body)}
	}
	return resp, nil
}

func (a *Adapter) zaiStreamNoTools(ctx context.Context, profile models.ProviderProfile, messages []models.ChatMessage) (<-chan models.StreamEvent, error) {
	resp, err := a.zaiHTTPRequest(ctx, profile, a.zaiRequestBody(profile, messages, nil, true))
	if err != nil {
		return nil, err
	}
	events := make(chan models.StreamEvent, 16)
	go decodeOpenAISSE(resp.Body, events)
	return events, nil
}

func (a *Adapter) zaiOneShot(ctx context.Context, profile models.ProviderProfile, messages []models.ChatMessage, tools []models.ToolSchema) (<-chan models.StreamEvent, error) {
	resp, err := a.zaiHTTPRequest(ctx, profile, a.zaiRequestBody(profile, messages, tools, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed zaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode z.ai response: %w", err)
	}

	events := make(chan models.StreamEvent, 16)
	go func() {
		defer close(events)
		events <- models.StartEvent{Model: profile.Model}
		if len(parsed.Choices) == 0 {
			events <- models.FinishEvent{Reason: "stop"}
			return
		}
		choice := parsed.Choices[0]
		if choice.Message.Content != "" {
			events <- models.TextDeltaEvent{Text: choice.Message.Content}
		}
		for i, tc := range choice.Message.ToolCalls {
			events <- models.ToolCallStartEvent{Index: i, ID: tc.ID, Name: tc.Function.Name}
			events <- models.ToolCallDeltaEvent{Index: i, ArgumentsFragment: tc.Function.Arguments}
			events <- models.ToolCallCompleteEvent{Call: models.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}}
		}
		events <- models.FinishEvent{Reason: choice.FinishReason, Usage: &models.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}}
	}()
	return events, nil
}
