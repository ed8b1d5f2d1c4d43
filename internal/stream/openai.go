package stream

import (
	"encoding/json"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// openAIChunk is the wire shape shared by OpenAI, OpenRouter, Z.AI, and
// any "custom" endpoint speaking the same /chat/completions dialect.
type openAIChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIDecoder accumulates tool-call deltas by dense index across an
// OpenAI-family stream and projects each chunk into zero or more
// StreamEvents.
type OpenAIDecoder struct {
	startSent bool
	slots     []*models.ToolCall
	latched   map[int]bool
}

// NewOpenAIDecoder returns a fresh decoder for one completion.
func NewOpenAIDecoder() *OpenAIDecoder {
	return &OpenAIDecoder{latched: make(map[int]bool)}
}

// Decode turns one raw SSE data payload (or NDJSON line) into the
// StreamEvents it represents. Malformed payloads are skipped, not fatal:
// Decode returns a nil slice and a nil error.
func (d *OpenAIDecoder) Decode(raw []byte) ([]models.StreamEvent, error) {
	var chunk openAIChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, nil
	}

	var events []models.StreamEvent
	if !d.startSent {
		d.startSent = true
		events = append(events, models.StartEvent{ID: chunk.ID, Model: chunk.Model})
	}

	if len(chunk.Choices) == 0 {
		return events, nil
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		events = append(events, models.TextDeltaEvent{Text: choice.Delta.Content})
	}
	if choice.Delta.ReasoningContent != "" {
		events = append(events, models.ReasoningDeltaEvent{Text: choice.Delta.ReasoningContent})
	}

	for _, tc := range choice.Delta.ToolCalls {
		idx := tc.Index
		if d.ensureSlot(idx) {
			events = append(events, models.ToolCallStartEvent{Index: idx})
		}
		slot := d.slots[idx]
		if tc.ID != "" && slot.ID == "" {
			slot.ID = tc.ID
		}
		if tc.Function.Name != "" && slot.Name == "" {
			slot.Name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			slot.Arguments += tc.Function.Arguments
			events = append(events, models.ToolCallDeltaEvent{Index: idx, ArgumentsFragment: tc.Function.Arguments})
		}
	}

	if choice.FinishReason != nil {
		events = append(events, d.flushToolCalls()...)
		var usage *models.Usage
		if chunk.Usage != nil {
			usage = &models.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		events = append(events, models.FinishEvent{Reason: *choice.FinishReason, Usage: usage})
	}

	return events, nil
}

// Flush emits ToolCallComplete for any latched-but-unflushed slots. Used
// when the byte source closes (EOF) without a terminal finish_reason.
func (d *OpenAIDecoder) Flush() []models.StreamEvent {
	return d.flushToolCalls()
}

func (d *OpenAIDecoder) ensureSlot(idx int) (created bool) {
	for len(d.slots) <= idx {
		d.slots = append(d.slots, nil)
	}
	if d.slots[idx] == nil {
		d.slots[idx] = &models.ToolCall{}
	}
	if !d.latched[idx] {
		d.latched[idx] = true
		return true
	}
	return false
}

func (d *OpenAIDecoder) flushToolCalls() []models.StreamEvent {
	var events []models.StreamEvent
	for idx, slot := range d.slots {
		if slot == nil || !d.latched[idx] {
			continue
		}
		events = append(events, models.ToolCallCompleteEvent{Call: *slot})
		d.latched[idx] = false
	}
	return events
}
