package stream

import (
	"encoding/json"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// anthropicEvent covers the handful of /v1/messages streaming event
// shapes this decoder needs: message_start, content_block_start,
// content_block_delta (text_delta / thinking_delta / input_json_delta),
// content_block_stop, message_delta, message_stop.
type anthropicEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicDecoder tracks which content-block indices are tool_use blocks
// so content_block_delta/stop events can be routed to the right
// StreamEvent variant.
type AnthropicDecoder struct {
	startSent  bool
	toolBlocks map[int]*models.ToolCall
	inputUsage int
}

// NewAnthropicDecoder returns a fresh decoder for one completion.
func NewAnthropicDecoder() *AnthropicDecoder {
	return &AnthropicDecoder{toolBlocks: make(map[int]*models.ToolCall)}
}

// Decode turns one raw SSE data payload into the StreamEvents it represents.
func (d *AnthropicDecoder) Decode(raw []byte) ([]models.StreamEvent, error) {
	var evt anthropicEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, nil
	}

	switch evt.Type {
	case "message_start":
		d.startSent = true
		d.inputUsage = evt.Message.Usage.InputTokens
		return []models.StreamEvent{models.StartEvent{ID: evt.Message.ID, Model: evt.Message.Model}}, nil

	case "content_block_start":
		if evt.ContentBlock.Type == "tool_use" {
			d.toolBlocks[evt.Index] = &models.ToolCall{ID: evt.ContentBlock.ID, Name: evt.ContentBlock.Name}
			return []models.StreamEvent{models.ToolCallStartEvent{Index: evt.Index, ID: evt.ContentBlock.ID, Name: evt.ContentBlock.Name}}, nil
		}
		return nil, nil

	case "content_block_delta":
		switch evt.Delta.Type {
		case "text_delta":
			return []models.StreamEvent{models.TextDeltaEvent{Text: evt.Delta.Text}}, nil
		case "thinking_delta":
			return []models.StreamEvent{models.ReasoningDeltaEvent{Text: evt.Delta.Thinking}}, nil
		case "input_json_delta":
			if tc, ok := d.toolBlocks[evt.Index]; ok {
				tc.Arguments += evt.Delta.PartialJSON
				return []models.StreamEvent{models.ToolCallDeltaEvent{Index: evt.Index, ArgumentsFragment: evt.Delta.PartialJSON}}, nil
			}
			return nil, nil
		}
		return nil, nil

	case "content_block_stop":
		if tc, ok := d.toolBlocks[evt.Index]; ok {
			delete(d.toolBlocks, evt.Index)
			return []models.StreamEvent{models.ToolCallCompleteEvent{Call: *tc}}, nil
		}
		return nil, nil

	case "message_delta":
		usage := &models.Usage{
			PromptTokens:     d.inputUsage,
			CompletionTokens: evt.Usage.OutputTokens,
			TotalTokens:      d.inputUsage + evt.Usage.OutputTokens,
		}
		return []models.StreamEvent{models.FinishEvent{Reason: evt.Delta.StopReason, Usage: usage}}, nil

	default:
		return nil, nil
	}
}
