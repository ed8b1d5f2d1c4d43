package stream

import (
	"encoding/json"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// ollamaChunk is one line of Ollama's /api/chat NDJSON stream. Unlike the
// OpenAI family, tool calls arrive whole (no incremental arguments
// fragments) and arguments are a JSON object, not a string.
type ollamaChunk struct {
	Model   string `json:"model"`
	Message struct {
		Content   string `json:"content"`
		Thinking  string `json:"thinking"`
		ToolCalls []struct {
			Function struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

// OllamaDecoder turns one Ollama NDJSON chunk into StreamEvents,
// assigning dense indices to each tool call in arrival order.
type OllamaDecoder struct {
	startSent bool
	nextIndex int
}

// NewOllamaDecoder returns a fresh decoder for one completion.
func NewOllamaDecoder() *OllamaDecoder {
	return &OllamaDecoder{}
}

// Decode turns one raw NDJSON line into the StreamEvents it represents.
func (d *OllamaDecoder) Decode(raw []byte) ([]models.StreamEvent, error) {
	var chunk ollamaChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, nil
	}

	var events []models.StreamEvent
	if !d.startSent {
		d.startSent = true
		events = append(events, models.StartEvent{Model: chunk.Model})
	}

	if chunk.Message.Content != "" {
		events = append(events, models.TextDeltaEvent{Text: chunk.Message.Content})
	}
	if chunk.Message.Thinking != "" {
		events = append(events, models.ReasoningDeltaEvent{Text: chunk.Message.Thinking})
	}

	for _, tc := range chunk.Message.ToolCalls {
		idx := d.nextIndex
		d.nextIndex++
		argsJSON, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			argsJSON = []byte("{}")
		}
		events = append(events,
			models.ToolCallStartEvent{Index: idx, Name: tc.Function.Name},
			models.ToolCallDeltaEvent{Index: idx, ArgumentsFragment: string(argsJSON)},
			models.ToolCallCompleteEvent{Call: models.ToolCall{Name: tc.Function.Name, Arguments: string(argsJSON)}},
		)
	}

	if chunk.Done {
		events = append(events, models.FinishEvent{
			Reason: "stop",
			Usage: &models.Usage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
				TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
			},
		})
	}

	return events, nil
}
