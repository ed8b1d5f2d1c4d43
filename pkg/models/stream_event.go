package models

// StreamEvent is the unified, provider-agnostic event produced by the
// Stream Decoder as it consumes a provider's SSE or NDJSON byte stream.
// It is a closed sum type: every variant below implements streamEvent()
// so that only this package's types can satisfy StreamEvent.
type StreamEvent interface {
	streamEvent()
}

// StartEvent marks the beginning of a completion; Model and ID are
// best-effort (not every provider echoes them on the first chunk).
type StartEvent struct {
	ID    string
	Model string
}

// TextDeltaEvent carries one fragment of assistant-visible text.
type TextDeltaEvent struct {
	Text string
}

// ReasoningDeltaEvent carries one fragment of model "thinking" text,
// regardless of the provider-specific block name it came from
// (reasoning_content, thinking, or an Anthropic thinking content block).
type ReasoningDeltaEvent struct {
	Text string
}

// ToolCallStartEvent announces a new dense tool-call slot. Index is dense
// and starts at 0; ID and Name are latched from the first chunk that
// supplies them and never overwritten.
type ToolCallStartEvent struct {
	Index int
	ID    string
	Name  string
}

// ToolCallDeltaEvent appends one fragment to the arguments string at
// Index. Fragments must be concatenated in arrival order; the decoder
// never parses them as JSON.
type ToolCallDeltaEvent struct {
	Index              int
	ArgumentsFragment string
}

// ToolCallCompleteEvent is emitted once per non-empty slot when the
// provider signals the tool-call portion of the response is finished.
type ToolCallCompleteEvent struct {
	Call ToolCall
}

// FinishEvent terminates a single completion (one loop iteration).
type FinishEvent struct {
	Reason string
	Usage  *Usage
}

// ErrorEvent terminates the stream; no further events follow it.
type ErrorEvent struct {
	Message string
}

func (StartEvent) streamEvent()            {}
func (TextDeltaEvent) streamEvent()        {}
func (ReasoningDeltaEvent) streamEvent()   {}
func (ToolCallStartEvent) streamEvent()    {}
func (ToolCallDeltaEvent) streamEvent()    {}
func (ToolCallCompleteEvent) streamEvent() {}
func (FinishEvent) streamEvent()           {}
func (ErrorEvent) streamEvent()            {}
