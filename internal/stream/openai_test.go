package stream

import (
	"strings"
	"testing"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

func TestOpenAIDecoderEmitsStartEventOnce(t *testing.T) {
	d := NewOpenAIDecoder()

	events, err := d.Decode([]byte(`{"id":"cmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"hi"}}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Decode() returned %d events, want 2 (start + text delta), got %+v", len(events), events)
	}
	start, ok := events[0].(models.StartEvent)
	if !ok || start.ID != "cmpl-1" || start.Model != "gpt-4o-mini" {
		t.Errorf("events[0] = %+v, want StartEvent{ID: cmpl-1, Model: gpt-4o-mini}", events[0])
	}

	// A second chunk from the same decoder must not re-announce start.
	events, err = d.Decode([]byte(`{"id":"cmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":" there"}}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Decode() returned %d events, want 1 (start must not repeat), got %+v", len(events), events)
	}
}

func TestOpenAIDecoderMalformedPayloadIsNotFatal(t *testing.T) {
	d := NewOpenAIDecoder()
	events, err := d.Decode([]byte(`{not json`))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil for a malformed payload", err)
	}
	if events != nil {
		t.Errorf("Decode() events = %+v, want nil", events)
	}
}

func TestOpenAIDecoderAccumulatesToolCallArgumentsByteForByte(t *testing.T) {
	d := NewOpenAIDecoder()

	chunks := []string{
		`{"id":"x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"execute_bash","arguments":""}}]}}]}`,
		`{"id":"x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"comm"}}]}}]}`,
		`{"id":"x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"and\":\"ls\"}"}}]}}]}`,
		`{"id":"x","choices":[{"index":0,"finish_reason":"tool_calls"}]}`,
	}

	var allEvents []models.StreamEvent
	for _, raw := range chunks {
		events, err := d.Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		allEvents = append(allEvents, events...)
	}

	var fragments strings.Builder
	var complete *models.ToolCallCompleteEvent
	for _, ev := range allEvents {
		switch e := ev.(type) {
		case models.ToolCallDeltaEvent:
			fragments.WriteString(e.ArgumentsFragment)
		case models.ToolCallCompleteEvent:
			complete = &e
		}
	}

	if complete == nil {
		t.Fatal("no ToolCallCompleteEvent was emitted")
	}
	if complete.Call.ID != "call_1" {
		t.Errorf("ToolCallCompleteEvent.Call.ID = %q, want %q", complete.Call.ID, "call_1")
	}
	if complete.Call.Name != "execute_bash" {
		t.Errorf("ToolCallCompleteEvent.Call.Name = %q, want %q", complete.Call.Name, "execute_bash")
	}
	if complete.Call.Arguments != fragments.String() {
		t.Errorf("ToolCallCompleteEvent.Call.Arguments = %q, want it to equal the concatenated fragments %q byte-for-byte",
			complete.Call.Arguments, fragments.String())
	}
	if complete.Call.Arguments != `{"command":"ls"}` {
		t.Errorf("ToolCallCompleteEvent.Call.Arguments = %q, want %q", complete.Call.Arguments, `{"command":"ls"}`)
	}
}

func TestOpenAIDecoderFlushEmitsUnterminatedToolCalls(t *testing.T) {
	d := NewOpenAIDecoder()
	if _, err := d.Decode([]byte(`{"id":"x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"execute_bash","arguments":"{}"}}]}}]}`)); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	events := d.Flush()
	if len(events) != 1 {
		t.Fatalf("Flush() returned %d events, want 1", len(events))
	}
	complete, ok := events[0].(models.ToolCallCompleteEvent)
	if !ok {
		t.Fatalf("Flush()[0] = %T, want models.ToolCallCompleteEvent", events[0])
	}
	if complete.Call.ID != "call_1" {
		t.Errorf("Flush() ToolCallCompleteEvent.Call.ID = %q, want %q", complete.Call.ID, "call_1")
	}

	// Flushing twice must not re-emit an already-flushed slot.
	if again := d.Flush(); len(again) != 0 {
		t.Errorf("second Flush() returned %d events, want 0", len(again))
	}
}

func TestOpenAIDecoderEmitsFinishEventWithUsage(t *testing.T) {
	d := NewOpenAIDecoder()
	events, err := d.Decode([]byte(`{"id":"x","choices":[{"index":0,"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var finish *models.FinishEvent
	for _, ev := range events {
		if f, ok := ev.(models.FinishEvent); ok {
			finish = &f
		}
	}
	if finish == nil {
		t.Fatal("no FinishEvent was emitted")
	}
	if finish.Reason != "stop" {
		t.Errorf("FinishEvent.Reason = %q, want %q", finish.Reason, "stop")
	}
	if finish.Usage == nil || finish.Usage.TotalTokens != 15 {
		t.Errorf("FinishEvent.Usage = %+v, want TotalTokens=15", finish.Usage)
	}
}

func TestOpenAIDecoderEmitsReasoningDelta(t *testing.T) {
	d := NewOpenAIDecoder()
	events, err := d.Decode([]byte(`{"id":"x","choices":[{"index":0,"delta":{"reasoning_content":"thinking..."}}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	var found bool
	for _, ev := range events {
		if r, ok := ev.(models.ReasoningDeltaEvent); ok {
			found = true
			if r.Text != "thinking..." {
				t.Errorf("ReasoningDeltaEvent.Text = %q, want %q", r.Text, "thinking...")
			}
		}
	}
	if !found {
		t.Error("no ReasoningDeltaEvent was emitted")
	}
}
