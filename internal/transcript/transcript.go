// Package transcript implements the Transcript & Message Model component:
// the provider-agnostic invariants every chat history must satisfy before
// it is handed to the Provider Adapter, plus the handful of per-family
// projection rules spec.md calls out explicitly (Z.AI message filtering,
// Ollama tool-name reply correlation).
package transcript

import "github.com/CriticalRange/arula-cli-sub001/pkg/models"

// Normalize builds the transcript for one turn: exactly one system
// message at index 0 (the caller's history wins if it already starts
// with one; otherwise systemPrompt is prepended when non-empty), followed
// by the history, followed by the new user prompt — unless the last
// message in history is already an identical user message, in which case
// the prompt is not duplicated.
//
// This is the idempotence/system-dedup rule from spec.md section 4.F,
// generalized out of the teacher's per-provider convertToXMessages
// functions into one shared pure function every provider builder calls.
func Normalize(history []models.ChatMessage, systemPrompt, userPrompt string) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history)+2)

	hasSystem := len(history) > 0 && history[0].Role == models.RoleSystem
	if !hasSystem && systemPrompt != "" {
		out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt, HasContent: true})
	}
	out = append(out, history...)

	lastIsSameUser := len(out) > 0 &&
		out[len(out)-1].Role == models.RoleUser &&
		out[len(out)-1].Content == userPrompt
	if !lastIsSameUser && userPrompt != "" {
		out = append(out, models.ChatMessage{Role: models.RoleUser, Content: userPrompt, HasContent: true})
	}
	return out
}

// FilterForZai drops role=tool messages and role=assistant messages whose
// only content is a set of tool calls (null/empty Content). Z.AI's
// message shape has no correlation key for tool replies, so rather than
// projecting them it omits the whole exchange from the prompt it sees.
func FilterForZai(messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleTool {
			continue
		}
		if msg.Role == models.RoleAssistant && msg.Content == "" && len(msg.ToolCalls) > 0 {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// ReplyWithCorrelation builds the tool-role message appended after a tool
// executes, carrying whichever correlation key the originating call
// requires: tool_call_id for OpenAI-family providers, tool_name for
// Ollama.
func ReplyWithCorrelation(call models.ToolCall, family models.ProviderFamily, resultJSON string) models.ChatMessage {
	msg := models.ChatMessage{Role: models.RoleTool, Content: resultJSON, HasContent: true}
	if family == models.FamilyOllama {
		msg.ToolName = call.Name
	} else {
		msg.ToolCallID = call.ID
	}
	return msg
}
