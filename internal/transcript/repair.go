package transcript

import "github.com/CriticalRange/arula-cli-sub001/pkg/models"

// Repair drops orphaned tool-role messages: a tool reply is kept only if
// the most recent assistant message issued a still-unanswered call that it
// correlates with (by ToolCallID, or by ToolName for calls without an ID,
// as Ollama issues them). Assistant messages are kept unchanged, including
// any tool calls whose reply never arrived.
func Repair(history []models.ChatMessage) []models.ChatMessage {
	if len(history) == 0 {
		return history
	}

	pending := make(map[string]int)
	repaired := make([]models.ChatMessage, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case models.RoleAssistant:
			for k := range pending {
				delete(pending, k)
			}
			for _, call := range msg.ToolCalls {
				key := call.ID
				if key == "" {
					key = call.Name
				}
				if key != "" {
					pending[key]++
				}
			}
			repaired = append(repaired, msg)

		case models.RoleTool:
			key := msg.ToolCallID
			if key == "" {
				key = msg.ToolName
			}
			if key == "" || pending[key] == 0 {
				continue
			}
			pending[key]--
			repaired = append(repaired, msg)

		default:
			repaired = append(repaired, msg)
		}
	}

	return repaired
}
