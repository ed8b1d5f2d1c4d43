package models

import "encoding/json"

// ToolSchema is the provider-facing description of one registered tool:
// name, description, and a JSON-Schema-shaped parameter object. The
// registry projects this into each provider family's own tool-call wire
// format (de facto the OpenAI function-calling shape, since every family
// in this spec is a variant of it).
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}
