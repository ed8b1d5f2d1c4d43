package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaOf reflects a Go argument struct into the JSON Schema shape a Tool
// declares in Schema(). Built-in tools hand-write their schemas (the shapes
// are small and need precise descriptions), but a tool backed by a plain
// argument struct can derive its schema here instead of duplicating it.
func SchemaOf(args interface{}) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		FieldNameTag:               "json",
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}
	schema := reflector.Reflect(args)
	return json.MarshalIndent(schema, "", "  ")
}
