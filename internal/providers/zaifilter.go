package providers

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// FilterZaiTools drops any tool whose parameter schema declares an
// object- or array-typed property, since Z.AI's function-calling surface
// rejects nested schemas outright. Pure function over the JSON-Schema
// tree: same input, same output, no I/O.
func FilterZaiTools(tools []models.ToolSchema) []models.ToolSchema {
	out := make([]models.ToolSchema, 0, len(tools))
	for _, tool := range tools {
		if !hasComplexParam(tool.Parameters) {
			out = append(out, tool)
		}
	}
	return out
}

// hasComplexParam reports whether any entry under properties.*.type is
// "object" or "array".
func hasComplexParam(schema []byte) bool {
	if len(schema) == 0 {
		return false
	}
	result := gjson.GetBytes(schema, "properties")
	if !result.Exists() {
		return false
	}
	complex := false
	result.ForEach(func(_, prop gjson.Result) bool {
		switch prop.Get("type").String() {
		case "object", "array":
			complex = true
			return false
		}
		return true
	})
	return complex
}

// stripComplexParams rewrites a schema's properties object to drop any
// object/array-typed entries rather than dropping the whole tool. Kept
// for callers that prefer degrading a tool's surface over removing it
// entirely (unused by the default filter, which drops the whole tool per
// the spec's stated behavior, but grounded on the same gjson/sjson pair).
func stripComplexParams(schema []byte) ([]byte, error) {
	result := gjson.GetBytes(schema, "properties")
	if !result.Exists() {
		return schema, nil
	}
	out := schema
	var err error
	result.ForEach(func(key, prop gjson.Result) bool {
		switch prop.Get("type").String() {
		case "object", "array":
			out, err = sjson.DeleteBytes(out, "properties."+key.String())
			if err != nil {
				return false
			}
		}
		return true
	})
	return out, err
}
