package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// ListDirectoryTool lists the immediate children of a workspace directory.
type ListDirectoryTool struct {
	resolver Resolver
}

// NewListDirectoryTool creates a list_directory tool scoped to the workspace.
func NewListDirectoryTool(cfg Config) *ListDirectoryTool {
	return &ListDirectoryTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Description() string {
	return "List the files and subdirectories of a workspace directory."
}

func (t *ListDirectoryTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (relative to workspace, default: \".\").",
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type directoryEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

func (t *ListDirectoryTool) Execute(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
	_ = ctx
	var input struct {
		Path string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		path = "."
	}

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return toolError(err.Error()), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read directory: %v", err)), nil
	}

	out := make([]directoryEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, directoryEntry{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":    path,
		"entries": out,
	}, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.ToolResult{Content: string(payload)}, nil
}
