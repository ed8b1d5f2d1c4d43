package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// SearchFilesTool does a recursive substring search across workspace files,
// returning matching file:line pairs up to a bounded result count.
type SearchFilesTool struct {
	resolver   Resolver
	maxMatches int
}

// NewSearchFilesTool creates a search_files tool scoped to the workspace.
func NewSearchFilesTool(cfg Config) *SearchFilesTool {
	return &SearchFilesTool{resolver: Resolver{Root: cfg.Workspace}, maxMatches: 200}
}

func (t *SearchFilesTool) Name() string { return "search_files" }

func (t *SearchFilesTool) Description() string {
	return "Search workspace files for a literal substring, returning matching file:line locations."
}

func (t *SearchFilesTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Literal substring to search for.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search under (relative to workspace, default: \".\").",
			},
		},
		"required": []string{"query"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type searchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *SearchFilesTool) Execute(ctx context.Context, params json.RawMessage) (models.ToolResult, error) {
	var input struct {
		Query string `json:"query"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), nil
	}
	searchRoot := strings.TrimSpace(input.Path)
	if searchRoot == "" {
		searchRoot = "."
	}

	resolved, err := t.resolver.Resolve(searchRoot)
	if err != nil {
		return toolError(err.Error()), nil
	}

	var matches []searchMatch
	truncated := false
	walkErr := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if len(matches) >= t.maxMatches {
			truncated = true
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			rel = path
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if strings.Contains(line, input.Query) {
				matches = append(matches, searchMatch{Path: rel, Line: lineNo, Text: strings.TrimSpace(line)})
				if len(matches) >= t.maxMatches {
					truncated = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != ctx.Err() {
		return toolError(fmt.Sprintf("search failed: %v", walkErr)), nil
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"query":     input.Query,
		"matches":   matches,
		"truncated": truncated,
	}, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return models.ToolResult{Content: string(payload)}, nil
}
