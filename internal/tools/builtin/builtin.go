// Package builtin assembles the concrete Tool values the orchestrator
// registers by default: the bash executor, the file tools, the web tools,
// and ask_user.
package builtin

import (
	"github.com/CriticalRange/arula-cli-sub001/internal/tools"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools/exec"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools/files"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools/websearch"
)

// Config controls where the file/exec tools are scoped and how the web
// tools are backed.
type Config struct {
	Workspace        string
	MaxReadBytes     int
	SearchConfig     websearch.Config
	WebFetchMaxChars int
}

// All constructs the full default tool set in a stable order.
func All(cfg Config) []tools.Tool {
	filesCfg := files.Config{Workspace: cfg.Workspace, MaxReadBytes: cfg.MaxReadBytes}
	execManager := exec.NewManager(cfg.Workspace)

	return []tools.Tool{
		exec.NewExecTool("execute_bash", execManager),
		exec.NewProcessTool(execManager),
		files.NewReadTool(filesCfg),
		files.NewWriteTool(filesCfg),
		files.NewEditTool(filesCfg),
		files.NewApplyPatchTool(filesCfg),
		files.NewListDirectoryTool(filesCfg),
		files.NewSearchFilesTool(filesCfg),
		websearch.NewWebSearchTool(&cfg.SearchConfig),
		websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: cfg.WebFetchMaxChars}),
		NewAskUserTool(),
	}
}
