// Package builtin provides the default file and command tools.
package builtin

import (
	"github.com/BaSui01/devcrew/internal/workspace"
	"github.com/BaSui01/devcrew/tools"
)

// Register adds run_command, read_file, write_file, list_files and file_exists to r.
func Register(r *tools.Registry, ws *workspace.Manager, runner CommandRunner) error {
	for _, t := range []tools.Tool{
		NewRunCommandTool(runner, ws),
		NewReadFileTool(ws),
		NewWriteFileTool(ws),
		NewListFilesTool(ws),
		NewFileExistsTool(ws),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
