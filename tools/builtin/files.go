package builtin

import (
	"context"
	"errors"
	"io/fs"

	"github.com/BaSui01/devcrew/internal/workspace"
	"github.com/BaSui01/devcrew/types"
)

// ReadFileTool reads a text file from the workspace.
type ReadFileTool struct{ ws *workspace.Manager }

// NewReadFileTool creates the read_file tool.
func NewReadFileTool(ws *workspace.Manager) *ReadFileTool { return &ReadFileTool{ws: ws} }

func (t *ReadFileTool) Name() string                { return "read_file" }
func (t *ReadFileTool) Description() string         { return "Read a text file from the workspace." }
func (t *ReadFileTool) InputSchema() map[string]any { return map[string]any{"path": "string"} }

// Execute reads the file. A missing file or an escaping path is a failed result.
func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return types.ToolResult{}, err
	}
	content, err := t.ws.ReadText(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, workspace.ErrPathEscapesRoot) {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
		return types.ToolResult{}, err
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"content": content}), nil
}

// WriteFileTool writes a text file to the workspace.
type WriteFileTool struct{ ws *workspace.Manager }

// NewWriteFileTool creates the write_file tool.
func NewWriteFileTool(ws *workspace.Manager) *WriteFileTool { return &WriteFileTool{ws: ws} }

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write a text file to the workspace." }
func (t *WriteFileTool) InputSchema() map[string]any {
	return map[string]any{"path": "string", "content": "string"}
}

// Execute writes the file. Read-only workspaces and escaping paths yield failed results.
func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return types.ToolResult{}, err
	}
	content, err := requiredString(args, "content")
	if err != nil {
		return types.ToolResult{}, err
	}
	if err := t.ws.WriteText(path, content); err != nil {
		if errors.Is(err, workspace.ErrReadOnly) || errors.Is(err, workspace.ErrPathEscapesRoot) {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
		return types.ToolResult{}, err
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"path": path}), nil
}

// ListFilesTool lists workspace files.
type ListFilesTool struct{ ws *workspace.Manager }

// NewListFilesTool creates the list_files tool.
func NewListFilesTool(ws *workspace.Manager) *ListFilesTool { return &ListFilesTool{ws: ws} }

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "List files in the workspace, optionally filtered by a glob."
}
func (t *ListFilesTool) InputSchema() map[string]any {
	return map[string]any{"pattern": "string | null"}
}

// Execute lists files.
func (t *ListFilesTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	pattern, err := optionalString(args, "pattern")
	if err != nil {
		return types.ToolResult{}, err
	}
	files, err := t.ws.ListFiles(pattern)
	if err != nil {
		return types.NewToolFailure(t.Name(), err.Error()), nil
	}
	if files == nil {
		files = []string{}
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"files": files}), nil
}

// FileExistsTool checks for a file.
type FileExistsTool struct{ ws *workspace.Manager }

// NewFileExistsTool creates the file_exists tool.
func NewFileExistsTool(ws *workspace.Manager) *FileExistsTool { return &FileExistsTool{ws: ws} }

func (t *FileExistsTool) Name() string { return "file_exists" }
func (t *FileExistsTool) Description() string {
	return "Check whether a file exists in the workspace."
}
func (t *FileExistsTool) InputSchema() map[string]any { return map[string]any{"path": "string"} }

// Execute reports existence.
func (t *FileExistsTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return types.ToolResult{}, err
	}
	exists, err := t.ws.FileExists(path)
	if err != nil {
		if errors.Is(err, workspace.ErrPathEscapesRoot) {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
		return types.ToolResult{}, err
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"exists": exists}), nil
}
