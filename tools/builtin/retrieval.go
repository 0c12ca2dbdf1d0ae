package builtin

import (
	"context"
	"errors"
	"io/fs"

	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/internal/workspace"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/types"
)

// RegisterRetrieval adds index_file, search_code and file_summary to r.
func RegisterRetrieval(r *tools.Registry, ws *workspace.Manager, retriever memory.Retriever) error {
	for _, t := range []tools.Tool{
		NewIndexFileTool(ws, retriever),
		NewSearchCodeTool(retriever),
		NewFileSummaryTool(retriever),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// IndexFileTool indexes workspace files for search_code.
type IndexFileTool struct {
	ws        *workspace.Manager
	retriever memory.Retriever
}

// NewIndexFileTool creates the index_file tool.
func NewIndexFileTool(ws *workspace.Manager, retriever memory.Retriever) *IndexFileTool {
	return &IndexFileTool{ws: ws, retriever: retriever}
}

func (t *IndexFileTool) Name() string { return "index_file" }
func (t *IndexFileTool) Description() string {
	return "Index a workspace file, or every file matching a pattern, for code search."
}
func (t *IndexFileTool) InputSchema() map[string]any {
	return map[string]any{"path": "string | null", "pattern": "string | null"}
}

// Execute indexes path, or every file matching pattern. Unreadable paths are a failed result.
func (t *IndexFileTool) Execute(ctx context.Context, args map[string]any) (types.ToolResult, error) {
	path, err := optionalString(args, "path")
	if err != nil {
		return types.ToolResult{}, err
	}
	pattern, err := optionalString(args, "pattern")
	if err != nil {
		return types.ToolResult{}, err
	}
	if (path == "") == (pattern == "") {
		return types.ToolResult{}, invalidf("exactly one of 'path' or 'pattern' is required")
	}

	paths := []string{path}
	if pattern != "" {
		if paths, err = t.ws.ListFiles(pattern); err != nil {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
	}
	for _, p := range paths {
		content, err := t.ws.ReadText(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, workspace.ErrPathEscapesRoot) {
				return types.NewToolFailure(t.Name(), err.Error()), nil
			}
			return types.ToolResult{}, err
		}
		if err := t.retriever.IndexText(ctx, p, content); err != nil {
			return types.ToolResult{}, err
		}
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"indexed": paths}), nil
}

// SearchCodeTool queries the index.
type SearchCodeTool struct{ retriever memory.Retriever }

// NewSearchCodeTool creates the search_code tool.
func NewSearchCodeTool(retriever memory.Retriever) *SearchCodeTool {
	return &SearchCodeTool{retriever: retriever}
}

func (t *SearchCodeTool) Name() string { return "search_code" }
func (t *SearchCodeTool) Description() string {
	return "Search indexed files for the chunks most relevant to a query."
}
func (t *SearchCodeTool) InputSchema() map[string]any {
	return map[string]any{"query": "string", "limit": "int | null"}
}

func (t *SearchCodeTool) Execute(ctx context.Context, args map[string]any) (types.ToolResult, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return types.ToolResult{}, err
	}
	limit, err := optionalInt(args, "limit", 5)
	if err != nil {
		return types.ToolResult{}, err
	}
	results, err := t.retriever.Query(ctx, query, limit)
	if err != nil {
		return types.ToolResult{}, err
	}
	if results == nil {
		results = []memory.RetrievalResult{}
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"results": results}), nil
}

// FileSummaryTool returns the stored summary of an indexed file.
type FileSummaryTool struct{ retriever memory.Retriever }

// NewFileSummaryTool creates the file_summary tool.
func NewFileSummaryTool(retriever memory.Retriever) *FileSummaryTool {
	return &FileSummaryTool{retriever: retriever}
}

func (t *FileSummaryTool) Name() string                { return "file_summary" }
func (t *FileSummaryTool) Description() string         { return "Return the summary of an indexed file." }
func (t *FileSummaryTool) InputSchema() map[string]any { return map[string]any{"path": "string"} }

// Execute looks up the summary. A path that was never indexed is a failed result.
func (t *FileSummaryTool) Execute(ctx context.Context, args map[string]any) (types.ToolResult, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return types.ToolResult{}, err
	}
	summary, err := t.retriever.FileSummary(ctx, path)
	if err != nil {
		if errors.Is(err, memory.ErrSummaryNotFound) {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
		return types.ToolResult{}, err
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"summary": summary}), nil
}
