package tools

import (
	"context"

	"github.com/BaSui01/devcrew/types"
)

// Tool is a named, side-effecting capability.
//
// Execute reports ordinary failures through ToolResult.Success=false. A non-nil
// error is reserved for exceptional conditions and is fatal to the run.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (types.ToolResult, error)
}

// ExecuteFunc is the signature of a function-backed tool.
type ExecuteFunc func(ctx context.Context, args map[string]any) (types.ToolResult, error)

// FuncTool adapts a function into a Tool.
type FuncTool struct {
	name        string
	description string
	schema      map[string]any
	fn          ExecuteFunc
}

// NewFuncTool creates a function-backed tool.
func NewFuncTool(name, description string, schema map[string]any, fn ExecuteFunc) *FuncTool {
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *FuncTool) Name() string                { return t.name }
func (t *FuncTool) Description() string         { return t.description }
func (t *FuncTool) InputSchema() map[string]any { return t.schema }

// Execute calls the wrapped function.
func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (types.ToolResult, error) {
	return t.fn(ctx, args)
}
