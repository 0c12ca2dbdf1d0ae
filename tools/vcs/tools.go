package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/types"
)

// ErrInvalidArgument marks malformed tool arguments.
var ErrInvalidArgument = errors.New("invalid tool argument")

// StatusTool is vcs_status.
type StatusTool struct{ svc *Service }

func (t *StatusTool) Name() string                { return "vcs_status" }
func (t *StatusTool) Description() string         { return "Return version control status information." }
func (t *StatusTool) InputSchema() map[string]any { return map[string]any{} }

// Execute returns the status entries.
func (t *StatusTool) Execute(context.Context, map[string]any) (types.ToolResult, error) {
	st, err := t.svc.Status()
	if err != nil {
		return types.NewToolFailure(t.Name(), err.Error()), nil
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"entries": st.Entries, "clean": st.Clean}), nil
}

// DiffTool is vcs_diff.
type DiffTool struct{ svc *Service }

func (t *DiffTool) Name() string        { return "vcs_diff" }
func (t *DiffTool) Description() string { return "Return version control diff for optional paths." }
func (t *DiffTool) InputSchema() map[string]any {
	return map[string]any{"paths": "list[str] | null"}
}

// Execute returns the diff.
func (t *DiffTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	var paths []string
	if raw, ok := args["paths"]; ok && raw != nil {
		list, ok := toStrings(raw)
		if !ok {
			return types.ToolResult{}, fmt.Errorf("%w: 'paths' must be a list of strings or null", ErrInvalidArgument)
		}
		paths = list
	}
	d, err := t.svc.Diff(paths)
	if err != nil {
		return types.NewToolFailure(t.Name(), err.Error()), nil
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"diff": d}), nil
}

// CommitTool is vcs_commit. It refuses to run unless the arguments carry approved=true.
type CommitTool struct{ svc *Service }

func (t *CommitTool) Name() string        { return "vcs_commit" }
func (t *CommitTool) Description() string { return "Create a version control commit after approval." }
func (t *CommitTool) InputSchema() map[string]any {
	return map[string]any{
		"message":   "string",
		"approved":  "bool",
		"approver":  "string | null",
		"stage_all": "bool | null",
	}
}

// Execute commits the working tree.
func (t *CommitTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	if approved, _ := args["approved"].(bool); !approved {
		return types.NewToolFailure(t.Name(), "Commit requires explicit approval."), nil
	}
	message, ok := args["message"].(string)
	if !ok || strings.TrimSpace(message) == "" {
		return types.ToolResult{}, fmt.Errorf("%w: 'message' must be a non-empty string", ErrInvalidArgument)
	}
	stageAll := true
	if raw, ok := args["stage_all"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return types.ToolResult{}, fmt.Errorf("%w: 'stage_all' must be a bool or null", ErrInvalidArgument)
		}
		stageAll = b
	}

	res, err := t.svc.Commit(strings.TrimSpace(message), stageAll)
	if err != nil {
		return types.NewToolFailure(t.Name(), err.Error()), nil
	}
	return types.NewToolSuccess(t.Name(), map[string]any{
		"commit_hash": res.CommitHash,
		"message":     res.Message,
		"approver":    args["approver"],
	}), nil
}

// BranchTool is vcs_create_branch.
type BranchTool struct{ svc *Service }

func (t *BranchTool) Name() string        { return "vcs_create_branch" }
func (t *BranchTool) Description() string { return "Create a new version control branch." }
func (t *BranchTool) InputSchema() map[string]any {
	return map[string]any{"name": "string", "checkout": "bool | null"}
}

// Execute creates the branch.
func (t *BranchTool) Execute(_ context.Context, args map[string]any) (types.ToolResult, error) {
	name, ok := args["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return types.ToolResult{}, fmt.Errorf("%w: 'name' must be a non-empty string", ErrInvalidArgument)
	}
	checkout := true
	if raw, ok := args["checkout"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return types.ToolResult{}, fmt.Errorf("%w: 'checkout' must be a bool or null", ErrInvalidArgument)
		}
		checkout = b
	}
	branch, err := t.svc.CreateBranch(strings.TrimSpace(name), checkout)
	if err != nil {
		return types.NewToolFailure(t.Name(), err.Error()), nil
	}
	return types.NewToolSuccess(t.Name(), map[string]any{"branch_name": branch}), nil
}

// Register adds the four vcs tools to r.
func Register(r *tools.Registry, svc *Service) error {
	for _, t := range []tools.Tool{
		&StatusTool{svc: svc},
		&DiffTool{svc: svc},
		&CommitTool{svc: svc},
		&BranchTool{svc: svc},
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func toStrings(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
