package agent

import (
	"context"

	"github.com/BaSui01/devcrew/types"
)

// Agent is a named actor that reacts to messages.
type Agent interface {
	// ID returns the stable, unique agent identifier.
	ID() string
	// Role returns a human-readable role description.
	Role() string
	// Handle processes a message and returns messages to enqueue.
	Handle(ctx context.Context, msg types.Message) ([]types.Message, error)
}

// Result carries the outcome of an asynchronous Handle call.
type Result struct {
	Messages []types.Message
	Err      error
}

// AsyncAgent is implemented by agents with a native asynchronous handler.
// The returned channel must deliver exactly one Result.
type AsyncAgent interface {
	Agent
	HandleAsync(ctx context.Context, msg types.Message) <-chan Result
}

// ToolCaller is the tool-execution surface the orchestrator exposes to agents.
type ToolCaller interface {
	ExecuteToolWithApproval(ctx context.Context, name string, args map[string]any, caller string, req *types.ApprovalRequest) (types.ToolResult, error)
}

// HandlerFunc is the signature of a synchronous message handler.
type HandlerFunc func(ctx context.Context, msg types.Message) ([]types.Message, error)

// Func adapts a HandlerFunc into an Agent.
type Func struct {
	id      string
	role    string
	handler HandlerFunc
}

// NewFunc creates a function-backed agent.
func NewFunc(id, role string, handler HandlerFunc) *Func {
	return &Func{id: id, role: role, handler: handler}
}

func (f *Func) ID() string   { return f.id }
func (f *Func) Role() string { return f.role }

// Handle invokes the wrapped function.
func (f *Func) Handle(ctx context.Context, msg types.Message) ([]types.Message, error) {
	if f.handler == nil {
		return nil, nil
	}
	return f.handler(ctx, msg)
}
