package declarative

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
)

// AgentFactory validates definitions and builds ScriptedAgent instances.
type AgentFactory struct {
	logger *zap.Logger
}

// NewAgentFactory creates a new AgentFactory.
func NewAgentFactory(logger *zap.Logger) *AgentFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentFactory{logger: logger}
}

// Validate checks that required fields are present and constraints are met.
func (f *AgentFactory) Validate(def *AgentDefinition) error {
	if def == nil {
		return fmt.Errorf("agent definition is nil")
	}
	if def.ID == "" {
		return fmt.Errorf("agent definition: id is required")
	}
	if def.MaxReplies < 0 {
		return fmt.Errorf("agent definition %s: max_replies must be non-negative, got %d", def.ID, def.MaxReplies)
	}
	for i, call := range def.ToolCalls {
		if call.Tool == "" {
			return fmt.Errorf("agent definition %s: tool_calls[%d]: tool is required", def.ID, i)
		}
	}
	for i, reply := range def.Replies {
		switch reply.When {
		case "", WhenAlways, WhenToolSuccess, WhenToolFailure:
		default:
			return fmt.Errorf("agent definition %s: replies[%d]: unknown condition %q", def.ID, i, reply.When)
		}
		if reply.To == def.ID {
			return fmt.Errorf("agent definition %s: replies[%d]: agent cannot address itself", def.ID, i)
		}
	}
	return nil
}

// Build validates def and returns a scripted agent bound to caller.
// caller may be nil when the definition has no tool calls.
func (f *AgentFactory) Build(def *AgentDefinition, caller agent.ToolCaller) (*ScriptedAgent, error) {
	if err := f.Validate(def); err != nil {
		return nil, err
	}
	if len(def.ToolCalls) > 0 && caller == nil {
		return nil, fmt.Errorf("agent definition %s: tool calls need a tool caller", def.ID)
	}

	role := def.Role
	if role == "" {
		role = def.ID
	}
	built := *def
	built.Role = role

	f.logger.Debug("built scripted agent",
		zap.String("agent_id", def.ID),
		zap.Int("tool_calls", len(def.ToolCalls)),
		zap.Int("replies", len(def.Replies)),
	)
	return &ScriptedAgent{
		def:    built,
		caller: caller,
		logger: f.logger.With(zap.String("agent_id", def.ID)),
	}, nil
}

// BuildAll builds every definition. Duplicate ids and invalid definitions are
// reported together.
func (f *AgentFactory) BuildAll(defs []AgentDefinition, caller agent.ToolCaller) ([]agent.Agent, error) {
	var errs []error
	seen := make(map[string]struct{}, len(defs))
	out := make([]agent.Agent, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		if _, dup := seen[def.ID]; dup && def.ID != "" {
			errs = append(errs, fmt.Errorf("agent definition %s: duplicate id", def.ID))
			continue
		}
		seen[def.ID] = struct{}{}
		a, err := f.Build(def, caller)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, a)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
