package hitl

import "fmt"

// Mode selects whether gated tools need a human decision.
type Mode string

const (
	ModeAutonomous       Mode = "autonomous"
	ModeApprovalRequired Mode = "approval-required"
)

// Gated tool names.
const (
	ToolRunCommand = "run_command"
	ToolVCSCommit  = "vcs_commit"
)

// DefaultUserProxyID is the agent id the gate contacts unless configured otherwise.
const DefaultUserProxyID = "user_proxy"

// Policy controls approval checkpoints. It is immutable once a run starts.
type Policy struct {
	Mode                     Mode   `yaml:"mode" json:"mode"`
	RequireExecutionApproval bool   `yaml:"require_execution_approval" json:"require_execution_approval"`
	RequireCommitApproval    bool   `yaml:"require_commit_approval" json:"require_commit_approval"`
	UserProxyAgentID         string `yaml:"user_proxy_agent_id" json:"user_proxy_agent_id"`
}

// DefaultPolicy returns an autonomous policy that would gate commits once switched
// to approval-required.
func DefaultPolicy() Policy {
	return Policy{
		Mode:                     ModeAutonomous,
		RequireExecutionApproval: false,
		RequireCommitApproval:    true,
		UserProxyAgentID:         DefaultUserProxyID,
	}
}

// ApprovalRequired reports whether the policy is in approval-required mode.
// Any other mode value behaves as autonomous.
func (p Policy) ApprovalRequired() bool {
	return p.Mode == ModeApprovalRequired
}

// RequiresApproval reports whether executing the named tool needs a decision.
func (p Policy) RequiresApproval(toolName string) bool {
	if !p.ApprovalRequired() {
		return false
	}
	switch toolName {
	case ToolRunCommand:
		return p.RequireExecutionApproval
	case ToolVCSCommit:
		return p.RequireCommitApproval
	default:
		return false
	}
}

// ProxyID returns the configured proxy id, falling back to DefaultUserProxyID.
func (p Policy) ProxyID() string {
	if p.UserProxyAgentID == "" {
		return DefaultUserProxyID
	}
	return p.UserProxyAgentID
}

// Validate checks the mode value.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeAutonomous, ModeApprovalRequired:
		return nil
	default:
		return fmt.Errorf("unknown approval mode %q", p.Mode)
	}
}
