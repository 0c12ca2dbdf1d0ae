package hitl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPolicy_RequiresApproval(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		tool   string
		want   bool
	}{
		{"autonomous never gates commit", Policy{Mode: ModeAutonomous, RequireCommitApproval: true}, ToolVCSCommit, false},
		{"autonomous never gates exec", Policy{Mode: ModeAutonomous, RequireExecutionApproval: true}, ToolRunCommand, false},
		{"commit gated", Policy{Mode: ModeApprovalRequired, RequireCommitApproval: true}, ToolVCSCommit, true},
		{"commit flag off", Policy{Mode: ModeApprovalRequired}, ToolVCSCommit, false},
		{"exec gated", Policy{Mode: ModeApprovalRequired, RequireExecutionApproval: true}, ToolRunCommand, true},
		{"exec flag off", Policy{Mode: ModeApprovalRequired, RequireCommitApproval: true}, ToolRunCommand, false},
		{"other tool", Policy{Mode: ModeApprovalRequired, RequireCommitApproval: true, RequireExecutionApproval: true}, "write_file", false},
		{"unknown mode behaves autonomous", Policy{Mode: "yolo", RequireCommitApproval: true}, ToolVCSCommit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.RequiresApproval(tt.tool))
		})
	}
}

func TestPolicy_OnlyTwoToolClassesAreGated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Policy{
			Mode:                     rapid.SampledFrom([]Mode{ModeAutonomous, ModeApprovalRequired}).Draw(t, "mode"),
			RequireExecutionApproval: rapid.Bool().Draw(t, "exec"),
			RequireCommitApproval:    rapid.Bool().Draw(t, "commit"),
		}
		name := rapid.StringMatching(`[a-z_]{1,16}`).Draw(t, "tool")
		if name == ToolRunCommand || name == ToolVCSCommit {
			return
		}
		if p.RequiresApproval(name) {
			t.Fatalf("tool %q must never be gated", name)
		}
	})
}

func TestPolicy_DefaultsAndValidate(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, ModeAutonomous, p.Mode)
	assert.True(t, p.RequireCommitApproval)
	assert.False(t, p.RequireExecutionApproval)
	assert.Equal(t, DefaultUserProxyID, p.ProxyID())
	assert.NoError(t, p.Validate())

	assert.Equal(t, DefaultUserProxyID, Policy{}.ProxyID())
	assert.Error(t, Policy{Mode: "sometimes"}.Validate())
}
