package declarative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAgentFactory_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     *AgentDefinition
		wantErr string
	}{
		{
			name:    "nil definition",
			def:     nil,
			wantErr: "agent definition is nil",
		},
		{
			name:    "missing id",
			def:     &AgentDefinition{Role: "coder"},
			wantErr: "id is required",
		},
		{
			name:    "negative max replies",
			def:     &AgentDefinition{ID: "a", MaxReplies: -1},
			wantErr: "max_replies must be non-negative",
		},
		{
			name:    "tool call without name",
			def:     &AgentDefinition{ID: "a", ToolCalls: []ToolCallDefinition{{}}},
			wantErr: "tool_calls[0]: tool is required",
		},
		{
			name:    "unknown condition",
			def:     &AgentDefinition{ID: "a", Replies: []ReplyDefinition{{To: "b", When: "sometimes"}}},
			wantErr: "unknown condition",
		},
		{
			name:    "self addressed reply",
			def:     &AgentDefinition{ID: "a", Replies: []ReplyDefinition{{To: "a"}}},
			wantErr: "cannot address itself",
		},
		{
			name: "valid",
			def: &AgentDefinition{
				ID:        "a",
				ToolCalls: []ToolCallDefinition{{Tool: "read_file"}},
				Replies:   []ReplyDefinition{{To: "b", When: WhenToolSuccess}, {When: WhenToolFailure}},
			},
		},
	}

	factory := NewAgentFactory(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := factory.Validate(tt.def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAgentFactory_Build_DefaultsRoleToID(t *testing.T) {
	factory := NewAgentFactory(nil)

	a, err := factory.Build(&AgentDefinition{ID: "planner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "planner", a.ID())
	assert.Equal(t, "planner", a.Role())
}

func TestAgentFactory_Build_ToolCallsNeedCaller(t *testing.T) {
	factory := NewAgentFactory(zap.NewNop())

	_, err := factory.Build(&AgentDefinition{
		ID:        "coder",
		ToolCalls: []ToolCallDefinition{{Tool: "run_command"}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need a tool caller")
}

func TestAgentFactory_BuildAll(t *testing.T) {
	factory := NewAgentFactory(zap.NewNop())

	agents, err := factory.BuildAll([]AgentDefinition{
		{ID: "planner", Role: "Plans"},
		{ID: "coder", Role: "Codes"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "planner", agents[0].ID())
	assert.Equal(t, "Codes", agents[1].Role())
}

func TestAgentFactory_BuildAll_JoinsErrors(t *testing.T) {
	factory := NewAgentFactory(zap.NewNop())

	_, err := factory.BuildAll([]AgentDefinition{
		{ID: "planner"},
		{ID: "planner"},
		{Role: "anonymous"},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planner: duplicate id")
	assert.Contains(t, err.Error(), "id is required")
}
