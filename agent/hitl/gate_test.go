package hitl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/types"
)

func requiredPolicy() Policy {
	return Policy{
		Mode:                     ModeApprovalRequired,
		RequireExecutionApproval: true,
		RequireCommitApproval:    true,
		UserProxyAgentID:         "proxy",
	}
}

func newRegistry(agents ...agent.Agent) *agent.Registry {
	reg := agent.NewRegistry(zap.NewNop())
	for _, a := range agents {
		reg.Register(a)
	}
	return reg
}

func decisionReply(requestID string, approved bool, approver string) types.Message {
	m := types.NewMessage("proxy", types.SenderOrchestrator, "")
	m.Metadata[types.MetaApprovalRequestID] = requestID
	m.Metadata[types.MetaApproved] = approved
	m.Metadata[types.MetaApprover] = approver
	return m
}

func TestGate_AutonomousSkipsProxy(t *testing.T) {
	called := false
	proxy := agent.NewFunc("proxy", "proxy", func(context.Context, types.Message) ([]types.Message, error) {
		called = true
		return nil, nil
	})
	p := requiredPolicy()
	p.Mode = ModeAutonomous
	gate := NewGate(p, newRegistry(proxy), nil, nil, zap.NewNop())

	d, err := gate.RequestApproval(context.Background(), types.ApprovalRequest{Action: "vcs_commit"})
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Equal(t, AutonomousApprover, d.Approver)
	assert.Equal(t, AutonomousNotes, d.Notes)
	assert.False(t, called)
	assert.Equal(t, 0, gate.Ledger().Counter())
}

func TestGate_RoundTripThroughUserProxy(t *testing.T) {
	var received types.Message
	proxy := agent.NewFunc("proxy", "proxy", func(ctx context.Context, msg types.Message) ([]types.Message, error) {
		received = msg
		return agent.NewUserProxy("proxy", agent.FixedDecision(false, "alice", "too risky"), nil).Handle(ctx, msg)
	})
	gate := NewGate(requiredPolicy(), newRegistry(proxy), nil, nil, nil)

	req := types.ApprovalRequest{
		Action:      "vcs_commit",
		Description: "Approve tool execution for 'vcs_commit'.",
		Metadata:    types.Metadata{"caller": "coder"},
	}
	d, err := gate.RequestApproval(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, d.Approved)
	assert.Equal(t, "alice", d.Approver)
	assert.Equal(t, "too risky", d.Notes)

	assert.Equal(t, types.SenderOrchestrator, received.Sender)
	assert.Equal(t, "proxy", received.Recipient)
	assert.Equal(t, req.Description, received.Content)
	assert.Equal(t, "approval-1", received.Metadata[types.MetaApprovalRequestID])
	assert.Equal(t, "vcs_commit", received.Metadata[types.MetaAction])
	assert.Equal(t, map[string]any{"caller": "coder"}, received.Metadata[types.MetaMetadata])

	assert.Empty(t, gate.Ledger().Pending(), "answered requests leave the ledger")
}

func TestGate_FatalErrors(t *testing.T) {
	t.Run("proxy not registered", func(t *testing.T) {
		gate := NewGate(requiredPolicy(), newRegistry(), nil, nil, nil)
		_, err := gate.RequestApproval(context.Background(), types.ApprovalRequest{Action: "run_command"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrProxyNotRegistered))
		assert.Contains(t, err.Error(), "proxy")
	})

	t.Run("no matching decision", func(t *testing.T) {
		proxy := agent.NewFunc("proxy", "proxy", func(context.Context, types.Message) ([]types.Message, error) {
			return []types.Message{decisionReply("approval-99", true, "bob")}, nil
		})
		gate := NewGate(requiredPolicy(), newRegistry(proxy), nil, nil, nil)
		_, err := gate.RequestApproval(context.Background(), types.ApprovalRequest{Action: "run_command"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrNoApprovalDecision))
		assert.Contains(t, err.Error(), "approval-1")
		assert.Contains(t, gate.Ledger().Pending(), "approval-1")
	})

	t.Run("proxy asks itself", func(t *testing.T) {
		called := false
		proxy := agent.NewFunc("proxy", "proxy", func(context.Context, types.Message) ([]types.Message, error) {
			called = true
			return nil, nil
		})
		gate := NewGate(requiredPolicy(), newRegistry(proxy), nil, nil, nil)
		ctx := types.WithCaller(context.Background(), "proxy")
		_, err := gate.RequestApproval(ctx, types.ApprovalRequest{Action: "run_command"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
		assert.Contains(t, err.Error(), "cannot request approval from itself")
		assert.False(t, called)
		assert.Equal(t, 0, gate.Ledger().Counter())

		// 其他 Agent 不受影响
		_, err = gate.RequestApproval(types.WithCaller(context.Background(), "coder"), types.ApprovalRequest{Action: "run_command"})
		assert.True(t, types.IsErrorCode(err, types.ErrNoApprovalDecision))
		assert.True(t, called)
	})

	t.Run("proxy fails", func(t *testing.T) {
		boom := errors.New("boom")
		proxy := agent.NewFunc("proxy", "proxy", func(context.Context, types.Message) ([]types.Message, error) {
			return nil, boom
		})
		gate := NewGate(requiredPolicy(), newRegistry(proxy), nil, nil, nil)
		_, err := gate.RequestApproval(context.Background(), types.ApprovalRequest{Action: "run_command"})
		require.ErrorIs(t, err, boom)
		assert.True(t, types.IsErrorCode(err, types.ErrAgentFailure))
	})
}

func TestGate_UsesDeliverer(t *testing.T) {
	delivered := 0
	deliver := DeliverFunc(func(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error) {
		delivered++
		return []types.Message{decisionReply(msg.Metadata[types.MetaApprovalRequestID].(string), true, "carol")}, nil
	})
	proxy := agent.NewFunc("proxy", "proxy", nil)
	gate := NewGate(requiredPolicy(), newRegistry(proxy), deliver, NewLedger(), nil)

	d, err := gate.RequestApproval(context.Background(), types.ApprovalRequest{Action: "vcs_commit"})
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Equal(t, "carol", d.Approver)
	assert.Equal(t, 1, delivered)
}

func TestExtractDecision(t *testing.T) {
	wrongType := decisionReply("approval-1", true, "x")
	wrongType.Metadata[types.MetaApproved] = "yes"
	noApprover := decisionReply("approval-1", true, "x")
	delete(noApprover.Metadata, types.MetaApprover)
	withNotes := decisionReply("approval-1", false, "dana")
	withNotes.Metadata[types.MetaNotes] = "later"

	tests := []struct {
		name      string
		responses []types.Message
		wantOK    bool
		want      types.ApprovalDecision
	}{
		{"empty", nil, false, types.ApprovalDecision{}},
		{"other id", []types.Message{decisionReply("approval-2", true, "x")}, false, types.ApprovalDecision{}},
		{"mistyped approved skipped", []types.Message{wrongType}, false, types.ApprovalDecision{}},
		{"missing approver skipped", []types.Message{noApprover}, false, types.ApprovalDecision{}},
		{"notes carried", []types.Message{withNotes}, true, types.ApprovalDecision{Approved: false, Approver: "dana", Notes: "later"}},
		{
			"first match wins",
			[]types.Message{wrongType, decisionReply("approval-1", false, "first"), decisionReply("approval-1", true, "second")},
			true,
			types.ApprovalDecision{Approved: false, Approver: "first"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDecision("approval-1", tt.responses)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
