package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/types"
)

func TestWorkflowState_JSONFields(t *testing.T) {
	state := &WorkflowState{TaskID: "t1", TaskDescription: "d", InitialAgentID: "A"}
	data, err := state.Encode()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"task_id", "task_description", "initial_agent_id", "pending_messages",
		"history", "messages_processed", "approval_counter", "pending_approvals",
	} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, []any{}, raw["pending_messages"])
	assert.Equal(t, map[string]any{}, raw["pending_approvals"])
}

func TestDecodeState_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"wrong type", `{"task_id": 5}`},
		{"missing task id", `{"initial_agent_id": "A"}`},
		{"missing initial agent", `{"task_id": "t"}`},
		{"negative processed", `{"task_id": "t", "initial_agent_id": "A", "messages_processed": -1}`},
		{"pending without recipient", `{"task_id": "t", "initial_agent_id": "A", "pending_messages": [{"sender": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeState([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrMalformedCheckpoint))
		})
	}
}

func TestWorkflowState_Summary(t *testing.T) {
	state := &WorkflowState{TaskID: "t1", InitialAgentID: "A", MessagesProcessed: 3}
	assert.Contains(t, state.Summary(), "task=t1")
	assert.Contains(t, state.Summary(), "processed=3")
}

// =============================================================================
// 🎲 属性测试
// =============================================================================

// drawValue returns a JSON-compatible value whose decoded form is identical:
// integers are int64 and floats are never integral.
func drawValue(t *rapid.T, label string, depth int) any {
	kinds := []string{"string", "bool", "int", "float"}
	if depth < 2 {
		kinds = append(kinds, "map", "slice")
	}
	switch rapid.SampledFrom(kinds).Draw(t, label+"_kind") {
	case "string":
		return rapid.String().Draw(t, label+"_s")
	case "bool":
		return rapid.Bool().Draw(t, label+"_b")
	case "int":
		return rapid.Int64().Draw(t, label+"_i")
	case "float":
		f := rapid.Float64Range(-1e6, 1e6).Draw(t, label+"_f")
		if f == math.Trunc(f) {
			f += 0.5
		}
		return f
	case "map":
		m := map[string]any{}
		for i, k := range rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,4}`), 0, 3).Draw(t, label+"_keys") {
			m[k] = drawValue(t, fmt.Sprintf("%s_m%d", label, i), depth+1)
		}
		return m
	default:
		n := rapid.IntRange(0, 3).Draw(t, label+"_len")
		out := make([]any, n)
		for i := range out {
			out[i] = drawValue(t, fmt.Sprintf("%s_e%d", label, i), depth+1)
		}
		return out
	}
}

func drawMetadata(t *rapid.T, label string) types.Metadata {
	keys := rapid.SliceOfN(rapid.StringMatching(`[a-z_]{1,8}`), 0, 4).Draw(t, label+"_keys")
	md := types.Metadata{}
	for i, k := range keys {
		md[k] = drawValue(t, fmt.Sprintf("%s_v%d", label, i), 0)
	}
	return md
}

func drawMessages(t *rapid.T, label string) []types.Message {
	n := rapid.IntRange(0, 5).Draw(t, label+"_len")
	out := make([]types.Message, n)
	for i := range out {
		out[i] = types.Message{
			Sender:    rapid.StringMatching(`[a-z]{1,6}`).Draw(t, fmt.Sprintf("%s_sender%d", label, i)),
			Recipient: rapid.StringMatching(`[a-z]{1,6}`).Draw(t, fmt.Sprintf("%s_recipient%d", label, i)),
			Content:   rapid.String().Draw(t, fmt.Sprintf("%s_content%d", label, i)),
			Metadata:  drawMetadata(t, fmt.Sprintf("%s_md%d", label, i)),
		}
	}
	return out
}

func TestWorkflowState_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		approvals := map[string]types.ApprovalRequest{}
		for i := range rapid.IntRange(0, 3).Draw(t, "approvals") {
			approvals[fmt.Sprintf("approval-%d", i+1)] = types.ApprovalRequest{
				Action:      rapid.SampledFrom([]string{hitl.ToolRunCommand, hitl.ToolVCSCommit}).Draw(t, fmt.Sprintf("action%d", i)),
				Description: rapid.String().Draw(t, fmt.Sprintf("desc%d", i)),
				Metadata:    drawMetadata(t, fmt.Sprintf("approval_md%d", i)),
			}
		}
		state := &WorkflowState{
			TaskID:            rapid.StringMatching(`[a-z0-9-]{1,12}`).Draw(t, "task_id"),
			TaskDescription:   rapid.String().Draw(t, "description"),
			InitialAgentID:    rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "initial"),
			PendingMessages:   drawMessages(t, "pending"),
			History:           drawMessages(t, "history"),
			MessagesProcessed: rapid.IntRange(0, 1000).Draw(t, "processed"),
			ApprovalCounter:   rapid.IntRange(0, 1000).Draw(t, "counter"),
			PendingApprovals:  approvals,
		}

		data, err := state.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeState(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		assert.Equal(t, state, decoded)

		again, err := decoded.Encode()
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		assert.JSONEq(t, string(data), string(again))
	})
}

// 对任意切分点 k：run(k) + resume 与一次性运行结果一致
func TestProperty_SplitResumeEquivalence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("split-resume equals uninterrupted run", prop.ForAll(
		func(length, fanout, k int) bool {
			build := func() *Orchestrator {
				o, err := New(hitl.DefaultPolicy(), nil)
				if err != nil {
					t.Logf("new: %v", err)
					return nil
				}
				registerBranchingCrew(o, length, fanout)
				return o
			}
			task := types.Task{ID: "split", Description: "go", InitialAgentID: "n0"}
			ctx := context.Background()

			full, err := build().Run(ctx, task, 10_000)
			if err != nil {
				t.Logf("full run: %v", err)
				return false
			}

			first := build()
			partial, err := first.Run(ctx, task, k)
			if err != nil {
				t.Logf("partial run: %v", err)
				return false
			}
			if partial.Completed {
				return equalResults(t, full, partial)
			}

			data, err := first.Snapshot(task).Encode()
			if err != nil {
				return false
			}
			state, err := DecodeState(data)
			if err != nil {
				return false
			}
			resumed, err := build().Resume(ctx, state, task, 10_000)
			if err != nil {
				t.Logf("resume: %v", err)
				return false
			}
			return equalResults(t, full, resumed)
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 3),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// registerBranchingCrew builds agents n0..n(length-1). Each forwards to the next
// node fanout times, so batches grow and several messages share a recipient.
func registerBranchingCrew(o *Orchestrator, length, fanout int) {
	for i := 0; i < length; i++ {
		id := fmt.Sprintf("n%d", i)
		next := fmt.Sprintf("n%d", i+1)
		last := i == length-1
		o.RegisterAgent(newStepAgent(id, next, fanout, last))
	}
}

func equalResults(t *testing.T, want, got *types.TaskResult) bool {
	a, _ := json.Marshal(want)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Logf("results differ:\nwant %s\ngot  %s", a, b)
		return false
	}
	return true
}
