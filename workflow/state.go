package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/BaSui01/devcrew/types"
)

// WorkflowState is the serializable snapshot of an in-progress run. It holds
// everything needed to continue the run after a superstep boundary.
type WorkflowState struct {
	TaskID            string                           `json:"task_id"`
	TaskDescription   string                           `json:"task_description"`
	InitialAgentID    string                           `json:"initial_agent_id"`
	PendingMessages   []types.Message                  `json:"pending_messages"`
	History           []types.Message                  `json:"history"`
	MessagesProcessed int                              `json:"messages_processed"`
	ApprovalCounter   int                              `json:"approval_counter"`
	PendingApprovals  map[string]types.ApprovalRequest `json:"pending_approvals"`
}

// Encode serializes the state to JSON.
func (s *WorkflowState) Encode() ([]byte, error) {
	out := s.normalized()
	data, err := json.Marshal(out)
	if err != nil {
		return nil, types.NewError(types.ErrPersistence, "failed to encode workflow state").WithCause(err)
	}
	return data, nil
}

// DecodeState parses and validates a checkpoint payload.
func DecodeState(data []byte) (*WorkflowState, error) {
	var state WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, types.NewError(types.ErrMalformedCheckpoint, "failed to decode workflow state").WithCause(err)
	}
	out := state.normalized()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the structural invariants of a decoded state.
func (s *WorkflowState) Validate() error {
	var errs []error
	if s.TaskID == "" {
		errs = append(errs, errors.New("task_id is required"))
	}
	if s.InitialAgentID == "" {
		errs = append(errs, errors.New("initial_agent_id is required"))
	}
	if s.MessagesProcessed < 0 {
		errs = append(errs, fmt.Errorf("messages_processed must be >= 0, got %d", s.MessagesProcessed))
	}
	if s.ApprovalCounter < 0 {
		errs = append(errs, fmt.Errorf("approval_counter must be >= 0, got %d", s.ApprovalCounter))
	}
	for i, msg := range s.PendingMessages {
		if msg.Recipient == "" {
			errs = append(errs, fmt.Errorf("pending_messages[%d] has no recipient", i))
		}
	}
	if len(errs) > 0 {
		return types.NewError(types.ErrMalformedCheckpoint, "invalid workflow state").WithCause(errors.Join(errs...))
	}
	return nil
}

// Matches reports a CHECKPOINT_MISMATCH error when the state was not taken
// from task.
func (s *WorkflowState) Matches(task types.Task) error {
	if s.TaskID != task.ID {
		return types.Errorf(types.ErrCheckpointMismatch,
			"checkpoint task_id '%s' does not match task '%s'", s.TaskID, task.ID)
	}
	if s.InitialAgentID != task.InitialAgentID {
		return types.Errorf(types.ErrCheckpointMismatch,
			"checkpoint initial_agent_id '%s' does not match task initial agent '%s'",
			s.InitialAgentID, task.InitialAgentID)
	}
	return nil
}

// Summary is a short human-readable description of the state.
func (s *WorkflowState) Summary() string {
	return fmt.Sprintf("task=%s initial_agent=%s processed=%d pending=%d history=%d approvals_pending=%d approval_counter=%d",
		s.TaskID, s.InitialAgentID, s.MessagesProcessed, len(s.PendingMessages),
		len(s.History), len(s.PendingApprovals), s.ApprovalCounter)
}

// normalized returns a copy whose collections are non-nil so the JSON form
// always carries arrays and objects rather than null.
func (s *WorkflowState) normalized() *WorkflowState {
	out := *s
	out.PendingMessages = nonNilMessages(s.PendingMessages)
	out.History = nonNilMessages(s.History)
	out.PendingApprovals = maps.Clone(s.PendingApprovals)
	if out.PendingApprovals == nil {
		out.PendingApprovals = map[string]types.ApprovalRequest{}
	}
	return &out
}

func nonNilMessages(msgs []types.Message) []types.Message {
	if msgs == nil {
		return []types.Message{}
	}
	return slices.Clone(msgs)
}
