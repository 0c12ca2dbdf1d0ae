package evaluation

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/devcrew/types"
)

// Task is one evaluation case.
type Task struct {
	ID             string         `yaml:"id" json:"id"`
	Description    string         `yaml:"description" json:"description"`
	InitialAgentID string         `yaml:"initial_agent_id" json:"initial_agent_id"`
	Metadata       types.Metadata `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	// ExpectedCompleted 期望任务在预算内完成，缺省为 true
	ExpectedCompleted *bool `yaml:"expected_completed,omitempty" json:"expected_completed,omitempty"`
	// MaxSteps 总消息预算，0 使用编排器默认值
	MaxSteps int           `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ExpectsCompletion reports whether the task should finish within its budget.
func (t Task) ExpectsCompletion() bool {
	return t.ExpectedCompleted == nil || *t.ExpectedCompleted
}

// TaskSpec converts the case into an orchestrator task.
func (t Task) TaskSpec() types.Task {
	return types.Task{
		ID:              t.ID,
		Description:     t.Description,
		InitialAgentID:  t.InitialAgentID,
		InitialMetadata: t.Metadata,
	}
}

// Validate checks the fields a run needs.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.InitialAgentID == "" {
		return fmt.Errorf("task %s: initial_agent_id is required", t.ID)
	}
	if t.MaxSteps < 0 {
		return fmt.Errorf("task %s: max_steps must be non-negative", t.ID)
	}
	return nil
}

// Suite is a named list of tasks with shared defaults.
type Suite struct {
	Name string `yaml:"name" json:"name"`
	// 任务未指定时使用的默认值
	InitialAgentID string        `yaml:"initial_agent_id,omitempty" json:"initial_agent_id,omitempty"`
	MaxSteps       int           `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Tasks          []Task        `yaml:"tasks" json:"tasks"`
}

// Resolved returns the tasks with suite defaults filled in.
func (s *Suite) Resolved() []Task {
	out := make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.InitialAgentID == "" {
			t.InitialAgentID = s.InitialAgentID
		}
		if t.MaxSteps == 0 {
			t.MaxSteps = s.MaxSteps
		}
		if t.Timeout == 0 {
			t.Timeout = s.Timeout
		}
		out[i] = t
	}
	return out
}

// ParseSuite decodes a YAML (or JSON) suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse evaluation suite: %w", err)
	}
	if len(s.Tasks) == 0 {
		return nil, errors.New("evaluation suite has no tasks")
	}
	seen := make(map[string]struct{}, len(s.Tasks))
	for _, t := range s.Resolved() {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return &s, nil
}

// LoadSuite reads a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evaluation suite: %w", err)
	}
	return ParseSuite(data)
}
