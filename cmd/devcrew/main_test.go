package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/config"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/types"
)

const crewYAML = `
approvals:
  mode: %s
  require_execution_approval: true
  proxy_decision: %s
orchestrator:
  max_steps: 20
checkpoint:
  type: file
  dir: %s
memory:
  type: memory
workspace:
  root: %s
  allow_write: true
vcs:
  enabled: false
log:
  level: error
  format: json
  output_paths: ["stderr"]
agents:
  - id: planner
    role: Plans work
    replies:
      - to: coder
        content: "Plan: {{content}}"
  - id: coder
    role: Writes code
    tool_calls:
      - tool: write_file
        args:
          path: "notes/{{task_id}}.md"
          content: "{{content}}"
      - tool: run_command
        description: "Run echo for {{task_id}}"
        args:
          command: ["echo", "hi"]
    replies:
      - to: reviewer
        content: "ready for review"
        when: tool_success
      - to: reviewer
        content: "blocked: {{tool.run_command.error}}"
        when: tool_failure
  - id: reviewer
    role: Reviews code
`

func writeCrewConfig(t *testing.T, mode, decision string) (cfgPath, workspaceDir string) {
	t.Helper()
	dir := t.TempDir()
	workspaceDir = filepath.Join(dir, "ws")
	require.NoError(t, os.MkdirAll(workspaceDir, 0o755))
	cfgPath = filepath.Join(dir, "devcrew.yaml")
	content := fmt.Sprintf(crewYAML, mode, decision, filepath.Join(dir, "checkpoints"), workspaceDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath, workspaceDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunInspectResume_Autonomous(t *testing.T) {
	cfgPath, ws := writeCrewConfig(t, "autonomous", "metadata")

	out, err := execute(t, "--config", cfgPath, "run", "--agent", "planner", "--task-id", "feat-1", "add", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Task feat-1 completed after 3 messages")
	assert.Contains(t, out, "planner -> coder: Plan: add login")
	assert.Contains(t, out, "coder -> reviewer: ready for review")

	written, err := os.ReadFile(filepath.Join(ws, "notes", "feat-1.md"))
	require.NoError(t, err)
	assert.Equal(t, "Plan: add login", string(written))

	out, err = execute(t, "--config", cfgPath, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "feat-1")
	assert.Contains(t, out, "planner")

	out, err = execute(t, "--config", cfgPath, "inspect", "feat-1", "--history")
	require.NoError(t, err)
	assert.Contains(t, out, "task=feat-1 initial_agent=planner processed=3 pending=0")
	assert.Contains(t, out, "History:")

	out, err = execute(t, "--config", cfgPath, "resume", "feat-1", "--json")
	require.NoError(t, err)
	var result types.TaskResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Completed)
	assert.Equal(t, 3, result.MessagesProcessed)
}

func TestRun_ApprovalRejected(t *testing.T) {
	cfgPath, _ := writeCrewConfig(t, "approval-required", "reject")

	out, err := execute(t, "--config", cfgPath, "run", "--agent", "planner", "--task-id", "feat-2", "--json", "ship it")
	require.NoError(t, err)

	var result types.TaskResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Completed)

	var blocked *types.Message
	for i := range result.History {
		if result.History[i].Sender == "coder" && result.History[i].Recipient == "reviewer" {
			blocked = &result.History[i]
		}
	}
	require.NotNil(t, blocked)
	assert.Equal(t, "blocked: Approval rejected by user: rejected by configuration", blocked.Content)
}

func TestRun_UnknownInitialAgent(t *testing.T) {
	cfgPath, _ := writeCrewConfig(t, "autonomous", "metadata")

	_, err := execute(t, "--config", cfgPath, "run", "--agent", "ghost", "hello")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownAgent))
}

func TestResume_MissingCheckpoint(t *testing.T) {
	cfgPath, _ := writeCrewConfig(t, "autonomous", "metadata")

	_, err := execute(t, "--config", cfgPath, "resume", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no checkpoint for task nope")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "devcrew "+Version)
}

func TestParseMetadata(t *testing.T) {
	meta, err := parseMetadata([]string{"ticket=JIRA-1", "approved=false", "retries=3", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{
		"ticket":   "JIRA-1",
		"approved": false,
		"retries":  3,
		"note":     "a=b",
	}, meta)

	_, err = parseMetadata([]string{"novalue"})
	require.Error(t, err)
	_, err = parseMetadata([]string{"=x"})
	require.Error(t, err)
}

func TestDecisionSource(t *testing.T) {
	ctx := context.Background()
	req := types.NewMessage("orchestrator", "user_proxy", "approve?")

	tests := []struct {
		decision string
		approved bool
		approver string
	}{
		{config.DecisionApprove, true, "alice"},
		{config.DecisionReject, false, "alice"},
		{config.DecisionMetadata, true, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			src := decisionSource(config.ApprovalsConfig{ProxyDecision: tt.decision, Approver: "alice"}, crewIO{})
			d, err := src.Decide(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, d.Approved)
			assert.Equal(t, tt.approver, d.Approver)
		})
	}
}

func TestPrintTools(t *testing.T) {
	var out bytes.Buffer
	policy := hitl.Policy{Mode: hitl.ModeApprovalRequired, RequireCommitApproval: true}
	require.NoError(t, printTools(&out, []tools.Descriptor{
		{Name: "read_file", Description: "Read a file."},
		{Name: "vcs_commit", Description: "Commit."},
	}, policy))

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[1], "read_file")
	assert.Contains(t, lines[1], "-")
	assert.Contains(t, lines[2], "vcs_commit")
	assert.Contains(t, lines[2], "required")
	assert.Contains(t, out.String(), "Mode: approval-required")
}

func TestBuildRegistry_AppliesRateLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = t.TempDir()
	cfg.VCS.Enabled = false
	cfg.Tools.RateLimits["not_a_tool"] = tools.RateLimitConfig{MaxCalls: 1, Window: 1}

	registry, err := buildRegistry(cfg, zap.NewNop())
	require.NoError(t, err)
	names := make([]string, 0)
	for _, d := range registry.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"file_exists", "file_summary", "index_file", "list_files",
		"read_file", "run_command", "search_code", "write_file",
	}, names)
}

func TestBuildRegistry_DockerRunner(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = t.TempDir()
	cfg.VCS.Enabled = false
	cfg.Retrieval.Enabled = false
	cfg.Workspace.Runner = config.RunnerDocker

	_, err := buildRegistry(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image is required")

	cfg.Workspace.Docker.Image = "alpine:3.20"
	registry, err := buildRegistry(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, registry.Has("run_command"))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t c", 10))
	assert.Equal(t, "abcdefg...", oneLine("abcdefghijklmnop", 10))
}

func TestEval_Suite(t *testing.T) {
	cfgPath, _ := writeCrewConfig(t, "autonomous", "metadata")
	suitePath := filepath.Join(filepath.Dir(cfgPath), "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
name: smoke
initial_agent_id: planner
tasks:
  - id: eval-full
    description: add login
  - id: eval-halt
    description: add logout
    max_steps: 2
    expected_completed: false
`), 0o644))

	out, err := execute(t, "--config", cfgPath, "eval", suitePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Suite smoke: 2 passed, 0 failed")
	assert.Contains(t, out, "eval-full")

	out, err = execute(t, "--config", cfgPath, "eval", suitePath, "--json", "--max-steps", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 evaluation tasks failed")

	var summary struct {
		Passed  int `json:"passed"`
		Failed  int `json:"failed"`
		Results []struct {
			TaskID string `json:"task_id"`
			Passed bool   `json:"passed"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &summary))
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Results[0].Passed)
	assert.True(t, summary.Results[1].Passed)
}

func TestCrewClose_ReleasesStores(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Workspace.Root = t.TempDir()
	cfg.VCS.Enabled = false
	cfg.Checkpoint.Type = "redis"
	cfg.Checkpoint.Redis.Addr = mr.Addr()
	cfg.Memory.Type = "redis"
	cfg.Memory.Redis.Addr = mr.Addr()

	c, err := buildCrew(ctx, cfg, nil, crewIO{in: strings.NewReader(""), out: &bytes.Buffer{}}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.checkpoints.Save(ctx, "t1", []byte("{}")))

	require.NoError(t, c.Close(ctx))
	assert.ErrorContains(t, c.checkpoints.Save(ctx, "t1", []byte("{}")), "closed")
	assert.ErrorContains(t, c.memory.AppendMessage(ctx, "t1", types.NewMessage("a", "b", "c")), "closed")
}
