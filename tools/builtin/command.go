package builtin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/BaSui01/devcrew/internal/workspace"
	"github.com/BaSui01/devcrew/types"
)

// CommandRequest describes one process execution.
type CommandRequest struct {
	Command []string
	Dir     string
	Timeout time.Duration
	Env     map[string]string
}

// CommandResult captures a finished process.
type CommandResult struct {
	Command  []string `json:"command"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	ExitCode int      `json:"exit_code"`
	Duration float64  `json:"duration_s"`
}

// CommandRunner executes commands.
type CommandRunner interface {
	Run(ctx context.Context, req CommandRequest) (CommandResult, error)
}

// LocalRunner runs commands on the local host.
type LocalRunner struct {
	DefaultTimeout time.Duration
}

// Run executes req and captures its output. A non-zero exit status is not an error.
func (r LocalRunner) Run(ctx context.Context, req CommandRequest) (CommandResult, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout, r.DefaultTimeout)
	defer cancel()

	var env []string
	if len(req.Env) > 0 {
		env = append(os.Environ(), envPairs(req.Env)...)
	}
	return runProcess(ctx, req.Command, req.Command[0], req.Command[1:], req.Dir, env)
}

func withTimeout(ctx context.Context, timeout, fallback time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = fallback
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// envPairs renders env as sorted KEY=VALUE pairs.
func envPairs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}

// runProcess starts name with args and reports the result under command.
func runProcess(ctx context.Context, command []string, name string, args []string, dir string, env []string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := CommandResult{
		Command:  append([]string(nil), command...),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start).Seconds(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = 1
		return result, err
	}
	return result, nil
}

// RunCommandTool executes commands inside the workspace.
type RunCommandTool struct {
	runner    CommandRunner
	workspace *workspace.Manager
}

// NewRunCommandTool creates the run_command tool.
func NewRunCommandTool(runner CommandRunner, ws *workspace.Manager) *RunCommandTool {
	return &RunCommandTool{runner: runner, workspace: ws}
}

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Run a command using the configured execution engine."
}
func (t *RunCommandTool) InputSchema() map[string]any {
	return map[string]any{
		"command":   "list[str]",
		"cwd":       "string | null",
		"timeout_s": "int | null",
		"env":       "dict[str, str] | null",
	}
}

// Execute runs the command. Failing to start the process is reported as a failed result.
func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any) (types.ToolResult, error) {
	command, ok := stringList(args["command"])
	if !ok || len(command) == 0 {
		return types.ToolResult{}, invalidf("'command' must be a non-empty list of strings")
	}
	cwd, err := optionalString(args, "cwd")
	if err != nil {
		return types.ToolResult{}, err
	}
	timeout, err := optionalSeconds(args, "timeout_s")
	if err != nil {
		return types.ToolResult{}, err
	}
	env, err := optionalStringMap(args, "env")
	if err != nil {
		return types.ToolResult{}, err
	}

	dir := t.workspace.Root()
	if cwd != "" {
		if dir, err = t.workspace.Resolve(cwd); err != nil {
			return types.NewToolFailure(t.Name(), err.Error()), nil
		}
	}

	result, err := t.runner.Run(ctx, CommandRequest{Command: command, Dir: dir, Timeout: timeout, Env: env})
	if err != nil {
		if result.Stderr == "" {
			result.Stderr = err.Error()
		}
		return types.ToolResult{Name: t.Name(), Success: false, Output: result, Error: err.Error()}, nil
	}
	return types.NewToolSuccess(t.Name(), result), nil
}
