package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDocker writes a docker stand-in that echoes its arguments one per line.
// "rm" invocations are appended to removed.log next to the script.
func fakeDocker(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"rm\" ]; then echo \"$@\" >> " + filepath.Join(dir, "removed.log") + "; exit 0; fi\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNewDockerRunner_RequiresImage(t *testing.T) {
	_, err := NewDockerRunner(t.TempDir(), DockerConfig{}, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestDockerRunner_BuildsContainerCommand(t *testing.T) {
	ws := newWorkspace(t, true)
	require.NoError(t, os.MkdirAll(filepath.Join(ws.Root(), "svc", "api"), 0o755))

	runner, err := NewDockerRunner(ws.Root(), DockerConfig{
		Image:           "golang:1.24",
		Binary:          fakeDocker(t, `printf '%s\n' "$@"`),
		NetworkDisabled: true,
		MaxMemoryMB:     256,
	}, 10*time.Second, zap.NewNop())
	require.NoError(t, err)

	tool := NewRunCommandTool(runner, ws)
	res, err := tool.Execute(context.Background(), map[string]any{
		"command": []string{"go", "test", "./..."},
		"cwd":     "svc/api",
		"env":     map[string]any{"B": "2", "A": "1"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	out := res.Output.(CommandResult)
	assert.Equal(t, []string{"go", "test", "./..."}, out.Command)
	assert.Equal(t, 0, out.ExitCode)

	args := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	require.GreaterOrEqual(t, len(args), 4)
	assert.Equal(t, []string{"run", "--rm", "--name"}, args[:3])
	assert.True(t, strings.HasPrefix(args[3], "devcrew_"))

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-v "+ws.Root()+":/workspace")
	assert.Contains(t, joined, "-w /workspace/svc/api")
	assert.Contains(t, joined, "--network none")
	assert.Contains(t, joined, "--memory 256m")
	assert.Contains(t, joined, "-e A=1 -e B=2")
	assert.True(t, strings.HasSuffix(joined, "golang:1.24 go test ./..."))
}

func TestDockerRunner_DefaultsToWorkspaceMount(t *testing.T) {
	ws := newWorkspace(t, true)
	runner, err := NewDockerRunner(ws.Root(), DockerConfig{
		Image:  "alpine",
		Binary: fakeDocker(t, `printf '%s\n' "$@"`),
	}, 0, nil)
	require.NoError(t, err)

	out, err := runner.Run(context.Background(), CommandRequest{Command: []string{"ls"}})
	require.NoError(t, err)
	assert.Contains(t, out.Stdout, "-w\n/workspace\n")
	assert.NotContains(t, out.Stdout, "--network")
}

func TestDockerRunner_ExitCodeIsNotAnError(t *testing.T) {
	ws := newWorkspace(t, true)
	runner, err := NewDockerRunner(ws.Root(), DockerConfig{
		Image:  "alpine",
		Binary: fakeDocker(t, "echo failing >&2; exit 4"),
	}, 0, zap.NewNop())
	require.NoError(t, err)

	out, err := runner.Run(context.Background(), CommandRequest{Command: []string{"false"}})
	require.NoError(t, err)
	assert.Equal(t, 4, out.ExitCode)
	assert.Equal(t, "failing\n", out.Stderr)
}

func TestDockerRunner_RejectsDirOutsideWorkspace(t *testing.T) {
	ws := newWorkspace(t, true)
	runner, err := NewDockerRunner(ws.Root(), DockerConfig{Image: "alpine", Binary: fakeDocker(t, "exit 0")}, 0, zap.NewNop())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), CommandRequest{
		Command: []string{"ls"},
		Dir:     filepath.Dir(ws.Root()),
	})
	assert.ErrorContains(t, err, "outside the workspace root")
}

func TestDockerRunner_TimeoutRemovesContainer(t *testing.T) {
	ws := newWorkspace(t, true)
	binary := fakeDocker(t, "exec sleep 5")
	runner, err := NewDockerRunner(ws.Root(), DockerConfig{Image: "alpine", Binary: binary}, 0, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	_, _ = runner.Run(context.Background(), CommandRequest{Command: []string{"sleep", "60"}, Timeout: 100 * time.Millisecond})
	assert.Less(t, time.Since(start), 4*time.Second)

	removed, err := os.ReadFile(filepath.Join(filepath.Dir(binary), "removed.log"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(removed), "rm -f devcrew_"))
}
