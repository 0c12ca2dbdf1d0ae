package declarative

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// YAMLLoader tests
// ============================================================

func TestYAMLLoader_LoadFile_YAML(t *testing.T) {
	content := `
id: coder
role: Writes code
description: Implements the task
max_replies: 2
tool_calls:
  - tool: run_command
    description: "Run tests for {{task_id}}"
    args:
      command: go
      args: ["test", "./..."]
replies:
  - to: reviewer
    content: "Done with {{content}}"
    when: tool_success
  - content: "Tests failed: {{tool.run_command.error}}"
    when: tool_failure
metadata:
  team: core
`
	path := writeTemp(t, "agent.yaml", content)
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "coder", def.ID)
	assert.Equal(t, "Writes code", def.Role)
	assert.Equal(t, "Implements the task", def.Description)
	assert.Equal(t, 2, def.MaxReplies)
	require.Len(t, def.ToolCalls, 1)
	assert.Equal(t, "run_command", def.ToolCalls[0].Tool)
	assert.Equal(t, "go", def.ToolCalls[0].Args["command"])
	assert.Equal(t, []any{"test", "./..."}, def.ToolCalls[0].Args["args"])
	require.Len(t, def.Replies, 2)
	assert.Equal(t, "reviewer", def.Replies[0].To)
	assert.Equal(t, WhenToolSuccess, def.Replies[0].When)
	assert.Empty(t, def.Replies[1].To)
	assert.Equal(t, "core", def.Metadata["team"])
}

func TestYAMLLoader_LoadFile_JSON(t *testing.T) {
	content := `{
  "id": "reviewer",
  "role": "Reviews code",
  "replies": [{"to": "coder", "content": "LGTM", "metadata": {"approved": true}}]
}`
	path := writeTemp(t, "agent.json", content)
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "reviewer", def.ID)
	assert.Equal(t, "Reviews code", def.Role)
	require.Len(t, def.Replies, 1)
	assert.Equal(t, "coder", def.Replies[0].To)
	assert.Equal(t, true, def.Replies[0].Metadata["approved"])
}

func TestYAMLLoader_LoadFile_YMLExtension(t *testing.T) {
	path := writeTemp(t, "agent.yml", "id: yml-agent\n")
	loader := NewYAMLLoader()

	def, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "yml-agent", def.ID)
}

func TestYAMLLoader_LoadFile_NotFound(t *testing.T) {
	loader := NewYAMLLoader()
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read agent definition file")
}

func TestYAMLLoader_LoadFile_UnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "agent.toml", "id = 'test'")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestYAMLLoader_LoadFile_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "bad.yaml", "{{invalid yaml")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestYAMLLoader_LoadFile_InvalidJSON(t *testing.T) {
	path := writeTemp(t, "bad.json", "{invalid json}")
	loader := NewYAMLLoader()

	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse JSON")
}

func TestYAMLLoader_LoadBytes_UnsupportedFormat(t *testing.T) {
	loader := NewYAMLLoader()
	_, err := loader.LoadBytes([]byte("data"), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestYAMLLoader_LoadBytes_MinimalDefinition(t *testing.T) {
	loader := NewYAMLLoader()

	def, err := loader.LoadBytes([]byte("id: minimal"), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "minimal", def.ID)
	assert.Empty(t, def.Role)
	assert.Empty(t, def.ToolCalls)
	assert.Empty(t, def.Replies)
	assert.Zero(t, def.MaxReplies)
}

func TestYAMLLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("id: second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"id": "first"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	defs, err := NewYAMLLoader().LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "first", defs[0].ID)
	assert.Equal(t, "second", defs[1].ID)
}

func TestYAMLLoader_LoadDir_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("{{invalid"), 0644))

	_, err := NewYAMLLoader().LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"agent.yaml", "yaml"},
		{"agent.YAML", "yaml"},
		{"agent.yml", "yaml"},
		{"agent.json", "json"},
		{"agent.JSON", "json"},
		{"agent.toml", ""},
		{"agent", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFormat(tt.path))
		})
	}
}

// ============================================================
// Helper
// ============================================================

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
