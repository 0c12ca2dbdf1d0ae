package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/devcrew/tools"
)

func initRepo(t *testing.T) (string, *Service) {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	svc, err := Open(dir, Author{Name: "tester", Email: "tester@example.com"})
	require.NoError(t, err)
	return dir, svc
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCommitTool_RequiresApproval(t *testing.T) {
	dir, svc := initRepo(t)
	writeFile(t, dir, "a.txt", "one\n")

	res, err := (&CommitTool{svc: svc}).Execute(context.Background(), map[string]any{"message": "init"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Commit requires explicit approval.", res.Error)

	st, err := svc.Status()
	require.NoError(t, err)
	assert.False(t, st.Clean)
}

func TestService_CommitStatusDiffBranch(t *testing.T) {
	dir, svc := initRepo(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "one\n")

	st, err := svc.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"?? a.txt"}, st.Entries)

	res, err := (&CommitTool{svc: svc}).Execute(ctx, map[string]any{
		"message":  "  initial commit  ",
		"approved": true,
		"approver": "alice",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	out := res.Output.(map[string]any)
	assert.Len(t, out["commit_hash"], 40)
	assert.Equal(t, "initial commit", out["message"])
	assert.Equal(t, "alice", out["approver"])

	st, err = svc.Status()
	require.NoError(t, err)
	assert.True(t, st.Clean)

	writeFile(t, dir, "a.txt", "one\ntwo\n")
	diffRes, err := (&DiffTool{svc: svc}).Execute(ctx, map[string]any{"paths": []any{"a.txt"}})
	require.NoError(t, err)
	d := diffRes.Output.(map[string]any)["diff"].(string)
	assert.Contains(t, d, "--- a/a.txt")
	assert.Contains(t, d, "+two\n")
	assert.NotContains(t, d, "+one")

	filtered, err := svc.Diff([]string{"other"})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	branchRes, err := (&BranchTool{svc: svc}).Execute(ctx, map[string]any{"name": "feature/x"})
	require.NoError(t, err)
	require.True(t, branchRes.Success, branchRes.Error)
	current, err := svc.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "feature/x", current)

	again, err := (&BranchTool{svc: svc}).Execute(ctx, map[string]any{"name": "feature/x", "checkout": false})
	require.NoError(t, err)
	assert.False(t, again.Success)
}

func TestTools_InvalidArguments(t *testing.T) {
	_, svc := initRepo(t)
	ctx := context.Background()

	_, err := (&CommitTool{svc: svc}).Execute(ctx, map[string]any{"approved": true, "message": " "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = (&DiffTool{svc: svc}).Execute(ctx, map[string]any{"paths": "a.txt"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = (&BranchTool{svc: svc}).Execute(ctx, map[string]any{"name": ""})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegister(t *testing.T) {
	_, svc := initRepo(t)
	reg := tools.NewRegistry(nil)
	require.NoError(t, Register(reg, svc))
	for _, name := range []string{"vcs_status", "vcs_diff", "vcs_commit", "vcs_create_branch"} {
		assert.True(t, reg.Has(name), name)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir(), Author{})
	assert.Error(t, err)
}
