package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) Repo {
	t.Helper()
	if !Available() {
		t.Skip("git not installed")
	}
	r := Repo{Dir: t.TempDir(), AuthorName: "Test Author", AuthorEmail: "test@example.com"}
	require.NoError(t, r.Init(context.Background()))
	return r
}

func TestInit(t *testing.T) {
	r := newRepo(t)

	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	require.NoError(t, err, ".git directory should exist")

	data, err := os.ReadFile(filepath.Join(r.Dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".env")
	assert.Contains(t, string(data), ".ledger.lock")

	// Second call leaves the repository alone.
	require.NoError(t, r.Init(context.Background()))
}

func TestIsRepo(t *testing.T) {
	if !Available() {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, Repo{Dir: dir}.Init(context.Background()))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
}

func TestSnapshot(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, "accounts.csv"), []byte("account_number\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, ".env"), []byte("LEDGER_PASSWORD=x\n"), 0o644))

	hash, err := r.Snapshot(ctx, "backup: test commit")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	msg, err := r.LastMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup: test commit", msg)

	// Verify author.
	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = r.Dir
	out, err := authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Test Author <test@example.com>")

	// .env is never committed.
	files := exec.Command("git", "ls-files")
	files.Dir = r.Dir
	out, err = files.Output()
	require.NoError(t, err)
	assert.NotContains(t, string(out), ".env")
	assert.Contains(t, string(out), "accounts.csv")
}

func TestSnapshotClean(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Snapshot(ctx, "first")
	require.NoError(t, err, ".gitignore is the first change")

	_, err = r.Snapshot(ctx, "second")
	assert.ErrorIs(t, err, ErrNothingToCommit)

	dirty, err := r.Dirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}
