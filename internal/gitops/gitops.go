// Package gitops snapshots a ledger data directory into a git repository.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNothingToCommit is returned by Snapshot when the tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// ignored keeps secrets and half-written files out of history.
const ignored = ".env\n.*.tmp\n.ledger.lock\nTransactions_*.csv\n"

// Repo is a data directory under git.
type Repo struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Available reports whether a git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Init initializes the repository and writes a .gitignore. It is a no-op
// for an existing repository.
func (r Repo) Init(ctx context.Context) error {
	if IsRepo(r.Dir) {
		return nil
	}
	if _, err := r.run(ctx, "init", "--quiet"); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.Dir, ".gitignore"), []byte(ignored), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}

// Dirty reports whether the working tree has uncommitted changes.
func (r Repo) Dirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Snapshot stages everything and commits it. Returns the short commit hash.
func (r Repo) Snapshot(ctx context.Context, message string) (string, error) {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return "", err
	}
	dirty, err := r.Dirty(ctx)
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", ErrNothingToCommit
	}

	author := fmt.Sprintf("%s <%s>", r.AuthorName, r.AuthorEmail)
	if _, err := r.run(ctx, "commit", "--quiet", "-m", message, "--author", author); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// LastMessage returns the subject of the latest commit.
func (r Repo) LastMessage(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "log", "--format=%s", "-1")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	// The committer identity may be missing on fresh machines.
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+r.AuthorName,
		"GIT_COMMITTER_EMAIL="+r.AuthorEmail,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
