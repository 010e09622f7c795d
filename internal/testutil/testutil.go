package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TempGitRepo creates a temporary git repository for testing
type TempGitRepo struct {
	Path string
	T    *testing.T
}

// NewTempGitRepo creates a new temporary git repository with an initial commit
func NewTempGitRepo(t *testing.T) *TempGitRepo {
	t.Helper()

	repo := NewEmptyGitRepo(t)
	repo.CreateFile("README.md", "# Test Repository\n")
	repo.Commit("Initial commit")
	return repo
}

// NewEmptyGitRepo creates a temporary git repository without any commit
func NewEmptyGitRepo(t *testing.T) *TempGitRepo {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "epci-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	// Resolve symlinked temp roots so paths compare equal to the worktree root
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	repo := &TempGitRepo{Path: tmpDir, T: t}

	// Configure git user (required for commits)
	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		if _, err := repo.run(args...); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("failed to set up git repo (git %s): %v", strings.Join(args, " "), err)
		}
	}

	return repo
}

// Cleanup removes the temporary git repository
func (r *TempGitRepo) Cleanup() {
	r.T.Helper()
	if err := os.RemoveAll(r.Path); err != nil {
		r.T.Errorf("failed to cleanup temp repo: %v", err)
	}
}

// File returns the absolute path of a file in the repository
func (r *TempGitRepo) File(name string) string {
	return filepath.Join(r.Path, filepath.FromSlash(name))
}

// CreateFile creates a file in the repository
func (r *TempGitRepo) CreateFile(name, content string) {
	r.T.Helper()
	path := r.File(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// Commit stages and commits all changes
func (r *TempGitRepo) Commit(message string) {
	r.T.Helper()
	r.CommitAs("Test User", message)
}

// CommitAs stages and commits all changes with the given author name
func (r *TempGitRepo) CommitAs(author, message string) {
	r.T.Helper()

	if out, err := r.run("add", "."); err != nil {
		r.T.Fatalf("failed to stage files: %v: %s", err, out)
	}

	authorArg := "--author=" + author + " <test@example.com>"
	if out, err := r.run("commit", authorArg, "-m", message); err != nil {
		r.T.Fatalf("failed to commit: %v: %s", err, out)
	}
}

// HeadHash returns the full hash of HEAD
func (r *TempGitRepo) HeadHash() string {
	r.T.Helper()

	out, err := r.run("rev-parse", "HEAD")
	if err != nil {
		r.T.Fatalf("failed to resolve HEAD: %v", err)
	}
	return strings.TrimSpace(out)
}

// CurrentBranch returns the name of the checked out branch
func (r *TempGitRepo) CurrentBranch() string {
	r.T.Helper()

	out, err := r.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		r.T.Fatalf("failed to resolve branch: %v: %s", err, out)
	}
	return strings.TrimSpace(out)
}

// Branch creates a new branch at HEAD and checks it out
func (r *TempGitRepo) Branch(name string) {
	r.T.Helper()
	if out, err := r.run("checkout", "-q", "-b", name); err != nil {
		r.T.Fatalf("failed to create branch %s: %v: %s", name, err, out)
	}
}

// Checkout switches to an existing branch
func (r *TempGitRepo) Checkout(name string) {
	r.T.Helper()
	if out, err := r.run("checkout", "-q", name); err != nil {
		r.T.Fatalf("failed to checkout %s: %v: %s", name, err, out)
	}
}

// MergeNoFF merges branch into the current branch with a merge commit
func (r *TempGitRepo) MergeNoFF(branch, message string) {
	r.T.Helper()
	if out, err := r.run("merge", "--no-ff", "-m", message, branch); err != nil {
		r.T.Fatalf("failed to merge %s: %v: %s", branch, err, out)
	}
}

func (r *TempGitRepo) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	output, err := cmd.CombinedOutput()
	return string(output), err
}
