package git

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btc-embedded/smart-testing-genai/internal/testutil"
)

func TestLastChange(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("test/x.epx", "profile v1")
	repo.CommitAs("J. Doe", "add profile")
	repo.CreateFile("model/m.slx", "model")
	repo.CommitAs("Someone Else", "add model")
	repo.CreateFile("test/x.epx", "profile v2")
	repo.CommitAs("J. Doe", "  fix  ")
	head := repo.HeadHash()
	repo.CreateFile("model/m.slx", "model v2")
	repo.CommitAs("Someone Else", "touch model")

	got, err := LastChange(repo.File("test/x.epx"))
	if err != nil {
		t.Fatalf("LastChange failed: %v", err)
	}

	if !strings.HasPrefix(got, "[") {
		t.Errorf("expected timestamp prefix, got %q", got)
	}
	wantSuffix := "] J. Doe: fix (hash: " + head[:8] + ")"
	if !strings.HasSuffix(got, wantSuffix) {
		t.Errorf("LastChange() = %q, want suffix %q", got, wantSuffix)
	}
}

func TestLastChangeAcrossMerge(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("test/x.epx", "profile v1")
	repo.CommitAs("J. Doe", "add profile")
	mainBranch := repo.CurrentBranch()

	repo.Branch("feature")
	repo.CreateFile("test/x.epx", "profile v2")
	repo.CommitAs("Feature Dev", "change profile on feature")
	featureHead := repo.HeadHash()

	repo.Checkout(mainBranch)
	repo.CreateFile("model/m.slx", "model")
	repo.CommitAs("Main Dev", "add model on main")
	mainHead := repo.HeadHash()

	repo.MergeNoFF("feature", "Merge feature")

	tests := []struct {
		name string
		file string
		want string
	}{
		{
			name: "changed on merged branch",
			file: "test/x.epx",
			want: "] Feature Dev: change profile on feature (hash: " + featureHead[:8] + ")",
		},
		{
			name: "changed on first parent",
			file: "model/m.slx",
			want: "] Main Dev: add model on main (hash: " + mainHead[:8] + ")",
		},
		{
			name: "unchanged since initial commit",
			file: "README.md",
			want: "] Test User: Initial commit (hash: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LastChange(repo.File(tt.file))
			if err != nil {
				t.Fatalf("LastChange failed: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("LastChange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLastChangeIdempotent(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("a.txt", "a")
	repo.Commit("add a")

	first, err := LastChange(repo.File("a.txt"))
	if err != nil {
		t.Fatalf("LastChange failed: %v", err)
	}
	second, err := LastChange(repo.File("a.txt"))
	if err != nil {
		t.Fatalf("LastChange failed: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("expected identical non-empty results, got %q and %q", first, second)
	}
}

func TestLastChangeUntrackedFile(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("untracked.txt", "never committed")

	got, err := LastChange(repo.File("untracked.txt"))
	if err != nil {
		t.Fatalf("LastChange failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty result for untracked file, got %q", got)
	}
}

func TestLastChangeEmptyRepository(t *testing.T) {
	repo := testutil.NewEmptyGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("new.txt", "content")

	commit, err := LastCommit(repo.File("new.txt"))
	if err != nil {
		t.Fatalf("LastCommit failed: %v", err)
	}
	if commit != nil {
		t.Errorf("expected no commit, got %+v", commit)
	}
}

func TestLastChangeNotARepository(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "not-git-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err = LastChange(path)
	if !errors.Is(err, ErrRepositoryNotFound) {
		t.Errorf("expected ErrRepositoryNotFound, got %v", err)
	}
}

func TestOpenFromSubdirectory(t *testing.T) {
	repo := testutil.NewTempGitRepo(t)
	defer repo.Cleanup()

	repo.CreateFile("deep/nested/dir/file.txt", "x")

	r, err := Open(repo.File("deep/nested/dir/file.txt"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if r.Root() != repo.Path {
		t.Errorf("Root() = %q, want %q", r.Root(), repo.Path)
	}

	rel, err := r.RelPath(repo.File("deep/nested/dir/file.txt"))
	if err != nil {
		t.Fatalf("RelPath failed: %v", err)
	}
	if rel != "deep/nested/dir/file.txt" {
		t.Errorf("RelPath() = %q", rel)
	}
}
