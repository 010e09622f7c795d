package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/btc-embedded/smart-testing-genai/internal/models"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrRepositoryNotFound is returned when a path is not inside a git working tree
var ErrRepositoryNotFound = errors.New("repository not found")

// Repository is a git working tree opened from a path somewhere inside it
type Repository struct {
	root string
	repo *gogit.Repository
}

// Open finds the repository containing path by searching parent directories
func Open(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	repo, err := gogit.PlainOpenWithOptions(filepath.Dir(absPath), &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, path)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &Repository{
		root: wt.Filesystem.Root(),
		repo: repo,
	}, nil
}

// Root returns the top-level directory of the working tree
func (r *Repository) Root() string {
	return r.root
}

// RelPath returns path relative to the repository root, slash separated
func (r *Repository) RelPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	rel, err := filepath.Rel(r.root, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// LastCommit returns the newest commit touching path, or nil if there is none.
//
// History is simplified the way git log does it: at a merge that leaves
// path unchanged against one of its parents, only that parent is followed.
// A merge counts as touching path only when it differs from every parent.
func (r *Repository) LastCommit(path string) (*models.CommitRecord, error) {
	rel, err := r.RelPath(path)
	if err != nil {
		return nil, err
	}

	head, err := r.repo.Head()
	if err != nil {
		// A freshly initialized repository has no HEAD yet
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD commit: %w", err)
	}

	for commit != nil {
		blob, err := entryHash(commit, rel)
		if err != nil {
			return nil, err
		}

		next, parents, err := sameParent(commit, rel, blob)
		if err != nil {
			return nil, err
		}
		if next == nil {
			if parents == 0 && blob.IsZero() {
				return nil, nil
			}
			return &models.CommitRecord{
				Timestamp: commit.Committer.When,
				Author:    commit.Author.Name,
				Message:   strings.TrimSpace(commit.Message),
				ShortHash: models.ShortenHash(commit.Hash.String()),
			}, nil
		}
		commit = next
	}
	return nil, nil
}

// sameParent returns the first parent in which rel has the given blob hash,
// or nil if rel differs from every parent. Parents missing from a shallow
// clone are not counted.
func sameParent(commit *object.Commit, rel string, blob plumbing.Hash) (*object.Commit, int, error) {
	parents := 0
	for i := 0; i < commit.NumParents(); i++ {
		parent, err := commit.Parent(i)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, parents, fmt.Errorf("failed to get parent of %s: %w", commit.Hash, err)
		}
		parents++
		parentBlob, err := entryHash(parent, rel)
		if err != nil {
			return nil, parents, err
		}
		if parentBlob == blob {
			return parent, parents, nil
		}
	}
	return nil, parents, nil
}

// entryHash returns the object hash of rel in the tree of commit, or the zero hash if absent
func entryHash(commit *object.Commit, rel string) (plumbing.Hash, error) {
	tree, err := commit.Tree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get tree of %s: %w", commit.Hash, err)
	}
	entry, err := tree.FindEntry(rel)
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to look up %s in %s: %w", rel, commit.Hash, err)
	}
	return entry.Hash, nil
}

// LastCommit opens the repository containing path and returns its newest commit touching path
func LastCommit(path string) (*models.CommitRecord, error) {
	repo, err := Open(path)
	if err != nil {
		return nil, err
	}
	return repo.LastCommit(path)
}

// LastChange returns the formatted last commit for path, or "" when the file has no history
func LastChange(path string) (string, error) {
	commit, err := LastCommit(path)
	if err != nil {
		return "", err
	}
	if commit == nil {
		return "", nil
	}
	return commit.String(), nil
}
