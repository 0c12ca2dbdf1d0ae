// Package vcs exposes a git working tree to agents through go-git.
package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Author identifies the committer used for commits made by agents.
type Author struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// DefaultAuthor is used when no author is configured.
func DefaultAuthor() Author {
	return Author{Name: "devcrew", Email: "devcrew@localhost"}
}

// Status is a porcelain-style view of the working tree.
type Status struct {
	Entries []string `json:"entries"`
	Clean   bool     `json:"clean"`
}

// CommitResult describes a new commit.
type CommitResult struct {
	CommitHash string `json:"commit_hash"`
	Message    string `json:"message"`
}

// Service wraps a git repository. go-git repositories are not safe for
// concurrent use, so every operation holds mu.
type Service struct {
	mu     sync.Mutex
	repo   *git.Repository
	root   string
	author Author
}

// Open opens the repository at root.
func Open(root string, author Author) (*Service, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", root, err)
	}
	if author.Name == "" {
		author = DefaultAuthor()
	}
	return &Service{repo: repo, root: root, author: author}, nil
}

// Status returns the working tree status, one "XY path" entry per changed file.
func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.status()
	if err != nil {
		return Status{}, err
	}

	entries := make([]string, 0, len(st))
	for path, fs := range st {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		entries = append(entries, fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, path))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i][3:] < entries[j][3:] })
	return Status{Entries: entries, Clean: len(entries) == 0}, nil
}

// Diff returns line diffs of tracked files changed in the working tree against
// HEAD, optionally limited to paths (files or directory prefixes).
func (s *Service) Diff(paths []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.status()
	if err != nil {
		return "", err
	}

	var changed []string
	for path, fs := range st {
		if fs.Worktree != git.Modified && fs.Worktree != git.Deleted {
			continue
		}
		if matchesAny(path, paths) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)

	tree, err := s.headTree()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, path := range changed {
		before := ""
		if tree != nil {
			if f, err := tree.File(path); err == nil {
				if before, err = f.Contents(); err != nil {
					return "", fmt.Errorf("read %s at HEAD: %w", path, err)
				}
			}
		}
		after := ""
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
		if err == nil {
			after = string(data)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		writeFileDiff(&b, path, before, after)
	}
	return b.String(), nil
}

// Commit records the working tree. With stageAll every change is staged first.
func (s *Service) Commit(message string, stageAll bool) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		return CommitResult{}, fmt.Errorf("open worktree: %w", err)
	}
	if stageAll {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return CommitResult{}, fmt.Errorf("stage changes: %w", err)
		}
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: s.author.Name, Email: s.author.Email, When: time.Now()},
	})
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit: %w", err)
	}
	return CommitResult{CommitHash: hash.String(), Message: message}, nil
}

// CreateBranch creates a branch at HEAD and optionally checks it out.
func (s *Service) CreateBranch(name string, checkout bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	ref := plumbing.NewBranchReferenceName(name)
	if _, err := s.repo.Reference(ref, false); err == nil {
		return "", fmt.Errorf("branch %s already exists", name)
	}

	if checkout {
		wt, err := s.repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("open worktree: %w", err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: head.Hash(), Branch: ref, Create: true, Keep: true}); err != nil {
			return "", fmt.Errorf("checkout %s: %w", name, err)
		}
		return name, nil
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash())); err != nil {
		return "", fmt.Errorf("create branch %s: %w", name, err)
	}
	return name, nil
}

// CurrentBranch returns the checked-out branch, or "" when HEAD is detached.
func (s *Service) CurrentBranch() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}

func (s *Service) status() (git.Status, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return st, nil
}

// headTree returns nil for a repository without commits.
func (s *Service) headTree() (*object.Tree, error) {
	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}
	return commit.Tree()
}

func matchesAny(path string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		f = strings.TrimSuffix(filepath.ToSlash(f), "/")
		if path == f || strings.HasPrefix(path, f+"/") {
			return true
		}
	}
	return false
}

func writeFileDiff(b *strings.Builder, path, before, after string) {
	fmt.Fprintf(b, "diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n", path, path, path, path)
	for _, d := range diff.Do(before, after) {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteString("\n")
			}
		}
	}
}
