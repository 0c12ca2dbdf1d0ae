// Package workspace confines file operations to a single root directory.
// This package is internal and should not be imported by external projects.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrPathEscapesRoot is returned for paths that resolve outside the root.
	ErrPathEscapesRoot = errors.New("path escapes workspace root")
	// ErrReadOnly is returned for writes on a read-only workspace.
	ErrReadOnly = errors.New("workspace is read-only; writes are disabled")
)

// Manager performs file operations scoped to a root directory.
type Manager struct {
	root       string
	allowWrite bool
}

// New creates a manager rooted at root. The root is made absolute.
func New(root string, allowWrite bool) (*Manager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Manager{root: abs, allowWrite: allowWrite}, nil
}

// Root returns the absolute workspace root.
func (m *Manager) Root() string { return m.root }

// AllowWrite reports whether writes are permitted.
func (m *Manager) AllowWrite() bool { return m.allowWrite }

// Resolve maps a workspace-relative path to an absolute path inside the root.
func (m *Manager) Resolve(path string) (string, error) {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(m.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(m.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, path)
	}
	return candidate, nil
}

// ReadText reads a file.
func (m *Manager) ReadText(path string) (string, error) {
	resolved, err := m.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText writes a file, creating parent directories.
func (m *Manager) WriteText(path, content string) error {
	if !m.allowWrite {
		return ErrReadOnly
	}
	resolved, err := m.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	return os.WriteFile(resolved, []byte(content), 0o644)
}

// FileExists reports whether path exists inside the root.
func (m *Manager) FileExists(path string) (bool, error) {
	resolved, err := m.Resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(resolved)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ListFiles returns sorted root-relative file paths. A non-empty pattern is
// matched against the file's base name and its relative path; ".git" is skipped.
func (m *Manager) ListFiles(pattern string) ([]string, error) {
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	var files []string
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(m.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if pattern != "" {
			baseOK, _ := filepath.Match(pattern, d.Name())
			relOK, _ := filepath.Match(pattern, rel)
			if !baseOK && !relOK {
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
