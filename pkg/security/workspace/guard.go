// Package workspace enforces the workspace boundary for file directives. It
// prevents path traversal and keeps ignored files out of reach of the remote
// side.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideWorkspace is returned for paths that resolve outside the root
	ErrOutsideWorkspace = errors.New("path is outside the workspace")
	// ErrIgnoredPath is returned for paths matched by an ignore rule
	ErrIgnoredPath = errors.New("path is excluded by ignore rules")
)

// Guard enforces workspace boundary restrictions on file paths.
type Guard struct {
	workspaceDir  string // absolute, symlinks evaluated
	ignoreMatcher *IgnoreMatcher
}

// NewGuard creates a guard rooted at workspaceDir. The directory is made
// absolute and its symlinks are evaluated; ignore rules are loaded from the
// defaults, .gitignore and .webpilotignore.
func NewGuard(workspaceDir string) (*Guard, error) {
	if workspaceDir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	info, err := os.Stat(evalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %q is not a directory", workspaceDir)
	}

	ignoreMatcher, err := NewIgnoreMatcher(evalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ignore matcher: %w", err)
	}

	return &Guard{
		workspaceDir:  evalPath,
		ignoreMatcher: ignoreMatcher,
	}, nil
}

// Resolve maps a directive path to an absolute path inside the workspace.
// Relative paths are joined to the workspace root. The result must stay
// inside the root and must not be ignored.
func (g *Guard) Resolve(path string) (string, error) {
	resolved, err := g.ResolvePath(path)
	if err != nil {
		return "", err
	}
	if !g.IsWithinWorkspace(resolved) {
		return "", fmt.Errorf("%w: '%s'", ErrOutsideWorkspace, path)
	}
	if g.ShouldIgnore(resolved) {
		return "", fmt.Errorf("%w: '%s'", ErrIgnoredPath, path)
	}
	return resolved, nil
}

// ValidatePath checks that path resolves inside the workspace.
func (g *Guard) ValidatePath(path string) error {
	resolved, err := g.ResolvePath(path)
	if err != nil {
		return err
	}
	if !g.IsWithinWorkspace(resolved) {
		return fmt.Errorf("%w: '%s'", ErrOutsideWorkspace, path)
	}
	return nil
}

// ResolvePath converts a relative or absolute path to a clean absolute path
// with symlinks evaluated. Paths that do not exist yet are resolved through
// their nearest existing ancestor, so writes to new files work.
func (g *Guard) ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(filepath.FromSlash(path))

	absPath := cleanPath
	if !filepath.IsAbs(cleanPath) {
		absPath = filepath.Join(g.workspaceDir, cleanPath)
	}

	return resolveSymlinks(filepath.Clean(absPath)), nil
}

// IsWithinWorkspace reports whether absPath is the workspace root or below it.
func (g *Guard) IsWithinWorkspace(absPath string) bool {
	evalPath := resolveSymlinks(absPath)
	return evalPath == g.workspaceDir ||
		strings.HasPrefix(evalPath, g.workspaceDir+string(filepath.Separator))
}

// resolveSymlinks evaluates symlinks in path. For paths that do not exist it
// resolves the nearest existing ancestor and re-appends the missing parts.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	currentPath := path
	for {
		if resolved, err := filepath.EvalSymlinks(currentPath); err == nil {
			result := resolved
			for i := len(components) - 1; i >= 0; i-- {
				result = filepath.Join(result, components[i])
			}
			return result
		}

		dir := filepath.Dir(currentPath)
		if dir == currentPath {
			return path
		}
		components = append(components, filepath.Base(currentPath))
		currentPath = dir
	}
}

// WorkspaceDir returns the absolute path of the workspace directory.
func (g *Guard) WorkspaceDir() string {
	return g.workspaceDir
}

// MakeRelative converts an absolute path to a slash-separated path relative
// to the workspace. Returns an error if the path is not within the workspace.
func (g *Guard) MakeRelative(absPath string) (string, error) {
	if !g.IsWithinWorkspace(absPath) {
		return "", fmt.Errorf("path '%s' is not within workspace", absPath)
	}

	relPath, err := filepath.Rel(g.workspaceDir, resolveSymlinks(absPath))
	if err != nil {
		return "", fmt.Errorf("failed to make path relative: %w", err)
	}
	return filepath.ToSlash(relPath), nil
}

// Display renders absPath for results: relative to the workspace when inside
// it, absolute otherwise.
func (g *Guard) Display(absPath string) string {
	if rel, err := g.MakeRelative(absPath); err == nil {
		return rel
	}
	return absPath
}

// ShouldIgnore reports whether path matches the ignore rules. Paths outside
// the workspace are never reported as ignored; the boundary check rejects
// them separately.
func (g *Guard) ShouldIgnore(path string) bool {
	absPath := path
	if !filepath.IsAbs(path) {
		absPath = filepath.Join(g.workspaceDir, path)
	}

	relPath, err := g.MakeRelative(absPath)
	if err != nil || relPath == "." {
		return false
	}

	isDir := false
	if info, err := os.Lstat(absPath); err == nil {
		isDir = info.IsDir()
	}

	return g.ignoreMatcher.ShouldIgnore(relPath, isDir)
}
