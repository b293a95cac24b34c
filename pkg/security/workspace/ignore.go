package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreFileName is the project-specific ignore file read from the root.
const IgnoreFileName = ".webpilotignore"

// defaultIgnorePatterns are applied before any ignore file.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".DS_Store",
	"*.swp",
	"*.tmp",
}

type ignoreRule struct {
	pattern  string
	source   string
	matcher  glob.Glob
	negate   bool
	dirOnly  bool
	anchored bool
}

// IgnoreMatcher evaluates gitignore-style rules against workspace-relative
// paths. Later rules take precedence; "!" re-includes a path unless one of
// its parent directories is ignored.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher loads the default rules, then .gitignore and
// .webpilotignore from workspaceDir when they exist.
func NewIgnoreMatcher(workspaceDir string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, p := range defaultIgnorePatterns {
		if err := m.AddPattern(p, "default"); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{".gitignore", IgnoreFileName} {
		if err := m.loadFile(filepath.Join(workspaceDir, name)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *IgnoreMatcher) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	source := filepath.Base(path)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := m.AddPattern(line, source); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// AddPattern appends one gitignore-style pattern.
func (m *IgnoreMatcher) AddPattern(pattern, source string) error {
	rule := ignoreRule{pattern: pattern, source: source}

	p := pattern
	if strings.HasPrefix(p, "!") {
		rule.negate = true
		p = p[1:]
	}
	if strings.HasSuffix(p, "/") {
		rule.dirOnly = true
		p = strings.TrimSuffix(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		rule.anchored = true
		p = strings.TrimPrefix(p, "/")
	} else if strings.Contains(p, "/") {
		rule.anchored = true
	}
	if p == "" {
		return fmt.Errorf("invalid ignore pattern %q", pattern)
	}

	g, err := glob.Compile(p, '/')
	if err != nil {
		return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
	}
	rule.matcher = g

	m.rules = append(m.rules, rule)
	return nil
}

// ShouldIgnore reports whether relPath (slash separated, relative to the
// workspace root) is ignored. isDir describes the final element.
func (m *IgnoreMatcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	parts := strings.Split(relPath, "/")
	for i := range parts {
		last := i == len(parts)-1
		prefix := strings.Join(parts[:i+1], "/")
		if m.matches(prefix, parts[i], !last || isDir) {
			return true
		}
	}
	return false
}

// matches applies the rules in order to one path; the last match decides.
func (m *IgnoreMatcher) matches(path, base string, isDir bool) bool {
	ignored := false
	for _, rule := range m.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		subject := base
		if rule.anchored {
			subject = path
		}
		if rule.matcher.Match(subject) {
			ignored = !rule.negate
		}
	}
	return ignored
}

// Patterns returns the loaded patterns in evaluation order.
func (m *IgnoreMatcher) Patterns() []string {
	patterns := make([]string, len(m.rules))
	for i, r := range m.rules {
		patterns[i] = r.pattern
	}
	return patterns
}
