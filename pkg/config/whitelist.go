package config

import (
	"fmt"
	"strings"
)

const (
	// MatchTypePrefix indicates a prefix-based pattern match
	MatchTypePrefix = "prefix"
	// MatchTypeExact indicates an exact pattern match
	MatchTypeExact = "exact"
)

// WhitelistPattern represents a terminal command that can be auto-approved.
type WhitelistPattern struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type,omitempty"` // "prefix" (default) or "exact"
}

// DefaultCommandWhitelist returns the read-only commands approved by default.
func DefaultCommandWhitelist() []WhitelistPattern {
	return []WhitelistPattern{
		{
			Pattern:     "git status",
			Description: "Git status and variations",
			Type:        MatchTypePrefix,
		},
		{
			Pattern:     "ls",
			Description: "List directory",
			Type:        MatchTypePrefix,
		},
		{
			Pattern:     "pwd",
			Description: "Get current directory",
			Type:        MatchTypeExact,
		},
	}
}

func validateWhitelist(patterns []WhitelistPattern) error {
	for i, p := range patterns {
		if strings.TrimSpace(p.Pattern) == "" {
			return fmt.Errorf("pattern at index %d is empty", i)
		}
		switch p.Type {
		case "", MatchTypePrefix, MatchTypeExact:
		default:
			return fmt.Errorf("pattern at index %d has invalid type %q (must be 'prefix' or 'exact')", i, p.Type)
		}
	}
	return nil
}

// IsCommandWhitelisted checks if a command matches any whitelist pattern.
//
// Pattern matching rules:
//   - Type "exact": Command must exactly match the pattern
//   - Type "prefix": Command must start with the pattern (followed by space or end)
//
// Examples for prefix type:
//   - Pattern "npm" matches: "npm", "npm install", "npm run build"
//   - Pattern "git status" matches: "git status", "git status --short"
//
// Examples for exact type:
//   - Pattern "ls" matches only: "ls" (not "ls -la")
//
// Commands containing shell operators (; & | ` $ ( ) < >) or control
// characters never match, since only the first program would have been
// checked.
func (a ApprovalConfig) IsCommandWhitelisted(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" || containsShellChaining(command) {
		return false
	}

	for _, pattern := range a.CommandWhitelist {
		if matchesPattern(command, pattern.Pattern, pattern.Type) {
			return true
		}
	}
	return false
}

// shellMetachars start a second command, redirect, expand or group. Any of
// them disqualifies a command from auto-approval.
const shellMetachars = ";&|`$()<>"

func containsShellChaining(command string) bool {
	if strings.ContainsAny(command, shellMetachars) {
		return true
	}
	for _, r := range command {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

// matchesPattern checks if a command matches a pattern based on the match type.
func matchesPattern(command, pattern, matchType string) bool {
	pattern = strings.TrimSpace(pattern)
	command = strings.TrimSpace(command)
	if pattern == "" {
		return false
	}

	// Exact match (works for both types)
	if command == pattern {
		return true
	}

	if matchType == MatchTypeExact {
		return false
	}

	// Require a space boundary so "npm" does not match "npminstall"
	return strings.HasPrefix(command, pattern+" ")
}
