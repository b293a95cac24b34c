package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://chat.openai.com", cfg.Session.Endpoint)
	assert.Equal(t, 3, cfg.Session.MaxRetries)
	assert.Equal(t, time.Second, cfg.Session.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Session.InitialLoadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Session.ResponseTimeout)
	assert.True(t, cfg.Session.Headless)
	assert.Equal(t, 100, cfg.Workspace.MaxFiles)
	assert.Equal(t, VerbosityNormal, cfg.Logging.Verbosity)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
session:
  endpoint: https://chat.example.com
  headless: false
  max_retries: 5
  retry_delay: 2s
  response_timeout: 90s
  selectors:
    response_container: article.reply
workspace:
  root: /src/project
  diagnostics_command: go vet ./...
approval:
  auto_approve:
    writeFile: true
  command_whitelist:
    - pattern: make test
  timeout: 30s
logging:
  verbosity: verbose
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Session.Endpoint)
	assert.False(t, cfg.Session.Headless)
	assert.Equal(t, 5, cfg.Session.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Session.RetryDelay)
	assert.Equal(t, 90*time.Second, cfg.Session.ResponseTimeout)
	assert.Equal(t, "article.reply", cfg.Session.Selectors.ResponseContainer)
	// untouched keys keep their defaults
	assert.Equal(t, browser.DefaultPromptInputSelector, cfg.Session.Selectors.PromptInput)
	assert.Equal(t, 30*time.Second, cfg.Session.InitialLoadTimeout)

	assert.Equal(t, "/src/project", cfg.Workspace.Root)
	assert.Equal(t, 100, cfg.Workspace.MaxFiles)
	assert.Equal(t, "go vet ./...", cfg.Workspace.DiagnosticsCommand)

	assert.True(t, cfg.Approval.IsActionAutoApproved("writeFile"))
	assert.True(t, cfg.Approval.IsCommandWhitelisted("make test"))
	assert.False(t, cfg.Approval.IsCommandWhitelisted("ls"), "whitelist is replaced, not merged")
	assert.Equal(t, 30*time.Second, cfg.Approval.Timeout)
	assert.Equal(t, VerbosityVerbose, cfg.Logging.Verbosity)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "session:\n  endpont: x\n", "endpont"},
		{"zero retries", "session:\n  max_retries: 0\n", "max_retries"},
		{"negative delay", "session:\n  retry_delay: -1s\n", "retry_delay"},
		{"empty selector", "session:\n  selectors:\n    prompt_input: \"\"\n", "selectors"},
		{"bad duration", "session:\n  response_timeout: soon\n", "decode"},
		{"zero max files", "workspace:\n  max_files: 0\n", "max_files"},
		{"empty whitelist pattern", "approval:\n  command_whitelist:\n    - pattern: \" \"\n", "index 0"},
		{"bad whitelist type", "approval:\n  command_whitelist:\n    - pattern: ls\n      type: regex\n", "invalid type"},
		{"bad verbosity", "logging:\n  verbosity: loud\n", "verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Session.Endpoint = "https://chat.example.com"
	cfg.Workspace.Root = "/work"
	require.NoError(t, cfg.Approval.SetAutoApproval("writeFile", true))
	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.Session.Args[0] = "--changed"
	clone.Approval.AutoApprove["writeFile"] = true
	clone.Approval.CommandWhitelist[0].Pattern = "rm"

	assert.Equal(t, "--no-sandbox", cfg.Session.Args[0])
	assert.False(t, cfg.Approval.AutoApprove["writeFile"])
	assert.Equal(t, "git status", cfg.Approval.CommandWhitelist[0].Pattern)
}
