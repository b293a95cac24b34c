package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/dispatch"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArg  string
	}{
		{"explain main.go", "", "explain main.go"},
		{"  /ask   what is this  ", "ask", "what is this"},
		{"/QUIT", "quit", ""},
		{"/open src/main.go", "open", "src/main.go"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, arg := splitCommand(tt.line)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		arg        string
		wantAnchor dispatch.Position
		wantActive dispatch.Position
		wantErr    bool
	}{
		{arg: "3:5", wantAnchor: dispatch.Position{Line: 2, Character: 4}, wantActive: dispatch.Position{Line: 2, Character: 4}},
		{arg: "1:1-2:10", wantAnchor: dispatch.Position{}, wantActive: dispatch.Position{Line: 1, Character: 9}},
		{arg: "4", wantAnchor: dispatch.Position{Line: 3}, wantActive: dispatch.Position{Line: 3}},
		{arg: "", wantErr: true},
		{arg: "0:1", wantErr: true},
		{arg: "1:x", wantErr: true},
		{arg: "1:1-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			anchor, active, err := parseSelection(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAnchor, anchor)
			assert.Equal(t, tt.wantActive, active)
		})
	}
}

func TestMirrored(t *testing.T) {
	assert.True(t, mirrored(config.VerbosityQuiet, "ERROR"))
	assert.False(t, mirrored(config.VerbosityQuiet, "WARN"))
	assert.True(t, mirrored(config.VerbosityNormal, "INFO"))
	assert.False(t, mirrored(config.VerbosityNormal, "DEBUG"))
	assert.True(t, mirrored(config.VerbosityVerbose, "DEBUG"))
}

func TestCLIOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cli := &CLIConfig{
		Workspace: "/tmp/project",
		Endpoint:  "http://localhost:3000",
		Headed:    true,
		Verbosity: config.VerbosityVerbose,
	}

	cli.overrides(cfg)

	assert.Equal(t, "/tmp/project", cfg.Workspace.Root)
	assert.Equal(t, "http://localhost:3000", cfg.Session.Endpoint)
	assert.False(t, cfg.Session.Headless)
	assert.Equal(t, config.VerbosityVerbose, cfg.Logging.Verbosity)
	assert.Empty(t, cfg.Session.ExecutablePath)
}

func TestOpenWorkspace(t *testing.T) {
	guard, root, err := openWorkspace("")
	require.NoError(t, err)
	assert.Nil(t, guard)
	assert.NotEmpty(t, root)

	dir := t.TempDir()
	guard, root, err = openWorkspace(dir)
	require.NoError(t, err)
	require.NotNil(t, guard)
	assert.Equal(t, guard.WorkspaceDir(), root)
}
