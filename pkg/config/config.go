// Package config loads the YAML configuration file.
//
// The file has four sections:
//
//	session:    browser session settings (endpoint, selectors, retries, timeouts)
//	workspace:  workspace root, file listing limit, diagnostics command, shell
//	approval:   auto-approval per action, command whitelist, consent timeout
//	logging:    verbosity of the log lines mirrored to the console
//
// Missing keys keep their defaults, so an empty file is a valid configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/webpilot/pkg/browser"
)

// Config is the full configuration.
type Config struct {
	Session   browser.SessionConfig `yaml:"session"`
	Workspace WorkspaceConfig       `yaml:"workspace"`
	Approval  ApprovalConfig        `yaml:"approval"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// WorkspaceConfig describes the local workspace directives operate on.
type WorkspaceConfig struct {
	// Root is the workspace folder. Empty means no workspace is open.
	Root string `yaml:"root"`

	// MaxFiles caps the getWorkspaceFiles listing
	MaxFiles int `yaml:"max_files"`

	// DiagnosticsCommand produces file:line:col: message output
	DiagnosticsCommand string `yaml:"diagnostics_command"`

	// Shell runs the interactive terminal; empty uses $SHELL
	Shell string `yaml:"shell"`
}

// ApprovalConfig controls consent for side-effecting directives.
type ApprovalConfig struct {
	// AutoApprove maps an action name to whether it skips the prompt.
	// executeTerminal ignores this and relies on CommandWhitelist.
	AutoApprove map[string]bool `yaml:"auto_approve"`

	// CommandWhitelist lists terminal commands that skip the prompt
	CommandWhitelist []WhitelistPattern `yaml:"command_whitelist"`

	// Timeout bounds how long a consent prompt waits; zero waits forever
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls the lines mirrored to the console: quiet, normal,
	// verbose. The log file always receives everything.
	Verbosity string `yaml:"verbosity"`
}

// Verbosity levels
const (
	VerbosityQuiet   = "quiet"
	VerbosityNormal  = "normal"
	VerbosityVerbose = "verbose"
)

// Default values for the workspace and approval sections
const (
	DefaultMaxFiles        = 100
	DefaultApprovalTimeout = 5 * time.Minute
)

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Session: browser.DefaultSessionConfig(),
		Workspace: WorkspaceConfig{
			MaxFiles: DefaultMaxFiles,
		},
		Approval: ApprovalConfig{
			AutoApprove:      map[string]bool{},
			CommandWhitelist: DefaultCommandWhitelist(),
			Timeout:          DefaultApprovalTimeout,
		},
		Logging: LoggingConfig{
			Verbosity: VerbosityNormal,
		},
	}
}

// DefaultPath returns ~/.webpilot/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".webpilot", "config.yaml"), nil
}

// Load reads path on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if cfg.Approval.AutoApprove == nil {
		cfg.Approval.AutoApprove = map[string]bool{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	s := c.Session
	if s.Endpoint == "" {
		return fmt.Errorf("session.endpoint is required")
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("session.max_retries must be at least 1")
	}
	if s.RetryDelay < 0 {
		return fmt.Errorf("session.retry_delay cannot be negative")
	}
	if s.InitialLoadTimeout < 0 || s.ResponseTimeout < 0 || s.ContentTimeout < 0 || s.TypeDelay < 0 {
		return fmt.Errorf("session timeouts cannot be negative")
	}
	if s.Selectors.PromptInput == "" || s.Selectors.CompletionIndicator == "" || s.Selectors.ResponseContainer == "" {
		return fmt.Errorf("session.selectors must define prompt_input, completion_indicator and response_container")
	}

	if c.Workspace.MaxFiles < 1 {
		return fmt.Errorf("workspace.max_files must be at least 1")
	}

	if c.Approval.Timeout < 0 {
		return fmt.Errorf("approval.timeout cannot be negative")
	}
	if err := validateWhitelist(c.Approval.CommandWhitelist); err != nil {
		return fmt.Errorf("approval.command_whitelist: %w", err)
	}

	switch c.Logging.Verbosity {
	case "":
		c.Logging.Verbosity = VerbosityNormal
	case VerbosityQuiet, VerbosityNormal, VerbosityVerbose:
	default:
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', or 'verbose')", c.Logging.Verbosity)
	}

	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Session.Args = append([]string(nil), c.Session.Args...)
	out.Approval.AutoApprove = make(map[string]bool, len(c.Approval.AutoApprove))
	for k, v := range c.Approval.AutoApprove {
		out.Approval.AutoApprove[k] = v
	}
	out.Approval.CommandWhitelist = append([]WhitelistPattern(nil), c.Approval.CommandWhitelist...)
	return &out
}
