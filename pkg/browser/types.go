package browser

import (
	"time"
)

// Role identifies a page element the session interacts with.
type Role int

const (
	// RolePromptInput is the text area the prompt is typed into
	RolePromptInput Role = iota
	// RoleCompletionIndicator appears once the remote side finished answering
	RoleCompletionIndicator
	// RoleResponseContainer wraps one rendered reply
	RoleResponseContainer
)

func (r Role) String() string {
	switch r {
	case RolePromptInput:
		return "prompt input"
	case RoleCompletionIndicator:
		return "completion indicator"
	case RoleResponseContainer:
		return "response container"
	default:
		return "unknown"
	}
}

// Selectors maps each Role to a CSS selector.
type Selectors struct {
	PromptInput         string `yaml:"prompt_input"`
	CompletionIndicator string `yaml:"completion_indicator"`
	ResponseContainer   string `yaml:"response_container"`
}

// For returns the selector configured for role.
func (s Selectors) For(role Role) string {
	switch role {
	case RolePromptInput:
		return s.PromptInput
	case RoleCompletionIndicator:
		return s.CompletionIndicator
	case RoleResponseContainer:
		return s.ResponseContainer
	default:
		return ""
	}
}

// SessionConfig configures one browser session. It is captured at Initialize
// and stays fixed until the session ends.
type SessionConfig struct {
	// Endpoint is the URL of the chat application
	Endpoint string `yaml:"endpoint"`

	// ExecutablePath optionally points at a specific browser binary
	ExecutablePath string `yaml:"executable_path"`

	// Headless controls whether the browser runs without a visible window
	Headless bool `yaml:"headless"`

	// Args are extra command line arguments for the browser process
	Args []string `yaml:"args"`

	// MaxRetries bounds the attempts of Initialize and SubmitPrompt
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the pause between attempts
	RetryDelay time.Duration `yaml:"retry_delay"`

	Selectors Selectors `yaml:"selectors"`

	// InitialLoadTimeout bounds navigation and the first prompt input wait
	InitialLoadTimeout time.Duration `yaml:"initial_load_timeout"`

	// ResponseTimeout bounds the wait for the completion indicator
	ResponseTimeout time.Duration `yaml:"response_timeout"`

	// ContentTimeout bounds the wait for a non-empty response container
	ContentTimeout time.Duration `yaml:"content_timeout"`

	// TypeDelay is the pause between typed keys
	TypeDelay time.Duration `yaml:"type_delay"`
}

// Default values for a session
const (
	DefaultEndpoint           = "https://chat.openai.com"
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = time.Second
	DefaultInitialLoadTimeout = 30 * time.Second
	DefaultResponseTimeout    = 60 * time.Second
	DefaultContentTimeout     = 10 * time.Second
	DefaultTypeDelay          = 20 * time.Millisecond

	DefaultPromptInputSelector         = `[data-testid="prompt-textarea"]`
	DefaultCompletionIndicatorSelector = `[data-testid="regenerate-response-button"]`
	DefaultResponseContainerSelector   = "div.markdown"
)

// DefaultSessionConfig returns the configuration used when nothing is set.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Endpoint:   DefaultEndpoint,
		Headless:   true,
		Args:       []string{"--no-sandbox", "--disable-dev-shm-usage"},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Selectors: Selectors{
			PromptInput:         DefaultPromptInputSelector,
			CompletionIndicator: DefaultCompletionIndicatorSelector,
			ResponseContainer:   DefaultResponseContainerSelector,
		},
		InitialLoadTimeout: DefaultInitialLoadTimeout,
		ResponseTimeout:    DefaultResponseTimeout,
		ContentTimeout:     DefaultContentTimeout,
		TypeDelay:          DefaultTypeDelay,
	}
}

// State is the lifecycle state of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	Timeout time.Duration
}

// LaunchOptions configures the browser process.
type LaunchOptions struct {
	ExecutablePath string
	Headless       bool
	Args           []string
}
