package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// Logger is the logging surface the manager needs. *logging.Logger
// satisfies it.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// ConfigSource supplies the session configuration. It is called once per
// Initialize so edits to the configuration apply to the next session.
type ConfigSource func() SessionConfig

// StaticConfig returns a ConfigSource that always yields cfg.
func StaticConfig(cfg SessionConfig) ConfigSource {
	return func() SessionConfig { return cfg }
}

var errSessionClosed = errors.New("session closed during initialization")

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for attempt and lifecycle messages.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDisconnectHandler registers fn to be called after a ready session loses
// its browser. fn runs on a driver goroutine.
func WithDisconnectHandler(fn func()) Option {
	return func(m *Manager) {
		m.onDisconnect = fn
	}
}

// Manager owns one browser process and one page. Initialize and SubmitPrompt
// must not be called concurrently with each other; callers serialize
// interactions. State queries and Close are safe from any goroutine.
type Manager struct {
	driver       Driver
	source       ConfigSource
	logger       Logger
	onDisconnect func()
	sleep        func(ctx context.Context, d time.Duration) error

	initMu sync.Mutex

	mu         sync.Mutex
	state      State
	config     SessionConfig
	browser    Browser
	page       Page
	generation uint64
}

// NewManager creates a manager in the Uninitialized state.
func NewManager(driver Driver, source ConfigSource, opts ...Option) *Manager {
	if source == nil {
		source = StaticConfig(DefaultSessionConfig())
	}
	m := &Manager{
		driver: driver,
		source: source,
		logger: logging.Discard(),
		sleep:  sleepContext,
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsInitialized reports whether the session is Ready.
func (m *Manager) IsInitialized() bool {
	return m.State() == StateReady
}

// Config returns the configuration of the current session.
func (m *Manager) Config() SessionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Initialize launches the browser and opens the chat page. It is a no-op when
// the session is already Ready.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	stale := m.detachLocked()
	cfg := normalize(m.source())
	m.config = cfg
	m.state = StateInitializing
	m.mu.Unlock()

	stale.release()

	if err := checkExecutable(cfg.ExecutablePath); err != nil {
		m.logger.Errorf("Browser configuration error: %v", err)
		m.setState(StateUninitialized)
		return &Error{Kind: KindConfiguration, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			m.setState(StateUninitialized)
			return err
		}

		m.logger.Infof("Initializing browser (attempt %d/%d)...", attempt, cfg.MaxRetries)
		err := m.launch(ctx, cfg)
		if err == nil {
			m.logger.Infof("Browser ready at %s", cfg.Endpoint)
			return nil
		}

		if errors.Is(err, errSessionClosed) {
			return &Error{Kind: KindLaunch, Attempts: attempt, Err: err}
		}

		lastErr = err
		m.logger.Errorf("Browser initialization attempt %d failed: %v", attempt, err)

		if attempt < cfg.MaxRetries {
			if err := m.sleep(ctx, cfg.RetryDelay); err != nil {
				m.setState(StateUninitialized)
				return err
			}
		}
	}

	m.setState(StateUninitialized)
	return &Error{Kind: KindLaunch, Attempts: cfg.MaxRetries, Err: lastErr}
}

// launch runs one initialization attempt. On success the session is Ready.
func (m *Manager) launch(ctx context.Context, cfg SessionConfig) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	b, err := m.driver.Launch(ctx, LaunchOptions{
		ExecutablePath: cfg.ExecutablePath,
		Headless:       cfg.Headless,
		Args:           cfg.Args,
	})
	if err != nil {
		return err
	}
	b.OnDisconnected(func() { m.handleDisconnect(gen) })

	page, err := b.NewPage()
	if err != nil {
		_ = b.Close()
		return err
	}

	fail := func(err error) error {
		_ = page.Close()
		_ = b.Close()
		return err
	}

	if err := page.Goto(cfg.Endpoint, NavigateOptions{WaitUntil: "networkidle", Timeout: cfg.InitialLoadTimeout}); err != nil {
		return fail(err)
	}
	if err := page.WaitForSelector(cfg.Selectors.For(RolePromptInput), cfg.InitialLoadTimeout); err != nil {
		return fail(fmt.Errorf("%s never appeared: %w", RolePromptInput, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return fail(errSessionClosed)
	}
	if !b.IsConnected() {
		m.mu.Unlock()
		return fail(errors.New("browser disconnected during initialization"))
	}
	m.browser = b
	m.page = page
	m.state = StateReady
	m.mu.Unlock()
	return nil
}

// SubmitPrompt sends text to the chat and returns the inner markup of the
// newest response container.
func (m *Manager) SubmitPrompt(ctx context.Context, text string) (string, error) {
	if !m.IsInitialized() {
		m.logger.Warnf("Browser not ready, initializing before submitting prompt")
		if err := m.Initialize(ctx); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNotInitialized, err)
		}
	}

	m.mu.Lock()
	if m.state != StateReady || m.page == nil {
		m.mu.Unlock()
		return "", ErrNotInitialized
	}
	cfg := m.config
	page := m.page
	b := m.browser
	gen := m.generation
	m.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		m.logger.Infof("Submitting prompt (attempt %d/%d)...", attempt, cfg.MaxRetries)
		html, err := submitOnce(page, cfg, text)
		if err == nil && strings.TrimSpace(html) == "" {
			err = errors.New("response container was empty")
		}
		if err == nil {
			return html, nil
		}

		if m.lostBrowser(gen, b) {
			m.logger.Errorf("Browser disconnected while submitting prompt: %v", err)
			m.resetAfterDisconnect(gen)
			return "", &Error{Kind: KindDisconnect, Attempts: attempt, Err: err}
		}

		lastErr = err
		m.logger.Errorf("Prompt submission attempt %d failed: %v", attempt, err)

		if attempt < cfg.MaxRetries {
			if err := m.sleep(ctx, cfg.RetryDelay); err != nil {
				return "", err
			}
		}
	}

	return "", &Error{Kind: KindSubmission, Attempts: cfg.MaxRetries, Err: lastErr}
}

func submitOnce(page Page, cfg SessionConfig, text string) (string, error) {
	input := cfg.Selectors.For(RolePromptInput)
	container := cfg.Selectors.For(RoleResponseContainer)

	if err := page.WaitForSelector(input, cfg.ResponseTimeout); err != nil {
		return "", fmt.Errorf("%s not available: %w", RolePromptInput, err)
	}
	if err := page.Focus(input); err != nil {
		return "", err
	}
	if err := page.Clear(input); err != nil {
		return "", err
	}
	if err := page.Type(input, text, cfg.TypeDelay); err != nil {
		return "", err
	}
	if err := page.Press("Enter"); err != nil {
		return "", err
	}
	if err := page.WaitForSelector(cfg.Selectors.For(RoleCompletionIndicator), cfg.ResponseTimeout); err != nil {
		return "", fmt.Errorf("response did not complete: %w", err)
	}
	if err := page.WaitForContent(container, cfg.ContentTimeout); err != nil {
		return "", err
	}
	return page.LastInnerHTML(container)
}

// Close releases the page, the browser and the driver. Safe to call multiple
// times and after the browser already went away.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.generation++
	handles := m.detachLocked()
	m.state = StateUninitialized
	m.mu.Unlock()

	handles.release()

	if m.driver != nil {
		if err := m.driver.Stop(); err != nil {
			m.logger.Warnf("Failed to stop browser driver: %v", err)
			return err
		}
	}
	return nil
}

func (m *Manager) handleDisconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != StateReady {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.browser = nil
	m.page = nil
	notify := m.onDisconnect
	m.mu.Unlock()

	m.logger.Warnf("Browser disconnected")
	if notify != nil {
		notify()
	}
}

func (m *Manager) lostBrowser(gen uint64, b Browser) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state == StateDisconnected {
		return true
	}
	return b != nil && !b.IsConnected()
}

func (m *Manager) resetAfterDisconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.generation++
	handles := m.detachLocked()
	m.state = StateDisconnected
	m.mu.Unlock()

	handles.release()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

type handles struct {
	browser Browser
	page    Page
}

// detachLocked takes ownership of the current handles. m.mu must be held.
func (m *Manager) detachLocked() handles {
	h := handles{browser: m.browser, page: m.page}
	m.browser = nil
	m.page = nil
	return h
}

// release closes the handles, ignoring errors from a browser that is gone.
func (h handles) release() {
	if h.page != nil {
		_ = h.page.Close()
	}
	if h.browser != nil {
		_ = h.browser.Close()
	}
}

func normalize(cfg SessionConfig) SessionConfig {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return cfg
}

func checkExecutable(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("browser executable %q not found: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("browser executable %q is a directory", path)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
