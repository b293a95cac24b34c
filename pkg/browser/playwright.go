package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	lastContainerHTMLScript = `(selector) => {
		const nodes = document.querySelectorAll(selector);
		if (nodes.length === 0) return "";
		return nodes[nodes.length - 1].innerHTML;
	}`

	lastContainerFilledScript = `(selector) => {
		const nodes = document.querySelectorAll(selector);
		return nodes.length > 0 && nodes[nodes.length - 1].innerHTML.trim().length > 0;
	}`
)

// PlaywrightDriver is the production Driver. The Playwright runtime is
// installed and started on the first Launch.
type PlaywrightDriver struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	runOptions *playwright.RunOptions
}

// NewPlaywrightDriver creates a driver that installs Chromium on demand.
func NewPlaywrightDriver() *PlaywrightDriver {
	// Discard driver output so it does not interleave with the console host
	return &PlaywrightDriver{
		runOptions: &playwright.RunOptions{
			Browsers: []string{"chromium"},
			Verbose:  false,
			Stdout:   io.Discard,
			Stderr:   io.Discard,
		},
	}
}

func (d *PlaywrightDriver) start() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playwright != nil {
		return d.playwright, nil
	}

	if err := playwright.Install(d.runOptions); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(d.runOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	d.playwright = pw
	return pw, nil
}

// Launch starts a Chromium process.
func (d *PlaywrightDriver) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := d.start()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: b}, nil
}

// Stop shuts the Playwright runtime down.
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playwright == nil {
		return nil
	}
	pw := d.playwright
	d.playwright = nil
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewPage() (Page, error) {
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (b *playwrightBrowser) OnDisconnected(fn func()) {
	b.browser.OnDisconnected(func(playwright.Browser) { fn() })
}

func (b *playwrightBrowser) IsConnected() bool {
	return b.browser.IsConnected()
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func milliseconds(d time.Duration) *float64 {
	ms := float64(d / time.Millisecond)
	return &ms
}

func (p *playwrightPage) Goto(url string, opts NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = milliseconds(opts.Timeout)
	}

	if _, err := p.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	opts := playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateVisible,
	}
	if timeout > 0 {
		opts.Timeout = milliseconds(timeout)
	}
	if _, err := p.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) Focus(selector string) error {
	if err := p.page.Focus(selector); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Clear(selector string) error {
	if err := p.page.Fill(selector, ""); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Type(selector, text string, delay time.Duration) error {
	opts := playwright.PageTypeOptions{}
	if delay > 0 {
		opts.Delay = milliseconds(delay)
	}
	if err := p.page.Type(selector, text, opts); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Press(key string) error {
	if err := p.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("press %s failed: %w", key, err)
	}
	return nil
}

func (p *playwrightPage) WaitForContent(selector string, timeout time.Duration) error {
	opts := playwright.PageWaitForFunctionOptions{}
	if timeout > 0 {
		opts.Timeout = milliseconds(timeout)
	}
	if _, err := p.page.WaitForFunction(lastContainerFilledScript, selector, opts); err != nil {
		return fmt.Errorf("wait for response content failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) LastInnerHTML(selector string) (string, error) {
	result, err := p.page.Evaluate(lastContainerHTMLScript, selector)
	if err != nil {
		return "", fmt.Errorf("response extraction failed: %w", err)
	}
	html, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("response extraction returned %T, expected string", result)
	}
	return html, nil
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
