package browser

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeDriver scripts browser behaviour for manager tests.
type fakeDriver struct {
	mu sync.Mutex

	launchErrs []error // consumed per Launch call, nil entries succeed
	launches   int
	stops      int
	browsers   []*fakeBrowser

	// newPage configures each page created by subsequently launched browsers
	newPage func() *fakePage
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		newPage: func() *fakePage { return &fakePage{response: "<p>Hello</p>"} },
	}
}

func (d *fakeDriver) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.launches++
	if len(d.launchErrs) > 0 {
		err := d.launchErrs[0]
		d.launchErrs = d.launchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	b := &fakeBrowser{connected: true, opts: opts, page: d.newPage()}
	b.page.browser = b
	d.browsers = append(d.browsers, b)
	return b, nil
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDriver) launchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

func (d *fakeDriver) lastBrowser() *fakeBrowser {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.browsers) == 0 {
		return nil
	}
	return d.browsers[len(d.browsers)-1]
}

type fakeBrowser struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	opts      LaunchOptions
	listeners []func()
	page      *fakePage
}

func (b *fakeBrowser) NewPage() (Page, error) {
	return b.page, nil
}

func (b *fakeBrowser) OnDisconnected(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *fakeBrowser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.disconnect()
	return nil
}

// disconnect simulates the process going away.
func (b *fakeBrowser) disconnect() {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return
	}
	b.connected = false
	listeners := append([]func(){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (b *fakeBrowser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type fakePage struct {
	mu      sync.Mutex
	browser *fakeBrowser

	gotoErr       error
	completionErr error
	response      string
	// submitHook runs when Enter is pressed
	submitHook func(p *fakePage)

	visited []string
	typed   []string
	presses int
	clears  int
	closed  bool
}

func (p *fakePage) Goto(url string, opts NavigateOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	return p.gotoErr
}

func (p *fakePage) WaitForSelector(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.browser.IsConnected() {
		return errors.New("target closed")
	}
	if selector == DefaultCompletionIndicatorSelector && p.completionErr != nil {
		return p.completionErr
	}
	return nil
}

func (p *fakePage) Focus(selector string) error { return nil }

func (p *fakePage) Clear(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	return nil
}

func (p *fakePage) Type(selector, text string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed = append(p.typed, text)
	return nil
}

func (p *fakePage) Press(key string) error {
	p.mu.Lock()
	p.presses++
	hook := p.submitHook
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *fakePage) WaitForContent(selector string, timeout time.Duration) error {
	if !p.browser.IsConnected() {
		return errors.New("target closed")
	}
	return nil
}

func (p *fakePage) LastInnerHTML(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// sleepRecorder replaces the retry sleep and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}
