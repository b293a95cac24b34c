package browser

import (
	"context"
	"time"
)

// Driver launches browser processes.
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	// Stop releases driver-wide resources. Launch may be called again later.
	Stop() error
}

// Browser is one running browser process.
type Browser interface {
	NewPage() (Page, error)
	// OnDisconnected registers fn to run when the process goes away. fn may
	// be called from a driver goroutine.
	OnDisconnected(fn func())
	IsConnected() bool
	Close() error
}

// Page is the subset of page operations a prompt round trip needs.
type Page interface {
	Goto(url string, opts NavigateOptions) error
	WaitForSelector(selector string, timeout time.Duration) error
	Focus(selector string) error
	Clear(selector string) error
	Type(selector, text string, delay time.Duration) error
	Press(key string) error
	// WaitForContent waits until the last element matching selector has
	// non-empty inner markup.
	WaitForContent(selector string, timeout time.Duration) error
	// LastInnerHTML returns the inner markup of the last element matching
	// selector, or "" when nothing matches.
	LastInnerHTML(selector string) (string, error)
	Close() error
}
