// Package browser drives the remote chat page through a headless browser.
//
// # Architecture
//
// The package is built around two layers:
//
//  1. Driver: a small capability interface (Driver, Browser, Page) covering
//     exactly what a prompt round trip needs. The production implementation is
//     backed by Playwright; tests substitute an in-memory fake.
//  2. Manager: owns one browser process and one page, and implements the
//     session lifecycle on top of the driver.
//
// # Session Lifecycle
//
//	Uninitialized -> Initializing -> Ready
//	Ready -> Disconnected (browser process went away)
//	Disconnected -> Initializing (next Initialize or SubmitPrompt)
//
// Initialize launches the browser, opens the endpoint and waits for the prompt
// input, retrying up to MaxRetries times with RetryDelay between attempts.
// SubmitPrompt types a prompt, waits for the completion indicator and returns
// the inner markup of the last response container. Failures caused by a
// disconnected browser are never retried.
//
// # Selectors
//
// Page elements are addressed by Role, never by literal selectors in code.
// The mapping from role to CSS selector lives in SessionConfig.Selectors so a
// change in the remote markup is a configuration change.
//
// # Example Usage
//
//	mgr := browser.NewManager(browser.NewPlaywrightDriver(), browser.StaticConfig(cfg))
//	defer mgr.Close()
//
//	if err := mgr.Initialize(ctx); err != nil {
//	    return err
//	}
//	html, err := mgr.SubmitPrompt(ctx, "Explain this stack trace")
package browser
