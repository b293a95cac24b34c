package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected matches errors caused by the browser process going away
	ErrDisconnected = errors.New("browser disconnected")

	// ErrNotInitialized is returned when a prompt is submitted without a
	// usable session
	ErrNotInitialized = errors.New("browser not initialized")
)

// Kind classifies a session failure.
type Kind int

const (
	// KindConfiguration is a bad session configuration; never retried
	KindConfiguration Kind = iota + 1
	// KindLaunch is Initialize exhausting its attempts
	KindLaunch
	// KindSubmission is SubmitPrompt exhausting its attempts
	KindSubmission
	// KindDisconnect is a submission aborted by a browser disconnect
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindLaunch:
		return "launch"
	case KindSubmission:
		return "submission"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Error is returned by Manager operations.
type Error struct {
	Kind Kind
	// Attempts is the number of attempts made before giving up
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return fmt.Sprintf("invalid browser configuration: %v", e.Err)
	case KindLaunch:
		return fmt.Sprintf("failed to initialize browser after %d attempts: %v", e.Attempts, e.Err)
	case KindSubmission:
		return fmt.Sprintf("failed to submit prompt after %d attempts: %v", e.Attempts, e.Err)
	case KindDisconnect:
		return fmt.Sprintf("browser disconnected during prompt submission: %v", e.Err)
	default:
		return fmt.Sprintf("browser error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDisconnected) match disconnect failures.
func (e *Error) Is(target error) bool {
	return target == ErrDisconnected && e.Kind == KindDisconnect
}
