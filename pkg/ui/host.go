// Package ui is the host side of an interaction: reading prompts, showing
// progress and responses, asking for consent, and the in-memory editor that
// responses are inserted into.
package ui

import (
	"context"
	"time"
)

// Host is what the orchestrator needs from the user interface.
type Host interface {
	// GetUserInput asks for a line of text. ok is false when the user
	// entered nothing.
	GetUserInput(ctx context.Context, prompt string) (text string, ok bool, err error)

	// LogOutput appends a timestamped line to the output log.
	LogOutput(message string)

	// ShowStatusBarMessage replaces the status message. An empty message
	// clears it; a positive duration clears it after that long.
	ShowStatusBarMessage(message string, loading bool, duration time.Duration)

	// ShowResponse renders a markdown response under title.
	ShowResponse(markdown, title string)

	// InsertIntoEditor inserts text at the cursor of the active document.
	InsertIntoEditor(text string) error

	ShowWarning(message string)
	ShowError(message string)

	// Confirm asks a yes/no question with an optional detail block.
	Confirm(ctx context.Context, question, detail string) (bool, error)
}
