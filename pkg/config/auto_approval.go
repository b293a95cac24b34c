package config

import (
	"fmt"

	"github.com/entrhq/webpilot/pkg/command"
)

// consentActions are the actions that prompt for consent.
var consentActions = []string{command.ActionWriteFile, command.ActionExecuteTerminal}

// ConsentActions returns the actions that require consent.
func ConsentActions() []string {
	return append([]string(nil), consentActions...)
}

// IsActionAutoApproved reports whether action skips the consent prompt.
// Returns false for unknown actions (default is to require approval).
// executeTerminal always requires approval or a whitelist match.
func (a ApprovalConfig) IsActionAutoApproved(action string) bool {
	if action == command.ActionExecuteTerminal {
		return false
	}
	return a.AutoApprove[action]
}

// SetAutoApproval sets the auto-approval status for a consent-gated action.
func (a *ApprovalConfig) SetAutoApproval(action string, enabled bool) error {
	if action == command.ActionExecuteTerminal {
		return fmt.Errorf("%s cannot be auto-approved; add a command_whitelist pattern instead", action)
	}
	known := false
	for _, name := range consentActions {
		if name == action {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("action %q does not require consent", action)
	}
	if a.AutoApprove == nil {
		a.AutoApprove = map[string]bool{}
	}
	a.AutoApprove[action] = enabled
	return nil
}
