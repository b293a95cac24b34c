// Package dispatch executes the commands found in assistant replies against
// the local workspace.
//
// Each command is decoded into a typed directive, checked against the
// workspace boundary, gated behind consent when it has side effects, and
// turned into exactly one command.Result. Nothing here returns an error to the
// caller: every failure becomes a failed Result with a readable message.
package dispatch

import (
	"context"
	"errors"

	"github.com/entrhq/webpilot/pkg/approval"
	"github.com/entrhq/webpilot/pkg/command"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/security/workspace"
)

// Messages shared with the host and the tests.
const (
	msgNoWorkspace    = "No workspace folder is currently open."
	msgNoEditor       = "No active text editor found."
	msgNoSelection    = "No text selected. To allow, send allowEmpty=\"true\"."
	msgWriteDenied    = "User denied file write operation."
	msgTerminalDenied = "User denied terminal command execution."
	msgTerminalSent   = "Command sent to terminal for execution."
	msgNoTerminal     = "No terminal is available."
)

// Approver grants or denies side-effecting directives. *approval.Manager
// satisfies it.
type Approver interface {
	RequestApproval(ctx context.Context, req approval.Request) (approved bool, timedOut bool)
}

// Terminal receives command lines for the interactive shell.
type Terminal interface {
	SendText(line string) error
}

// Logger is the subset of *logging.Logger the dispatcher uses.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Dispatcher executes commands. It holds no reference to the browser
// session.
type Dispatcher struct {
	guard       *workspace.Guard
	approver    Approver
	terminal    Terminal
	editor      Editor
	diagnostics DiagnosticsSource
	maxFiles    int
	logger      Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkspace sets the workspace root. Without it, workspace directives
// fail with "No workspace folder is currently open."
func WithWorkspace(guard *workspace.Guard) Option {
	return func(d *Dispatcher) {
		d.guard = guard
	}
}

// WithTerminal sets the terminal that receives executeTerminal lines.
func WithTerminal(t Terminal) Option {
	return func(d *Dispatcher) {
		d.terminal = t
	}
}

// WithEditor sets the editor consulted by getActiveFileInfo and getSelection.
func WithEditor(e Editor) Option {
	return func(d *Dispatcher) {
		d.editor = e
	}
}

// WithDiagnostics sets the diagnostics source.
func WithDiagnostics(s DiagnosticsSource) Option {
	return func(d *Dispatcher) {
		d.diagnostics = s
	}
}

// WithMaxFiles caps getWorkspaceFiles.
func WithMaxFiles(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxFiles = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a dispatcher. approver is required for writeFile and
// executeTerminal; a nil approver denies both.
func New(approver Approver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		approver: approver,
		maxFiles: config.DefaultMaxFiles,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes commands strictly in order and returns one result per
// command.
func (d *Dispatcher) Run(ctx context.Context, commands []command.Command) []command.Result {
	results := make([]command.Result, 0, len(commands))
	for _, c := range commands {
		results = append(results, d.Execute(ctx, c))
	}
	return results
}

// Execute runs one command.
func (d *Dispatcher) Execute(ctx context.Context, c command.Command) command.Result {
	directive, err := command.Decode(c)
	if err != nil {
		if errors.Is(err, command.ErrUnknownAction) {
			return command.Failed(c.Action, "Unknown or unsupported action: '%s'.", c.Action)
		}
		return command.Failed(c.Action, "%s", err.Error())
	}

	d.logger.Infof("Executing %s", c)
	result := d.execute(ctx, directive)
	if !result.Success {
		d.logger.Warnf("Command %s failed: %s", c.Action, result.Error)
	}
	return result
}

func (d *Dispatcher) execute(ctx context.Context, directive command.Directive) command.Result {
	switch dir := directive.(type) {
	case command.ReadFile:
		return d.readFile(dir)
	case command.WriteFile:
		return d.writeFile(ctx, dir)
	case command.ExecuteTerminal:
		return d.executeTerminal(ctx, dir)
	case command.GetWorkspaceFiles:
		return d.workspaceFiles(ctx)
	case command.GetDiagnostics:
		return d.diagnosticsReport(ctx)
	case command.GetActiveFileInfo:
		return d.activeFileInfo()
	case command.GetSelection:
		return d.selection(dir)
	}
	return command.Failed(directive.Action(), "Unknown or unsupported action: '%s'.", directive.Action())
}

func (d *Dispatcher) executeTerminal(ctx context.Context, dir command.ExecuteTerminal) command.Result {
	action := dir.Action()
	if !d.approve(ctx, approval.Request{
		Action:   action,
		Target:   dir.Line,
		Question: approval.TerminalQuestion(dir.Line),
	}) {
		return command.Failed(action, msgTerminalDenied)
	}

	if d.terminal == nil {
		return command.Failed(action, msgNoTerminal)
	}
	if err := d.terminal.SendText(dir.Line); err != nil {
		return command.Failed(action, "Failed to send command to terminal: %v", err)
	}
	return command.Succeeded(action, msgTerminalSent)
}

// approve asks the approver; a missing approver or a timeout denies.
func (d *Dispatcher) approve(ctx context.Context, req approval.Request) bool {
	if d.approver == nil {
		return false
	}
	approved, timedOut := d.approver.RequestApproval(ctx, req)
	if timedOut {
		d.logger.Warnf("Consent for %s timed out", req.Action)
	}
	return approved && !timedOut
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}
