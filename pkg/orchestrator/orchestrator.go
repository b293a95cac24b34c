// Package orchestrator runs one interaction at a time: it submits a prompt
// through the browser session, parses the reply, executes the commands it
// contains in order, and hands the result to the host.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/command"
	"github.com/entrhq/webpilot/pkg/parser"
	"github.com/entrhq/webpilot/pkg/ui"
)

// ErrEmptyPrompt is returned when the prompt is blank.
var ErrEmptyPrompt = errors.New("no prompt provided")

// Status display durations
const (
	statusDoneDuration  = 3 * time.Second
	statusErrorDuration = 5 * time.Second
)

// Session is the browser session. *browser.Manager satisfies it.
type Session interface {
	IsInitialized() bool
	Initialize(ctx context.Context) error
	SubmitPrompt(ctx context.Context, text string) (string, error)
}

// Executor runs one command. *dispatch.Dispatcher satisfies it.
type Executor interface {
	Execute(ctx context.Context, c command.Command) command.Result
}

// Logger is the subset of *logging.Logger the orchestrator uses.
type Logger interface {
	Infof(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Mode selects what happens with a parsed reply.
type Mode int

const (
	// ModeAsk shows the reply text
	ModeAsk Mode = iota
	// ModeInsert inserts the reply's code blocks, or its text, into the editor
	ModeInsert
)

func (m Mode) String() string {
	if m == ModeInsert {
		return "insert"
	}
	return "ask"
}

// Interaction is the outcome of one prompt.
type Interaction struct {
	Prompt   string
	Mode     Mode
	Response parser.ParsedResponse
	Results  []command.Result
	Duration time.Duration
}

// Failed returns the results of commands that did not succeed.
func (i *Interaction) Failed() []command.Result {
	var failed []command.Result
	for _, r := range i.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// Orchestrator serializes interactions over one session.
type Orchestrator struct {
	session  Session
	parser   *parser.Parser
	executor Executor
	host     ui.Host
	logger   Logger
	now      func() time.Time

	mu sync.Mutex
}

// New creates an orchestrator.
func New(session Session, p *parser.Parser, executor Executor, host ui.Host, logger Logger) *Orchestrator {
	if p == nil {
		p = parser.New(nil)
	}
	return &Orchestrator{
		session:  session,
		parser:   p,
		executor: executor,
		host:     host,
		logger:   logger,
		now:      time.Now,
	}
}

// Ask submits prompt and shows the reply text.
func (o *Orchestrator) Ask(ctx context.Context, prompt string) (*Interaction, error) {
	return o.Run(ctx, prompt, ModeAsk)
}

// Insert submits prompt and inserts the reply into the active document.
func (o *Orchestrator) Insert(ctx context.Context, prompt string) (*Interaction, error) {
	return o.Run(ctx, prompt, ModeInsert)
}

// Run performs one interaction. Only one runs at a time; concurrent callers
// wait their turn. When the reply cannot be delivered to the host, the
// interaction is returned with the error so the executed commands' results
// are not lost.
func (o *Orchestrator) Run(ctx context.Context, prompt string, mode Mode) (*Interaction, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		o.host.ShowStatusBarMessage("No prompt provided.", false, statusDoneDuration)
		return nil, ErrEmptyPrompt
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.now()
	interaction, err := o.run(ctx, prompt, mode)
	if interaction != nil {
		interaction.Duration = o.now().Sub(start)
	}
	if err != nil {
		o.logger.Errorf("Interaction (%s) failed: %v", mode, err)
		o.host.LogOutput(fmt.Sprintf("Error in '%s': %v", mode, err))
		o.host.ShowError(fmt.Sprintf("Request failed: %v", err))
		o.host.ShowStatusBarMessage("Error occurred. Check the output log.", false, statusErrorDuration)
		return interaction, err
	}
	o.logger.Infof("Interaction (%s) finished in %s with %d command(s)", mode, interaction.Duration, len(interaction.Results))
	return interaction, nil
}

func (o *Orchestrator) run(ctx context.Context, prompt string, mode Mode) (*Interaction, error) {
	if !o.session.IsInitialized() {
		o.host.ShowStatusBarMessage("Initializing browser session...", true, 0)
		if err := o.session.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	o.host.ShowStatusBarMessage("Sending prompt...", true, 0)
	raw, err := o.session.SubmitPrompt(ctx, prompt)
	if err != nil {
		return nil, err
	}

	o.host.ShowStatusBarMessage("Parsing response...", true, 0)
	response := o.parser.Parse(raw)

	interaction := &Interaction{
		Prompt:   prompt,
		Mode:     mode,
		Response: response,
		Results:  o.execute(ctx, response.Commands, mode),
	}

	switch mode {
	case ModeInsert:
		if err := o.host.InsertIntoEditor(InsertText(response)); err != nil {
			return interaction, fmt.Errorf("failed to insert response: %w", err)
		}
		o.host.ShowStatusBarMessage("Inserted response into editor.", false, statusDoneDuration)
	default:
		o.host.ShowResponse(response.Text, "Response")
		o.host.ShowStatusBarMessage("Response displayed.", false, statusDoneDuration)
	}
	return interaction, nil
}

// execute runs commands in source order. Failures are reported and do not
// stop the remaining commands.
func (o *Orchestrator) execute(ctx context.Context, commands []command.Command, mode Mode) []command.Result {
	if len(commands) == 0 {
		return nil
	}

	suffix := ""
	if mode == ModeInsert {
		suffix = " for insert"
	}
	o.host.LogOutput(fmt.Sprintf("Executing %d command(s)%s...", len(commands), suffix))

	results := make([]command.Result, 0, len(commands))
	for _, c := range commands {
		if err := ctx.Err(); err != nil {
			results = append(results, command.Failed(c.Action, "Cancelled: %v", err))
			continue
		}

		result := o.executor.Execute(ctx, c)
		results = append(results, result)

		if result.Success {
			o.host.LogOutput(fmt.Sprintf("Executed command '%s'%s: %s", c.Action, suffix, result.OutputJSON()))
			continue
		}
		msg := fmt.Sprintf("Failed to execute command '%s'%s: %s", c.Action, suffix, result.Error)
		o.host.LogOutput(msg)
		o.host.ShowWarning(msg)
	}
	return results
}

// NotifyDisconnect tells the user the browser went away. It is meant to be
// passed to browser.WithDisconnectHandler.
func (o *Orchestrator) NotifyDisconnect() {
	o.host.ShowWarning("The browser disconnected. It will be relaunched on the next prompt.")
}

// InsertText is what the insert flow puts into the editor: every code block
// fenced with its language, or the reply text when there are none.
func InsertText(response parser.ParsedResponse) string {
	if len(response.CodeBlocks) == 0 {
		return response.Text
	}

	var b strings.Builder
	for _, block := range response.CodeBlocks {
		b.WriteString("```")
		b.WriteString(block.Language)
		b.WriteString("\n")
		b.WriteString(block.Code)
		b.WriteString("\n```\n\n")
	}
	return b.String()
}
