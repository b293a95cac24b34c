package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/dispatch"
	"github.com/entrhq/webpilot/pkg/orchestrator"
	"github.com/entrhq/webpilot/pkg/security/workspace"
	"github.com/entrhq/webpilot/pkg/ui"
)

const replHelp = `Commands:
  <prompt>                 ask the assistant and show the reply
  /ask <prompt>            same as above
  /insert <prompt>         insert the reply's code into the open document
  /open <path>             open a document (created on save if missing)
  /new                     open an untitled document
  /select <l:c>[-<l:c>]    move the cursor or select a range (1-based)
  /show                    print the open document
  /save                    save the open document
  /close                   close the open document
  /status                  show session, workspace and document state
  /help                    show this help
  /quit                    exit
`

// repl reads commands from the console until input ends or ctx is done.
type repl struct {
	console *ui.Console
	orch    *orchestrator.Orchestrator
	editor  *ui.Buffer
	session *browser.Manager
	guard   *workspace.Guard
	out     io.Writer
}

var errQuit = errors.New("quit")

func (r *repl) Run(ctx context.Context) error {
	r.console.ShowInfo("webpilot ready. Type /help for commands.")
	for {
		line, ok, err := r.console.GetUserInput(ctx, "webpilot>")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if err := r.handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.console.ShowError(err.Error())
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) error {
	name, arg := splitCommand(line)

	switch name {
	case "", "ask":
		// failures are reported to the console by the orchestrator
		_, _ = r.orch.Ask(ctx, arg)
	case "insert":
		_, _ = r.orch.Insert(ctx, arg)
	case "open":
		if arg == "" {
			return fmt.Errorf("usage: /open <path>")
		}
		path, err := r.documentPath(arg)
		if err != nil {
			return err
		}
		if err := r.editor.Open(path); err != nil {
			return err
		}
		r.console.ShowInfo("Opened " + path)
	case "new":
		r.editor.New()
		doc, _ := r.editor.ActiveDocument()
		r.console.ShowInfo("Opened " + doc.Name)
	case "select":
		anchor, active, err := parseSelection(arg)
		if err != nil {
			return err
		}
		return r.editor.Select(anchor, active)
	case "show":
		if _, ok := r.editor.ActiveDocument(); !ok {
			return ui.ErrNoDocument
		}
		fmt.Fprintln(r.out, r.editor.Text())
	case "save":
		if err := r.editor.Save(); err != nil {
			return err
		}
		r.console.ShowInfo("Saved.")
	case "close":
		r.editor.Close()
	case "status":
		r.printStatus()
	case "help":
		fmt.Fprint(r.out, replHelp)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command /%s, type /help for commands", name)
	}
	return nil
}

// documentPath resolves relative paths against the workspace when one is
// open, otherwise against the working directory.
func (r *repl) documentPath(path string) (string, error) {
	if !filepath.IsAbs(path) && r.guard != nil {
		path = filepath.Join(r.guard.WorkspaceDir(), path)
	}
	return filepath.Abs(path)
}

func (r *repl) printStatus() {
	fmt.Fprintf(r.out, "Session:   %s\n", r.session.State())
	fmt.Fprintf(r.out, "Endpoint:  %s\n", r.session.Config().Endpoint)
	if r.guard != nil {
		fmt.Fprintf(r.out, "Workspace: %s\n", r.guard.WorkspaceDir())
	} else {
		fmt.Fprintf(r.out, "Workspace: (none)\n")
	}
	if doc, ok := r.editor.ActiveDocument(); ok {
		dirty := ""
		if doc.IsDirty {
			dirty = " (modified)"
		}
		fmt.Fprintf(r.out, "Document:  %s [%s, %d lines]%s\n", doc.Name, doc.LanguageID, doc.LineCount, dirty)
	} else {
		fmt.Fprintf(r.out, "Document:  (none)\n")
	}
	if status := r.console.Status(); status != "" {
		fmt.Fprintf(r.out, "Status:    %s\n", status)
	}
}

// splitCommand splits "/name rest" into its parts. Lines without a leading
// slash have an empty name and are prompts.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	name, rest, _ := strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}

// parseSelection parses "l:c" or "l:c-l:c" with 1-based lines and columns.
// A single position moves the cursor without selecting.
func parseSelection(arg string) (dispatch.Position, dispatch.Position, error) {
	if arg == "" {
		return dispatch.Position{}, dispatch.Position{}, fmt.Errorf("usage: /select <line:col>[-<line:col>]")
	}

	from, to, isRange := strings.Cut(arg, "-")
	anchor, err := parsePosition(from)
	if err != nil {
		return dispatch.Position{}, dispatch.Position{}, err
	}
	if !isRange {
		return anchor, anchor, nil
	}
	active, err := parsePosition(to)
	if err != nil {
		return dispatch.Position{}, dispatch.Position{}, err
	}
	return anchor, active, nil
}

func parsePosition(s string) (dispatch.Position, error) {
	lineText, colText, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		colText = "1"
	}
	line, err := strconv.Atoi(strings.TrimSpace(lineText))
	if err != nil || line < 1 {
		return dispatch.Position{}, fmt.Errorf("invalid line in position %q", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(colText))
	if err != nil || col < 1 {
		return dispatch.Position{}, fmt.Errorf("invalid column in position %q", s)
	}
	return dispatch.Position{Line: line - 1, Character: col - 1}, nil
}
