// Package command defines the directives a remote reply can embed and the
// results produced by executing them.
//
// A Command is the untyped form found in the reply text: an action name plus
// string parameters. Decode validates a Command into one of a closed set of
// typed directives, so the dispatcher never inspects raw parameter maps.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action names understood by the dispatcher.
const (
	ActionReadFile          = "readFile"
	ActionWriteFile         = "writeFile"
	ActionExecuteTerminal   = "executeTerminal"
	ActionGetWorkspaceFiles = "getWorkspaceFiles"
	ActionGetDiagnostics    = "getDiagnostics"
	ActionGetActiveFileInfo = "getActiveFileInfo"
	ActionGetSelection      = "getSelection"
)

// Command is one directive occurrence, in source order.
type Command struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// Param returns the named parameter and whether it was present.
func (c Command) Param(key string) (string, bool) {
	if c.Params == nil {
		return "", false
	}
	v, ok := c.Params[key]
	return v, ok
}

// quoteEscaper escapes every quote character so backslashes preceding one
// stay literal when scanned back.
var quoteEscaper = strings.NewReplacer(`"`, `\"`, `'`, `\'`, "`", "\\`")

// String renders the command in the bracket grammar. The grammar has no
// escape for a backslash right before the closing quote, so a value ending in
// a backslash is rendered for logs only and does not scan back.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString("[VSCODE_COMMAND: ")
	b.WriteString(c.Action)
	for _, k := range sortedKeys(c.Params) {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(quoteEscaper.Replace(c.Params[k]))
		b.WriteString(`"`)
	}
	b.WriteString("]")
	return b.String()
}

// IsParamless reports whether action may appear without any parameters.
func IsParamless(action string) bool {
	switch action {
	case ActionGetWorkspaceFiles, ActionGetDiagnostics, ActionGetActiveFileInfo, ActionGetSelection:
		return true
	}
	return false
}

// ErrUnknownAction is returned by Decode for actions outside the fixed set.
var ErrUnknownAction = errors.New("unknown action")

// ValidationError describes a missing or malformed parameter.
type ValidationError struct {
	Action string
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Missing or invalid '%s' parameter for %s (%s).", e.Param, e.Action, e.Reason)
}

// Directive is a validated command. The set of implementations is closed.
type Directive interface {
	Action() string
	directive()
}

// ReadFile reads a workspace file.
type ReadFile struct{ Path string }

// WriteFile overwrites a workspace file. Content may be empty.
type WriteFile struct {
	Path    string
	Content string
}

// ExecuteTerminal sends a line to the interactive terminal.
type ExecuteTerminal struct{ Line string }

// GetWorkspaceFiles lists workspace files.
type GetWorkspaceFiles struct{}

// GetDiagnostics lists diagnostics grouped by file.
type GetDiagnostics struct{}

// GetActiveFileInfo describes the active document.
type GetActiveFileInfo struct{}

// GetSelection describes the editor selection.
type GetSelection struct{ AllowEmpty bool }

func (ReadFile) Action() string          { return ActionReadFile }
func (WriteFile) Action() string         { return ActionWriteFile }
func (ExecuteTerminal) Action() string   { return ActionExecuteTerminal }
func (GetWorkspaceFiles) Action() string { return ActionGetWorkspaceFiles }
func (GetDiagnostics) Action() string    { return ActionGetDiagnostics }
func (GetActiveFileInfo) Action() string { return ActionGetActiveFileInfo }
func (GetSelection) Action() string      { return ActionGetSelection }

func (ReadFile) directive()          {}
func (WriteFile) directive()         {}
func (ExecuteTerminal) directive()   {}
func (GetWorkspaceFiles) directive() {}
func (GetDiagnostics) directive()    {}
func (GetActiveFileInfo) directive() {}
func (GetSelection) directive()      {}

// Decode validates c into its typed directive.
func Decode(c Command) (Directive, error) {
	switch c.Action {
	case ActionReadFile:
		path, err := requireNonEmpty(c, "path")
		if err != nil {
			return nil, err
		}
		return ReadFile{Path: path}, nil

	case ActionWriteFile:
		path, err := requireNonEmpty(c, "path")
		if err != nil {
			return nil, err
		}
		content, ok := c.Param("content")
		if !ok {
			return nil, &ValidationError{Action: c.Action, Param: "content", Reason: "must be present, may be empty"}
		}
		return WriteFile{Path: path, Content: content}, nil

	case ActionExecuteTerminal:
		line, err := requireNonEmpty(c, "command")
		if err != nil {
			return nil, err
		}
		return ExecuteTerminal{Line: line}, nil

	case ActionGetWorkspaceFiles:
		return GetWorkspaceFiles{}, nil

	case ActionGetDiagnostics:
		return GetDiagnostics{}, nil

	case ActionGetActiveFileInfo:
		return GetActiveFileInfo{}, nil

	case ActionGetSelection:
		raw, ok := c.Param("allowEmpty")
		if !ok || strings.TrimSpace(raw) == "" {
			return GetSelection{}, nil
		}
		allow, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ValidationError{Action: c.Action, Param: "allowEmpty", Reason: "must be true or false"}
		}
		return GetSelection{AllowEmpty: allow}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
}

func requireNonEmpty(c Command, key string) (string, error) {
	v, ok := c.Param(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &ValidationError{Action: c.Action, Param: key, Reason: "must be a non-empty string"}
	}
	return v, nil
}
