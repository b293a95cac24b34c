package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/command"
)

// Severity names match what the remote side expects.
const (
	SeverityError   = "Error"
	SeverityWarning = "Warning"
)

// Range is a zero-based span inside a file.
type Range struct {
	StartLine int `json:"startLine"`
	StartChar int `json:"startChar"`
	EndLine   int `json:"endLine"`
	EndChar   int `json:"endChar"`
}

// Diagnostic is one problem reported for a file.
type Diagnostic struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Source   string `json:"source,omitempty"`
	Code     string `json:"code,omitempty"`
	Range    Range  `json:"range"`
}

// FileDiagnostics groups the diagnostics of one file.
type FileDiagnostics struct {
	FilePath    string       `json:"filePath"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// DiagnosticsSource produces diagnostics for the workspace at root. File
// paths may be absolute or relative to root.
type DiagnosticsSource interface {
	Diagnostics(ctx context.Context, root string) ([]FileDiagnostics, error)
}

// DefaultDiagnosticsTimeout bounds one diagnostics command run.
const DefaultDiagnosticsTimeout = 60 * time.Second

// CommandDiagnostics runs a shell command in the workspace and parses
// "file:line[:col]: message" lines from its combined output. A non-zero
// exit status is expected when problems are found and is not an error.
type CommandDiagnostics struct {
	Command string
	Timeout time.Duration
}

// Diagnostics runs the command. An empty command reports nothing.
func (c CommandDiagnostics) Diagnostics(ctx context.Context, root string) ([]FileDiagnostics, error) {
	if strings.TrimSpace(c.Command) == "" {
		return []FileDiagnostics{}, nil
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultDiagnosticsTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", c.Command)
	cmd.Dir = root
	cmd.WaitDelay = time.Second
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		return nil, fmt.Errorf("diagnostics command timed out after %s", timeout)
	case execCtx.Err() != nil:
		return nil, execCtx.Err()
	case err != nil:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run diagnostics command: %w", err)
		}
	}

	return ParseDiagnostics(output.String(), diagnosticsSourceName(c.Command)), nil
}

var diagnosticLine = regexp.MustCompile(`^(\S[^:]*):(\d+)(?::(\d+))?:\s*(.+)$`)

// ParseDiagnostics extracts "file:line[:col]: message" lines. Lines are
// one-based in the input and zero-based in the result. A "warning:" prefix on
// the message yields SeverityWarning, anything else SeverityError. Files keep
// the order in which they first appear.
func ParseDiagnostics(output, source string) []FileDiagnostics {
	result := []FileDiagnostics{}
	index := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := diagnosticLine.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r"))
		if m == nil {
			continue
		}

		line, err := strconv.Atoi(m[2])
		if err != nil || line < 1 {
			continue
		}
		char := 0
		if m[3] != "" {
			if col, err := strconv.Atoi(m[3]); err == nil && col > 0 {
				char = col - 1
			}
		}

		message, severity := splitSeverity(m[4])
		diag := Diagnostic{
			Message:  message,
			Severity: severity,
			Source:   source,
			Range:    Range{StartLine: line - 1, StartChar: char, EndLine: line - 1, EndChar: char},
		}

		file := m[1]
		i, ok := index[file]
		if !ok {
			i = len(result)
			index[file] = i
			result = append(result, FileDiagnostics{FilePath: file})
		}
		result[i].Diagnostics = append(result[i].Diagnostics, diag)
	}
	return result
}

func splitSeverity(message string) (string, string) {
	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, "warning:"):
		return strings.TrimSpace(message[len("warning:"):]), SeverityWarning
	case strings.HasPrefix(lower, "error:"):
		return strings.TrimSpace(message[len("error:"):]), SeverityError
	}
	return strings.TrimSpace(message), SeverityError
}

// diagnosticsSourceName is the program name of the command, e.g. "go".
func diagnosticsSourceName(commandLine string) string {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[0])
}

func (d *Dispatcher) diagnosticsReport(ctx context.Context) command.Result {
	action := command.ActionGetDiagnostics
	if d.guard == nil {
		return command.Failed(action, msgNoWorkspace)
	}
	if d.diagnostics == nil {
		return command.Succeeded(action, []FileDiagnostics{})
	}

	root := d.guard.WorkspaceDir()
	entries, err := d.diagnostics.Diagnostics(ctx, root)
	if err != nil {
		return command.Failed(action, "Failed to collect diagnostics: %v", err)
	}

	for i := range entries {
		path := filepath.FromSlash(entries[i].FilePath)
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		entries[i].FilePath = d.guard.Display(path)
	}
	return command.Succeeded(action, entries)
}
