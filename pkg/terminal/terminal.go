// Package terminal runs the interactive shell that executeTerminal lines are
// sent to. The shell lives in a pseudo-terminal so programs behave as they
// would in an editor's integrated terminal.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// ErrClosed is returned by SendText after Close.
var ErrClosed = errors.New("terminal is closed")

// Default pseudo-terminal size
const (
	DefaultRows = 24
	DefaultCols = 120
)

// Logger is the subset of *logging.Logger the terminal uses.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// Shell is a lazily started interactive shell. The shell starts on the first
// SendText and is restarted on the next one if it exits.
type Shell struct {
	program string
	dir     string
	output  io.Writer
	logger  Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	ptmx   *os.File
	done   chan struct{}
	closed bool
}

// New creates a shell that runs program (empty uses $SHELL, then /bin/sh)
// in dir, copying everything it prints to output.
func New(program, dir string, output io.Writer, logger Logger) *Shell {
	if output == nil {
		output = io.Discard
	}
	return &Shell{
		program: resolveProgram(program),
		dir:     dir,
		output:  output,
		logger:  logger,
	}
}

func resolveProgram(program string) string {
	if strings.TrimSpace(program) != "" {
		return program
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// SendText writes line to the shell followed by a newline, so it executes
// immediately.
func (s *Shell) SendText(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.ensureStartedLocked(); err != nil {
		return err
	}

	if _, err := io.WriteString(s.ptmx, strings.TrimRight(line, "\r\n")+"\n"); err != nil {
		return fmt.Errorf("failed to write to terminal: %w", err)
	}
	s.logger.Infof("Sent to terminal: %s", line)
	return nil
}

// Running reports whether the shell process is alive.
func (s *Shell) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Shell) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Shell) ensureStartedLocked() error {
	if s.runningLocked() {
		return nil
	}
	if s.ptmx != nil {
		s.ptmx.Close()
		s.ptmx = nil
	}

	cmd := exec.Command(s.program)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: DefaultRows, Cols: DefaultCols})
	if err != nil {
		return fmt.Errorf("failed to start terminal %s: %w", s.program, err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.ptmx = ptmx
	s.done = done
	s.logger.Infof("Terminal started: %s (pid %d) in %s", s.program, cmd.Process.Pid, s.dir)

	// Output copy ends when the pty closes, which happens when the shell exits
	go func() {
		_, _ = io.Copy(s.output, ptmx)
	}()
	go func() {
		err := cmd.Wait()
		if err != nil {
			s.logger.Warnf("Terminal exited: %v", err)
		} else {
			s.logger.Infof("Terminal exited")
		}
		close(done)
	}()
	return nil
}

// Close terminates the shell. It is safe to call more than once.
func (s *Shell) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd, ptmx, done := s.cmd, s.ptmx, s.done
	running := s.runningLocked()
	s.mu.Unlock()

	if ptmx != nil {
		ptmx.Close()
	}
	if running && cmd.Process != nil {
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}
