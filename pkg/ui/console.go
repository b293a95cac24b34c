package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
)

// ErrNoEditor is returned by InsertIntoEditor when no document is open and
// the clipboard is unavailable.
var ErrNoEditor = errors.New("no editor to insert into")

// Console is a line-oriented Host on a reader and a writer, normally
// stdin and stdout.
type Console struct {
	out      io.Writer
	lines    chan string
	renderer *glamour.TermRenderer
	editor   *Buffer
	copy     func(string) error
	now      func() time.Time

	mu           sync.Mutex
	status       string
	statusExpiry time.Time
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithClipboard replaces the system clipboard used when no document is open.
// A nil function disables the fallback.
func WithClipboard(copyFn func(string) error) ConsoleOption {
	return func(c *Console) {
		c.copy = copyFn
	}
}

// WithWordWrap sets the markdown wrap width.
func WithWordWrap(width int) ConsoleOption {
	return func(c *Console) {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width)); err == nil {
			c.renderer = r
		}
	}
}

// NewConsole creates a console reading lines from in. Responses are
// inserted into editor.
func NewConsole(in io.Reader, out io.Writer, editor *Buffer, opts ...ConsoleOption) *Console {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	c := &Console{
		out:      out,
		lines:    make(chan string),
		renderer: renderer,
		editor:   editor,
		now:      time.Now,
	}
	if !clipboard.Unsupported {
		c.copy = clipboard.WriteAll
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLines(in)
	return c
}

// readLines feeds input lines to readers; the channel closes at EOF
func (c *Console) readLines(in io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
}

// ReadLine waits for the next input line. It returns io.EOF once input is
// exhausted.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimRight(line, "\r"), nil
	}
}

// Editor returns the buffer responses are inserted into.
func (c *Console) Editor() *Buffer {
	return c.editor
}

// GetUserInput prints prompt and reads one line.
func (c *Console) GetUserInput(ctx context.Context, prompt string) (string, bool, error) {
	c.print(promptStyle.Render(prompt) + " ")
	line, err := c.ReadLine(ctx)
	if err != nil {
		return "", false, err
	}
	line = strings.TrimSpace(line)
	return line, line != "", nil
}

// Confirm prints the question and detail, then reads y/yes as consent.
// Anything else, including cancellation, is a refusal.
func (c *Console) Confirm(ctx context.Context, question, detail string) (bool, error) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(warningStyle.Render(question))
	b.WriteString("\n")
	if strings.TrimSpace(detail) != "" {
		b.WriteString(detailStyle.Render(colorDiff(strings.TrimRight(detail, "\n"))))
		b.WriteString("\n")
	}
	b.WriteString(promptStyle.Render("Allow? [y/N]") + " ")
	c.print(b.String())

	line, err := c.ReadLine(ctx)
	if err != nil {
		c.println("")
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// LogOutput writes "[15:04:05] message".
func (c *Console) LogOutput(message string) {
	c.println(logStyle.Render(fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), message)))
}

// ShowStatusBarMessage prints the status line and remembers it for Status.
func (c *Console) ShowStatusBarMessage(message string, loading bool, duration time.Duration) {
	c.mu.Lock()
	c.status = message
	c.statusExpiry = time.Time{}
	if duration > 0 {
		c.statusExpiry = c.now().Add(duration)
	}
	c.mu.Unlock()

	if message == "" {
		return
	}
	if loading {
		message = "⟳ " + message
	}
	c.println(statusStyle.Render(message))
}

// Status returns the current status message, or "" once it has expired.
func (c *Console) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.statusExpiry.IsZero() && c.now().After(c.statusExpiry) {
		c.status = ""
		c.statusExpiry = time.Time{}
	}
	return c.status
}

// ShowResponse renders markdown in the terminal.
func (c *Console) ShowResponse(markdown, title string) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")

	rendered := markdown + "\n"
	if c.renderer != nil {
		if out, err := c.renderer.Render(markdown); err == nil {
			rendered = out
		}
	}
	b.WriteString(rendered)
	c.print(b.String())
}

// InsertIntoEditor inserts at the cursor of the open document. With no
// document open the text goes to the clipboard instead.
func (c *Console) InsertIntoEditor(text string) error {
	if c.editor != nil {
		err := c.editor.Insert(text)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoDocument) {
			return err
		}
	}

	if c.copy == nil {
		return ErrNoEditor
	}
	if err := c.copy(text); err != nil {
		return fmt.Errorf("%w: clipboard: %v", ErrNoEditor, err)
	}
	c.println(successStyle.Render("No document open; response copied to the clipboard."))
	return nil
}

// ShowWarning prints a warning.
func (c *Console) ShowWarning(message string) {
	c.println(warningStyle.Render("warning: " + message))
}

// ShowError prints an error.
func (c *Console) ShowError(message string) {
	c.println(errorStyle.Render("error: " + message))
}

// ShowInfo prints a plain informational line.
func (c *Console) ShowInfo(message string) {
	c.println(successStyle.Render(message))
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

func (c *Console) println(s string) {
	c.print(s + "\n")
}

// colorDiff colors unified diff lines; other text passes through.
func colorDiff(detail string) string {
	lines := strings.Split(detail, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffRemoveStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
