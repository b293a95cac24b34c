package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/entrhq/webpilot/pkg/dispatch"
)

// ErrNoDocument is returned by Buffer operations when nothing is open.
var ErrNoDocument = errors.New("no document is open")

// Buffer is a single-document in-memory editor. It provides the active
// document, cursor and selection that getActiveFileInfo, getSelection and
// insert operate on.
type Buffer struct {
	mu sync.Mutex

	open     bool
	path     string // absolute; empty for untitled
	name     string
	language string
	lines    []string
	crlf     bool
	dirty    bool
	version  int
	untitled int

	anchor dispatch.Position
	active dispatch.Position
}

// NewBuffer returns an editor with no open document.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Open loads path into the buffer, replacing the current document. A missing
// file opens as an empty document that is created on Save.
func (b *Buffer) Open(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.load(absPath, filepath.Base(absPath), string(content))
	return nil
}

// New opens an empty untitled document.
func (b *Buffer) New() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.untitled++
	b.load("", fmt.Sprintf("Untitled-%d", b.untitled), "")
}

func (b *Buffer) load(absPath, name, content string) {
	b.open = true
	b.path = absPath
	b.name = name
	b.crlf = strings.Contains(content, "\r\n")
	b.lines = strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	b.dirty = false
	b.version = 1
	b.anchor = dispatch.Position{}
	b.active = dispatch.Position{}
	b.language = detectLanguage(name)
}

// Close discards the document.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.path, b.name, b.language = "", "", ""
	b.lines = nil
	b.crlf, b.dirty = false, false
	b.version = 0
	b.anchor, b.active = dispatch.Position{}, dispatch.Position{}
}

// Save writes the document to its path.
func (b *Buffer) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoDocument
	}
	if b.path == "" {
		return fmt.Errorf("%s has no file path", b.name)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(b.path, []byte(b.textLocked()), 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", b.name, err)
	}
	b.dirty = false
	return nil
}

// Text returns the whole document with its original line endings.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textLocked()
}

func (b *Buffer) textLocked() string {
	eol := "\n"
	if b.crlf {
		eol = "\r\n"
	}
	return strings.Join(b.lines, eol)
}

// Select sets the selection. Positions are clamped to the document.
func (b *Buffer) Select(anchor, active dispatch.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoDocument
	}
	b.anchor = b.clamp(anchor)
	b.active = b.clamp(active)
	return nil
}

func (b *Buffer) clamp(p dispatch.Position) dispatch.Position {
	if p.Line < 0 {
		p.Line = 0
	}
	if p.Line >= len(b.lines) {
		p.Line = len(b.lines) - 1
	}
	if p.Character < 0 {
		p.Character = 0
	}
	if n := len([]rune(b.lines[p.Line])); p.Character > n {
		p.Character = n
	}
	return p
}

// Insert inserts text at the cursor and moves the cursor, with an empty
// selection, to the end of the inserted text.
func (b *Buffer) Insert(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoDocument
	}

	at := b.active
	line := []rune(b.lines[at.Line])
	before, after := string(line[:at.Character]), string(line[at.Character:])

	inserted := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	end := dispatch.Position{Line: at.Line + len(inserted) - 1}
	if len(inserted) == 1 {
		end.Character = at.Character + len([]rune(inserted[0]))
	} else {
		end.Character = len([]rune(inserted[len(inserted)-1]))
	}

	inserted[0] = before + inserted[0]
	inserted[len(inserted)-1] += after

	lines := make([]string, 0, len(b.lines)+len(inserted)-1)
	lines = append(lines, b.lines[:at.Line]...)
	lines = append(lines, inserted...)
	lines = append(lines, b.lines[at.Line+1:]...)
	b.lines = lines

	b.anchor, b.active = end, end
	b.dirty = true
	b.version++
	return nil
}

// ActiveDocument describes the open document.
func (b *Buffer) ActiveDocument() (dispatch.DocumentInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return dispatch.DocumentInfo{}, false
	}
	eol := "LF"
	if b.crlf {
		eol = "CRLF"
	}
	return dispatch.DocumentInfo{
		Path:       b.path,
		Name:       b.name,
		LanguageID: b.language,
		LineCount:  len(b.lines),
		IsDirty:    b.dirty,
		IsUntitled: b.path == "",
		EOL:        eol,
		Version:    b.version,
	}, true
}

// Selection returns the current selection and its text.
func (b *Buffer) Selection() (dispatch.Selection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return dispatch.Selection{}, false
	}
	sel := dispatch.Selection{Anchor: b.anchor, Active: b.active}
	sel.Text = b.rangeText(sel.Start(), sel.End())
	return sel, true
}

func (b *Buffer) rangeText(start, end dispatch.Position) string {
	if start == end {
		return ""
	}
	if start.Line == end.Line {
		line := []rune(b.lines[start.Line])
		return string(line[start.Character:end.Character])
	}

	var sb strings.Builder
	sb.WriteString(string([]rune(b.lines[start.Line])[start.Character:]))
	for i := start.Line + 1; i < end.Line; i++ {
		sb.WriteString("\n")
		sb.WriteString(b.lines[i])
	}
	sb.WriteString("\n")
	sb.WriteString(string([]rune(b.lines[end.Line])[:end.Character]))
	return sb.String()
}

// detectLanguage maps a file name to an editor language id, e.g. "go" or
// "typescript". Unknown files are "plaintext".
func detectLanguage(name string) string {
	lexer := lexers.Match(name)
	if lexer == nil {
		return "plaintext"
	}
	cfg := lexer.Config()
	id := strings.ToLower(cfg.Name)
	if isWord(id) {
		return id
	}
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return id
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
