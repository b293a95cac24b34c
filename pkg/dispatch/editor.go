package dispatch

import (
	"github.com/entrhq/webpilot/pkg/command"
)

// Position is a zero-based line and character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Before reports whether p comes before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Character < o.Character)
}

// DocumentInfo describes the active document.
type DocumentInfo struct {
	// Path is the absolute file path; empty for untitled documents
	Path       string
	Name       string
	LanguageID string
	LineCount  int
	IsDirty    bool
	IsUntitled bool
	// EOL is "LF" or "CRLF"
	EOL     string
	Version int
}

// Selection is the current selection of the active document. Anchor is where
// the selection started and Active is the cursor.
type Selection struct {
	Text   string
	Anchor Position
	Active Position
}

// Start returns the earlier of Anchor and Active.
func (s Selection) Start() Position {
	if s.Active.Before(s.Anchor) {
		return s.Active
	}
	return s.Anchor
}

// End returns the later of Anchor and Active.
func (s Selection) End() Position {
	if s.Active.Before(s.Anchor) {
		return s.Anchor
	}
	return s.Active
}

// IsEmpty reports whether the selection covers no text.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Active
}

// IsSingleLine reports whether the selection starts and ends on one line.
func (s Selection) IsSingleLine() bool {
	return s.Anchor.Line == s.Active.Line
}

// Editor exposes the active document. The bool results are false when no
// document is open.
type Editor interface {
	ActiveDocument() (DocumentInfo, bool)
	Selection() (Selection, bool)
}

type activeFileInfo struct {
	FilePath   string `json:"filePath"`
	LanguageID string `json:"languageId"`
	LineCount  int    `json:"lineCount"`
	IsDirty    bool   `json:"isDirty"`
	IsUntitled bool   `json:"isUntitled"`
	EOL        string `json:"eol"`
	Version    int    `json:"version"`
}

type selectionInfo struct {
	SelectedText string   `json:"selectedText"`
	IsEmpty      bool     `json:"isEmpty"`
	IsSingleLine bool     `json:"isSingleLine"`
	Start        Position `json:"start"`
	End          Position `json:"end"`
	Active       Position `json:"active"`
	Anchor       Position `json:"anchor"`
}

func (d *Dispatcher) activeFileInfo() command.Result {
	action := command.ActionGetActiveFileInfo
	if d.editor == nil {
		return command.Failed(action, msgNoEditor)
	}
	doc, ok := d.editor.ActiveDocument()
	if !ok {
		return command.Failed(action, msgNoEditor)
	}
	if d.guard == nil {
		return command.Failed(action, msgNoWorkspace)
	}

	filePath := doc.Name
	if !doc.IsUntitled && doc.Path != "" {
		filePath = d.guard.Display(doc.Path)
	}

	eol := doc.EOL
	if eol == "" {
		eol = "LF"
	}

	return command.Succeeded(action, activeFileInfo{
		FilePath:   filePath,
		LanguageID: doc.LanguageID,
		LineCount:  doc.LineCount,
		IsDirty:    doc.IsDirty,
		IsUntitled: doc.IsUntitled,
		EOL:        eol,
		Version:    doc.Version,
	})
}

func (d *Dispatcher) selection(dir command.GetSelection) command.Result {
	action := dir.Action()
	if d.editor == nil {
		return command.Failed(action, msgNoEditor)
	}
	sel, ok := d.editor.Selection()
	if !ok {
		return command.Failed(action, msgNoEditor)
	}
	if sel.IsEmpty() && !dir.AllowEmpty {
		return command.Failed(action, msgNoSelection)
	}

	return command.Succeeded(action, selectionInfo{
		SelectedText: sel.Text,
		IsEmpty:      sel.IsEmpty(),
		IsSingleLine: sel.IsSingleLine(),
		Start:        sel.Start(),
		End:          sel.End(),
		Active:       sel.Active,
		Anchor:       sel.Anchor,
	})
}
