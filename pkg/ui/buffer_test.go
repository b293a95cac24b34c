package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/dispatch"
)

func pos(line, char int) dispatch.Position {
	return dispatch.Position{Line: line, Character: char}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.go", "go"},
		{"script.py", "python"},
		{"index.js", "javascript"},
		{"lib.cpp", "cpp"},
		{"notes.unknownext", "plaintext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.name))
		})
	}
}

func TestBuffer_NoDocument(t *testing.T) {
	b := NewBuffer()

	_, ok := b.ActiveDocument()
	assert.False(t, ok)
	_, ok = b.Selection()
	assert.False(t, ok)
	assert.ErrorIs(t, b.Insert("x"), ErrNoDocument)
	assert.ErrorIs(t, b.Select(pos(0, 0), pos(0, 1)), ErrNoDocument)
	assert.ErrorIs(t, b.Save(), ErrNoDocument)
}

func TestBuffer_OpenDescribesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\r\n\r\nfunc main() {}\r\n"), 0644))

	b := NewBuffer()
	require.NoError(t, b.Open(path))

	doc, ok := b.ActiveDocument()
	require.True(t, ok)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "main.go", doc.Name)
	assert.Equal(t, "go", doc.LanguageID)
	assert.Equal(t, 4, doc.LineCount)
	assert.Equal(t, "CRLF", doc.EOL)
	assert.False(t, doc.IsDirty)
	assert.False(t, doc.IsUntitled)
	assert.Equal(t, 1, doc.Version)
}

func TestBuffer_Selection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("first line\nsecond line\nthird"), 0644))

	b := NewBuffer()
	require.NoError(t, b.Open(path))

	require.NoError(t, b.Select(pos(0, 6), pos(1, 6)))
	sel, ok := b.Selection()
	require.True(t, ok)
	assert.Equal(t, "line\nsecond", sel.Text)
	assert.False(t, sel.IsSingleLine())

	// Reversed and clamped
	require.NoError(t, b.Select(pos(2, 99), pos(2, 0)))
	sel, _ = b.Selection()
	assert.Equal(t, "third", sel.Text)
	assert.Equal(t, pos(2, 5), sel.Anchor)
	assert.Equal(t, pos(2, 0), sel.Start())
}

func TestBuffer_InsertAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	b := NewBuffer()
	require.NoError(t, b.Open(path))
	require.NoError(t, b.Select(pos(0, 5), pos(0, 5)))

	require.NoError(t, b.Insert(",\nbrave new"))

	assert.Equal(t, "hello,\nbrave new world", b.Text())
	sel, _ := b.Selection()
	assert.True(t, sel.IsEmpty())
	assert.Equal(t, pos(1, 9), sel.Active)

	doc, _ := b.ActiveDocument()
	assert.True(t, doc.IsDirty)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, 2, doc.LineCount)

	require.NoError(t, b.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello,\nbrave new world", string(data))

	doc, _ = b.ActiveDocument()
	assert.False(t, doc.IsDirty)
}

func TestBuffer_OpenMissingFileCreatesOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "new.py")

	b := NewBuffer()
	require.NoError(t, b.Open(path))
	require.NoError(t, b.Insert("print('hi')\n"))
	require.NoError(t, b.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))
}

func TestBuffer_Untitled(t *testing.T) {
	b := NewBuffer()
	b.New()

	doc, ok := b.ActiveDocument()
	require.True(t, ok)
	assert.True(t, doc.IsUntitled)
	assert.Equal(t, "Untitled-1", doc.Name)
	assert.Equal(t, "plaintext", doc.LanguageID)
	assert.Error(t, b.Save())

	b.Close()
	_, ok = b.ActiveDocument()
	assert.False(t, ok)

	b.New()
	doc, _ = b.ActiveDocument()
	assert.Equal(t, "Untitled-2", doc.Name)
}
