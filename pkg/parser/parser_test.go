package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/command"
	"github.com/entrhq/webpilot/pkg/logging"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantText   string
		wantBlocks []CodeBlock
	}{
		{
			name:     "paragraph and code block",
			input:    `<p>Hello</p><pre><code class="language-js">console.log(1)</code></pre>`,
			wantText: "Hello\n\n[Code block in js omitted]",
			wantBlocks: []CodeBlock{
				{Language: "js", Code: "console.log(1)"},
			},
		},
		{
			name:     "single wrapper is the root",
			input:    `<div class="markdown"><p>Intro</p><pre><code class="hljs language-go">package main</code></pre><p>Outro</p></div>`,
			wantText: "Intro\n\n[Code block in go omitted]\n\nOutro",
			wantBlocks: []CodeBlock{
				{Language: "go", Code: "package main"},
			},
		},
		{
			name:       "code block without language",
			input:      `<pre><code>plain</code></pre>`,
			wantText:   "[Code block omitted]",
			wantBlocks: []CodeBlock{{Code: "plain"}},
		},
		{
			name:     "pre without code is text",
			input:    `<p>Before</p><pre>just text</pre>`,
			wantText: "Before\n\njust text",
		},
		{
			name:     "inline code keeps its text",
			input:    `<p>Run <code>go test</code> now</p>`,
			wantText: "Run go test now",
		},
		{
			name:     "nested pre inside list",
			input:    `<ol><li>Step one<pre><code class="language-sh">make</code></pre></li></ol>`,
			wantText: "Step one\n\n[Code block in sh omitted]",
			wantBlocks: []CodeBlock{
				{Language: "sh", Code: "make"},
			},
		},
		{
			name:     "scripts and styles are dropped",
			input:    `<p>Visible</p><script>alert(1)</script><style>p{}</style><!-- note -->`,
			wantText: "Visible",
		},
		{
			name:     "list items stay apart",
			input:    `<ul><li>a</li><li>b</li></ul>`,
			wantText: "a\nb",
		},
		{
			name:     "blank lines collapse",
			input:    "<p>one</p>\n\n   \n\n<p>two</p>",
			wantText: "one\n\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantBlocks, got.CodeBlocks)
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n"} {
		got := Parse(input)
		assert.Equal(t, ParsedResponse{}, got)
	}
}

func TestParseBracketDirectives(t *testing.T) {
	input := `<p>Let me look. [VSCODE_COMMAND: readFile path="a.txt"]</p>` +
		`<p>[VSCODE_COMMAND: getWorkspaceFiles]</p>`

	got := Parse(input)

	require.Len(t, got.Commands, 2)
	assert.Equal(t, command.Command{Action: "readFile", Params: map[string]string{"path": "a.txt"}}, got.Commands[0])
	assert.Equal(t, "getWorkspaceFiles", got.Commands[1].Action)
	assert.Empty(t, got.Commands[1].Params)
}

func TestParseJSONChannelComesFirst(t *testing.T) {
	input := `<p>[VSCODE_COMMAND: getDiagnostics]</p>` +
		`<pre><code class="language-json">[` +
		`{"action": "writeFile", "params": {"path": "b.txt", "content": "x"}},` +
		`{"action": "getSelection", "params": {"allowEmpty": true}},` +
		`{"action": "bad"}` +
		`]</code></pre>`

	got := Parse(input)

	require.Len(t, got.Commands, 3)
	assert.Equal(t, "writeFile", got.Commands[0].Action)
	assert.Equal(t, map[string]string{"path": "b.txt", "content": "x"}, got.Commands[0].Params)
	assert.Equal(t, map[string]string{"allowEmpty": "true"}, got.Commands[1].Params)
	assert.Equal(t, "getDiagnostics", got.Commands[2].Action)
	require.Len(t, got.CodeBlocks, 1)
	assert.Equal(t, "json", got.CodeBlocks[0].Language)
}

func TestParseJSONChannelSingleObject(t *testing.T) {
	input := `<pre><code class="language-JSON">{"action": "executeTerminal", "params": {"command": "ls", "n": 2, "opts": {"a": [1]}}}</code></pre>`

	got := Parse(input)

	require.Len(t, got.Commands, 1)
	assert.Equal(t, map[string]string{"command": "ls", "n": "2", "opts": `{"a":[1]}`}, got.Commands[0].Params)
}

func TestParseJSONChannelIgnoresInvalidJSON(t *testing.T) {
	got := Parse(`<pre><code class="language-json">{not json</code></pre>`)
	assert.Empty(t, got.Commands)
	assert.Len(t, got.CodeBlocks, 1)
}

func TestParserLogsDiscardedDirectives(t *testing.T) {
	var buf bytes.Buffer
	p := New(logging.NewWriterLogger("parser", &buf))

	got := p.Parse(`<p>[VSCODE_COMMAND: readFile] and [VSCODE_COMMAND: writeFile path=unquoted]</p>`)

	assert.Empty(t, got.Commands)
	assert.Contains(t, buf.String(), `Discarding directive "readFile"`)
	assert.Contains(t, buf.String(), `Ignoring parameter "path=unquoted" of "writeFile"`)
	assert.Contains(t, buf.String(), `Discarding directive "writeFile"`)
}

func TestParseKeepsDirectivesWithUnparseableTokens(t *testing.T) {
	got := Parse(`<p>[VSCODE_COMMAND: getSelection allowEmpty=true]</p>` +
		`<p>[VSCODE_COMMAND: readFile path="a.txt" note]</p>`)

	require.Len(t, got.Commands, 2)
	assert.Equal(t, command.Command{Action: "getSelection", Params: map[string]string{}}, got.Commands[0])
	assert.Equal(t, command.Command{Action: "readFile", Params: map[string]string{"path": "a.txt"}}, got.Commands[1])
}

func TestParseBracketInsideQuotedValue(t *testing.T) {
	got := Parse(`<p>[VSCODE_COMMAND: executeTerminal command="grep -E 'a]b' x.txt"] done</p>`)

	require.Len(t, got.Commands, 1)
	assert.Equal(t, "grep -E 'a]b' x.txt", got.Commands[0].Params["command"])
}
