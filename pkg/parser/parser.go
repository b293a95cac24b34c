// Package parser turns the markup of one chat reply into plain text, code
// blocks and embedded commands.
package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/entrhq/webpilot/pkg/command"
	"github.com/entrhq/webpilot/pkg/logging"
)

// CodeBlock is one fenced code region of a reply.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ParsedResponse is the structured form of a reply. It is never modified
// after Parse returns it.
type ParsedResponse struct {
	Text       string            `json:"text"`
	CodeBlocks []CodeBlock       `json:"codeBlocks"`
	Commands   []command.Command `json:"commands"`
}

// Logger receives parse warnings. *logging.Logger satisfies it.
type Logger interface {
	Warnf(format string, v ...interface{})
}

// Parser extracts ParsedResponse values from reply markup.
type Parser struct {
	logger Logger
}

// New creates a parser. A nil logger discards warnings.
func New(logger Logger) *Parser {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Parser{logger: logger}
}

// Parse parses with a parser that discards warnings.
func Parse(rawHTML string) ParsedResponse {
	return New(nil).Parse(rawHTML)
}

var (
	languageClass = regexp.MustCompile(`(?:^|\s)language-(\w+)`)
	// A newline, then at least two more, with only horizontal space between.
	excessBlankLines = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Parse extracts text, code blocks and commands from rawHTML. Malformed input
// degrades to an empty result.
func (p *Parser) Parse(rawHTML string) ParsedResponse {
	if strings.TrimSpace(rawHTML) == "" {
		return ParsedResponse{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<!DOCTYPE html><body>" + rawHTML + "</body>"))
	if err != nil {
		p.logger.Warnf("Failed to parse response markup: %v", err)
		return ParsedResponse{}
	}

	w := &walker{logger: p.logger}
	w.walk(responseRoot(doc))

	text := excessBlankLines.ReplaceAllString(w.text.String(), "\n\n")
	text = strings.TrimSpace(text)

	commands := w.commands
	commands = append(commands, scanDirectives(text, p.logger)...)

	return ParsedResponse{
		Text:       text,
		CodeBlocks: w.blocks,
		Commands:   commands,
	}
}

// responseRoot returns the body, or its only child when the body holds a
// single generic wrapper and no text of its own.
func responseRoot(doc *goquery.Document) *goquery.Selection {
	body := doc.Find("body").First()

	children := body.Children()
	if children.Length() != 1 || !isWrapperElement(goquery.NodeName(children)) {
		return body
	}
	for n := body.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			return body
		}
	}
	return children
}

type walker struct {
	logger   Logger
	text     strings.Builder
	blocks   []CodeBlock
	commands []command.Command
}

func (w *walker) walk(root *goquery.Selection) {
	root.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			w.text.WriteString(node.Data)
		case html.ElementNode:
			w.element(s, strings.ToLower(node.Data))
		}
	})
}

func (w *walker) element(s *goquery.Selection, tag string) {
	if isSkippedElement(tag) {
		return
	}

	switch {
	case tag == "pre":
		code := s.Find("code").First()
		if code.Length() == 0 {
			w.text.WriteString(textContent(s.Get(0)))
			w.text.WriteString("\n\n")
			return
		}
		w.codeBlock(code)

	case tag == "br":
		w.text.WriteString("\n")

	case s.Find("pre").Length() > 0:
		w.walk(s)
		if isBlockElement(tag) {
			w.text.WriteString("\n\n")
		}

	default:
		w.text.WriteString(textContent(s.Get(0)))
		if isBlockElement(tag) {
			w.text.WriteString("\n\n")
		}
	}
}

func (w *walker) codeBlock(code *goquery.Selection) {
	language := ""
	if m := languageClass.FindStringSubmatch(code.AttrOr("class", "")); m != nil {
		language = m[1]
	}
	body := code.Text()
	w.blocks = append(w.blocks, CodeBlock{Language: language, Code: body})

	if strings.EqualFold(language, "json") {
		w.commands = append(w.commands, decodeCommandBlock(body)...)
	}

	if language == "" {
		w.text.WriteString("\n\n[Code block omitted]\n\n")
		return
	}
	w.text.WriteString("\n\n[Code block in " + language + " omitted]\n\n")
}

// textContent concatenates the text below n, skipping non-content elements.
// Nested block elements end with a line break so list items stay apart.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(n *html.Node, nested bool)
	visit = func(n *html.Node, nested bool) {
		tag := ""
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			tag = strings.ToLower(n.Data)
			if isSkippedElement(tag) {
				return
			}
			if tag == "br" {
				b.WriteString("\n")
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c, true)
		}
		if nested && isBlockElement(tag) && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}
	visit(n, false)
	return b.String()
}

// isSkippedElement returns true for elements that carry no reply text
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "svg", "iframe", "template", "button":
		return true
	}
	return false
}

// isWrapperElement returns true for elements that only group content
func isWrapperElement(tagName string) bool {
	switch tagName {
	case "div", "article", "section", "main":
		return true
	}
	return false
}

// isBlockElement returns true for block-level elements (for formatting)
func isBlockElement(tagName string) bool {
	blocks := map[string]bool{
		"div":        true,
		"p":          true,
		"section":    true,
		"article":    true,
		"header":     true,
		"footer":     true,
		"nav":        true,
		"main":       true,
		"aside":      true,
		"h1":         true,
		"h2":         true,
		"h3":         true,
		"h4":         true,
		"h5":         true,
		"h6":         true,
		"ul":         true,
		"ol":         true,
		"li":         true,
		"table":      true,
		"tr":         true,
		"td":         true,
		"th":         true,
		"blockquote": true,
		"pre":        true,
		"hr":         true,
	}
	return blocks[tagName]
}
