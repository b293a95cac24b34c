package parser

import (
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/command"
)

const directiveMarker = "[VSCODE_COMMAND:"

// scanDirectives extracts bracket directives from text in order of
// appearance:
//
//	[VSCODE_COMMAND: action key="value" key='value' key=`value`]
//
// Quoted values may span lines and contain ']' and escaped quotes. Tokens that
// are not key=<quoted value> pairs are logged and skipped; the remaining pairs
// are kept. Directives without an action or closing bracket are logged and
// skipped.
func scanDirectives(text string, logger Logger) []command.Command {
	var commands []command.Command

	pos := 0
	for {
		idx := strings.Index(text[pos:], directiveMarker)
		if idx < 0 {
			return commands
		}
		start := pos + idx

		cmd, end, err := parseDirective(text, start+len(directiveMarker), logger)
		if err != nil {
			logger.Warnf("Discarding malformed directive at offset %d: %v", start, err)
			pos = start + len(directiveMarker)
			continue
		}
		pos = end

		if len(cmd.Params) == 0 && !command.IsParamless(cmd.Action) {
			logger.Warnf("Discarding directive %q: action requires parameters", cmd.Action)
			continue
		}
		commands = append(commands, cmd)
	}
}

// parseDirective parses from just after the marker up to and including the
// closing bracket. It returns the offset after the bracket.
func parseDirective(text string, pos int, logger Logger) (command.Command, int, error) {
	s := &scanner{text: text, pos: pos}

	s.skipSpace()
	action := s.word()
	if action == "" {
		return command.Command{}, 0, fmt.Errorf("missing action name")
	}

	cmd := command.Command{Action: action, Params: map[string]string{}}
	for {
		s.skipSpace()
		if s.eof() {
			return command.Command{}, 0, fmt.Errorf("unterminated directive %q", action)
		}
		if s.peek() == ']' {
			s.pos++
			return cmd, s.pos, nil
		}

		tokenStart := s.pos
		key := s.word()
		if key == "" {
			s.skipToken()
			logger.Warnf("Ignoring %q in parameters of %q", text[tokenStart:s.pos], action)
			continue
		}
		afterKey := s.pos
		s.skipSpace()
		if s.eof() || s.peek() != '=' {
			s.pos = afterKey
			s.skipToken()
			logger.Warnf("Ignoring parameter %q of %q: no value", text[tokenStart:s.pos], action)
			continue
		}
		s.pos++
		s.skipSpace()

		if s.eof() || !isQuote(s.peek()) {
			s.skipToken()
			logger.Warnf("Ignoring parameter %q of %q: value must be quoted", text[tokenStart:s.pos], action)
			continue
		}
		value, err := s.quoted()
		if err != nil {
			return command.Command{}, 0, fmt.Errorf("parameter %q of %q: %w", key, action, err)
		}
		cmd.Params[key] = value
	}
}

type scanner struct {
	text string
	pos  int
}

func (s *scanner) eof() bool  { return s.pos >= len(s.text) }
func (s *scanner) peek() byte { return s.text[s.pos] }

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// skipToken advances to the next whitespace or closing bracket.
func (s *scanner) skipToken() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r', ']':
			return
		}
		s.pos++
	}
}

func isWordByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9', c == '-':
		return !first
	}
	return false
}

func (s *scanner) word() string {
	start := s.pos
	for !s.eof() && isWordByte(s.peek(), s.pos == start) {
		s.pos++
	}
	return s.text[start:s.pos]
}

// quoted reads a value in double, single or backtick quotes. A backslash
// before any of the three quote characters yields that character.
func (s *scanner) quoted() (string, error) {
	if s.eof() {
		return "", fmt.Errorf("missing value")
	}
	quote := s.peek()
	if quote != '"' && quote != '\'' && quote != '`' {
		return "", fmt.Errorf("value must be quoted")
	}
	s.pos++

	var b strings.Builder
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '\\' && s.pos+1 < len(s.text) && isQuote(s.text[s.pos+1]):
			b.WriteByte(s.text[s.pos+1])
			s.pos += 2
		case c == quote:
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", fmt.Errorf("unterminated %c-quoted value", quote)
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}
