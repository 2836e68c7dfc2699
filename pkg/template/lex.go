package template

import (
	"strings"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOutput
	tokenTag
)

// token is a lexical unit of a template source.
type token struct {
	kind tokenKind
	val  string
	line int
}

// delimiters in the order they are searched for.
var openers = []struct {
	open, close string
	kind        tokenKind
	comment     bool
}{
	{"{{", "}}", tokenOutput, false},
	{"{%", "%}", tokenTag, false},
	{"{#", "#}", tokenText, true},
}

// lex splits src into text, output and tag tokens. Comments are dropped.
func lex(name, src string) ([]token, error) {
	var tokens []token
	line := 1
	pos := 0

	for pos < len(src) {
		start, which := nextOpener(src, pos)
		if start < 0 {
			tokens = append(tokens, token{kind: tokenText, val: src[pos:], line: line})
			break
		}
		if start > pos {
			text := src[pos:start]
			tokens = append(tokens, token{kind: tokenText, val: text, line: line})
			line += strings.Count(text, "\n")
		}

		d := openers[which]
		bodyStart := start + len(d.open)
		end := closingIndex(src[bodyStart:], d.close, !d.comment)
		if end < 0 {
			return nil, &SyntaxError{Name: name, Line: line, Msg: "unclosed " + d.open}
		}
		body := src[bodyStart : bodyStart+end]

		if !d.comment {
			inner := strings.TrimSpace(body)
			if inner == "" {
				return nil, &SyntaxError{Name: name, Line: line, Msg: "empty " + d.open + " " + d.close}
			}
			tokens = append(tokens, token{kind: d.kind, val: inner, line: line})
		}
		line += strings.Count(body, "\n")
		pos = bodyStart + end + len(d.close)
	}

	return tokens, nil
}

// nextOpener returns the position and index of the earliest delimiter at or
// after pos, or -1 if there is none.
func nextOpener(src string, pos int) (int, int) {
	best, which := -1, -1
	for i, d := range openers {
		idx := strings.Index(src[pos:], d.open)
		if idx < 0 {
			continue
		}
		idx += pos
		if best < 0 || idx < best {
			best, which = idx, i
		}
	}
	return best, which
}

// closingIndex returns the position of delim in s. For tags holding code the
// delimiter only counts outside string literals and brackets, so a map
// literal such as {"a": {"b": 1}} does not end an output tag early.
func closingIndex(s, delim string, code bool) int {
	if !code {
		return strings.Index(s, delim)
	}

	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case depth == 0 && strings.HasPrefix(s[i:], delim):
			return i
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return -1
}
