package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// node is an element of a parsed template.
type node interface{}

type textNode struct {
	text string
}

type outputNode struct {
	expr    string
	filters []filterCall
	line    int
}

type filterCall struct {
	name string
	args []string
}

type ifBranch struct {
	cond string
	body []node
	line int
}

type ifNode struct {
	branches []ifBranch
	elseBody []node
}

type forNode struct {
	keyVar   string
	valVar   string
	iter     string
	body     []node
	elseBody []node
	line     int
}

type setNode struct {
	name string
	expr string
	line int
}

type includeNode struct {
	expr string
	line int
}

var (
	forHeader  = regexp.MustCompile(`^([A-Za-z_]\w*)(?:\s*,\s*([A-Za-z_]\w*))?\s+in\s+(.+)$`)
	setHeader  = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*(.+)$`)
	filterName = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// endTags are the tags that close or split a block.
var endTags = []string{"elif", "else", "endif", "endfor"}

type parser struct {
	name   string
	tokens []token
	pos    int
}

// parse builds the node tree for src.
func parse(name, src string) ([]node, error) {
	tokens, err := lex(name, src)
	if err != nil {
		return nil, err
	}
	p := &parser{name: name, tokens: tokens}
	nodes, _, err := p.parseList(nil)
	return nodes, err
}

// parseList reads nodes until one of stops is found. The stopping tag is
// returned with its keyword in val and its arguments after a space.
func (p *parser) parseList(stops []string) ([]node, *token, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		switch tok.kind {
		case tokenText:
			nodes = append(nodes, &textNode{text: tok.val})
		case tokenOutput:
			n, err := p.parseOutput(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case tokenTag:
			keyword, args := splitTag(tok.val)
			if slices.Contains(endTags, keyword) {
				if slices.Contains(stops, keyword) {
					return nodes, &token{kind: tokenTag, val: keyword + " " + args, line: tok.line}, nil
				}
				return nil, nil, p.errorf(tok.line, "unexpected {%% %s %%}", keyword)
			}
			n, err := p.parseTag(keyword, args, tok.line)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil, nil
}

func (p *parser) parseTag(keyword, args string, line int) (node, error) {
	switch keyword {
	case "if":
		return p.parseIf(args, line)
	case "for":
		return p.parseFor(args, line)
	case "set":
		m := setHeader.FindStringSubmatch(args)
		if m == nil {
			return nil, p.errorf(line, "malformed set: %q", args)
		}
		return &setNode{name: m[1], expr: strings.TrimSpace(m[2]), line: line}, nil
	case "include":
		if args == "" {
			return nil, p.errorf(line, "include needs a template name")
		}
		return &includeNode{expr: args, line: line}, nil
	default:
		return nil, p.errorf(line, "unknown tag %q", keyword)
	}
}

func (p *parser) parseIf(cond string, line int) (node, error) {
	if cond == "" {
		return nil, p.errorf(line, "if needs a condition")
	}
	n := &ifNode{}
	branch := ifBranch{cond: cond, line: line}

	for {
		body, end, err := p.parseList([]string{"elif", "else", "endif"})
		if err != nil {
			return nil, err
		}
		if end == nil {
			return nil, p.errorf(line, "unclosed {%% if %%}")
		}
		branch.body = body
		n.branches = append(n.branches, branch)

		keyword, args := splitTag(end.val)
		switch keyword {
		case "endif":
			return n, nil
		case "elif":
			if args == "" {
				return nil, p.errorf(end.line, "elif needs a condition")
			}
			branch = ifBranch{cond: args, line: end.line}
		case "else":
			elseBody, closing, err := p.parseList([]string{"endif"})
			if err != nil {
				return nil, err
			}
			if closing == nil {
				return nil, p.errorf(line, "unclosed {%% if %%}")
			}
			n.elseBody = elseBody
			return n, nil
		}
	}
}

func (p *parser) parseFor(header string, line int) (node, error) {
	m := forHeader.FindStringSubmatch(header)
	if m == nil {
		return nil, p.errorf(line, "malformed for: %q", header)
	}
	n := &forNode{iter: strings.TrimSpace(m[3]), line: line}
	if m[2] != "" {
		n.keyVar, n.valVar = m[1], m[2]
	} else {
		n.valVar = m[1]
	}

	body, end, err := p.parseList([]string{"else", "endfor"})
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, p.errorf(line, "unclosed {%% for %%}")
	}
	n.body = body

	if keyword, _ := splitTag(end.val); keyword == "else" {
		elseBody, closing, err := p.parseList([]string{"endfor"})
		if err != nil {
			return nil, err
		}
		if closing == nil {
			return nil, p.errorf(line, "unclosed {%% for %%}")
		}
		n.elseBody = elseBody
	}
	return n, nil
}

// parseOutput splits "expr | filter | filter(args)" into its parts.
func (p *parser) parseOutput(tok token) (node, error) {
	parts := splitTopLevel(tok.val, '|')
	n := &outputNode{expr: strings.TrimSpace(parts[0]), line: tok.line}
	if n.expr == "" {
		return nil, p.errorf(tok.line, "missing expression before filter")
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		call := filterCall{name: part}
		if open := strings.IndexByte(part, '('); open >= 0 {
			if !strings.HasSuffix(part, ")") {
				return nil, p.errorf(tok.line, "malformed filter %q", part)
			}
			call.name = strings.TrimSpace(part[:open])
			if inner := strings.TrimSpace(part[open+1 : len(part)-1]); inner != "" {
				for _, arg := range splitTopLevel(inner, ',') {
					call.args = append(call.args, strings.TrimSpace(arg))
				}
			}
		}
		if !filterName.MatchString(call.name) {
			return nil, p.errorf(tok.line, "malformed filter %q", part)
		}
		n.filters = append(n.filters, call)
	}
	return n, nil
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &SyntaxError{Name: p.name, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// splitTag separates the tag keyword from its arguments.
func splitTag(content string) (string, string) {
	content = strings.TrimSpace(content)
	if i := strings.IndexAny(content, " \t\n"); i >= 0 {
		return content[:i], strings.TrimSpace(content[i+1:])
	}
	return content, ""
}

// splitTopLevel splits s on sep outside of quotes and brackets. A doubled
// '|' is the expression "or" operator and is never split.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == sep && depth == 0:
			if sep == '|' && ((i+1 < len(s) && s[i+1] == '|') || (i > 0 && s[i-1] == '|')) {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
