package matching

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPattern is returned when a route rule cannot be compiled.
var ErrInvalidPattern = errors.New("invalid route pattern")

// Params holds the dynamic segments captured from a matched path.
type Params map[string]string

// Converter describes how a dynamic segment is matched.
type Converter struct {
	// Name is the identifier used in rules, e.g. "int" in <int:id>.
	Name string
	// Regex is the expression a segment value must match.
	Regex string
	// Validate optionally rejects values the regex alone cannot.
	Validate func(string) bool
	// Raw keeps slashes unescaped when building URLs.
	Raw bool
}

// converters maps converter names to their definitions.
var converters = map[string]Converter{
	"string": {Name: "string", Regex: `[^/]+`},
	"int":    {Name: "int", Regex: `\d+`},
	"float":  {Name: "float", Regex: `\d+\.\d+`},
	"path":   {Name: "path", Regex: `[^/].*?`, Raw: true},
	"uuid": {
		Name:  "uuid",
		Regex: `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		Validate: func(s string) bool {
			_, err := uuid.Parse(s)
			return err == nil
		},
	},
}

var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is either literal text or a dynamic parameter.
type segment struct {
	literal string
	name    string
	conv    Converter
	check   *regexp.Regexp
}

func (s segment) dynamic() bool {
	return s.name != ""
}

// Pattern is a compiled route rule such as "/user/<username>".
type Pattern struct {
	rule     string
	re       *regexp.Regexp
	segments []segment
	names    []string
}

// Compile parses a route rule. Dynamic segments use <name> or <converter:name>.
// Supported converters are string (default), int, float, path and uuid.
func Compile(rule string) (*Pattern, error) {
	if !strings.HasPrefix(rule, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPattern, rule)
	}

	p := &Pattern{rule: rule}
	seen := make(map[string]bool)

	var re strings.Builder
	re.WriteString("^")

	rest := rule
	for rest != "" {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			p.addLiteral(rest, &re)
			break
		}
		if open > 0 {
			p.addLiteral(rest[:open], &re)
		}

		closing := strings.IndexByte(rest[open:], '>')
		if closing < 0 {
			return nil, fmt.Errorf("%w: %q has unterminated '<'", ErrInvalidPattern, rule)
		}
		decl := rest[open+1 : open+closing]
		rest = rest[open+closing+1:]

		convName, name := "string", decl
		if i := strings.IndexByte(decl, ':'); i >= 0 {
			convName, name = strings.TrimSpace(decl[:i]), strings.TrimSpace(decl[i+1:])
		}
		conv, ok := converters[convName]
		if !ok {
			return nil, fmt.Errorf("%w: %q uses unknown converter %q", ErrInvalidPattern, rule, convName)
		}
		if !paramNamePattern.MatchString(name) {
			return nil, fmt.Errorf("%w: %q has invalid parameter name %q", ErrInvalidPattern, rule, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q repeats parameter %q", ErrInvalidPattern, rule, name)
		}
		seen[name] = true

		check, err := regexp.Compile("^" + conv.Regex + "$")
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, rule, err)
		}
		p.segments = append(p.segments, segment{name: name, conv: conv, check: check})
		p.names = append(p.names, name)
		re.WriteString("(" + conv.Regex + ")")
	}

	re.WriteString("$")
	compiled, err := regexp.Compile(re.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, rule, err)
	}
	p.re = compiled
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(rule string) *Pattern {
	p, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) addLiteral(text string, re *strings.Builder) {
	p.segments = append(p.segments, segment{literal: text})
	re.WriteString(regexp.QuoteMeta(text))
}

// Match reports whether path matches the whole pattern and returns the
// captured parameters.
func (p *Pattern) Match(path string) (Params, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := make(Params, len(p.names))
	i := 1
	for _, seg := range p.segments {
		if !seg.dynamic() {
			continue
		}
		value := m[i]
		i++
		if seg.conv.Validate != nil && !seg.conv.Validate(value) {
			return nil, false
		}
		params[seg.name] = value
	}
	return params, true
}

// Build fills the pattern with params, the reverse of Match. Parameters that
// are not part of the pattern are appended as a sorted query string.
func (p *Pattern) Build(params map[string]string) (string, error) {
	var b strings.Builder
	used := make(map[string]bool, len(p.names))

	for _, seg := range p.segments {
		if !seg.dynamic() {
			b.WriteString(seg.literal)
			continue
		}
		value, ok := params[seg.name]
		if !ok {
			return "", fmt.Errorf("missing value for parameter %q in %q", seg.name, p.rule)
		}
		if !seg.check.MatchString(value) || (seg.conv.Validate != nil && !seg.conv.Validate(value)) {
			return "", fmt.Errorf("value %q is not valid for <%s:%s>", value, seg.conv.Name, seg.name)
		}
		used[seg.name] = true
		if seg.conv.Raw {
			b.WriteString(escapePath(value))
		} else {
			b.WriteString(url.PathEscape(value))
		}
	}

	var extra []string
	for k := range params {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		q := url.Values{}
		for _, k := range extra {
			q.Set(k, params[k])
		}
		b.WriteString("?" + q.Encode())
	}
	return b.String(), nil
}

// escapePath escapes each slash-separated part of value.
func escapePath(value string) string {
	parts := strings.Split(value, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// Names returns the parameter names in rule order.
func (p *Pattern) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Static reports whether the pattern has no dynamic segments.
func (p *Pattern) Static() bool {
	return len(p.names) == 0
}

// String returns the original rule.
func (p *Pattern) String() string {
	return p.rule
}
