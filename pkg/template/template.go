package template

import (
	"io"
	"strings"
)

// Template is a parsed template ready to render.
// A Template is safe for concurrent use.
type Template struct {
	name  string
	nodes []node
	set   *Set
}

// Parse parses src into a standalone template. Standalone templates use only
// the built-in filters and cannot include other templates.
func Parse(name, src string) (*Template, error) {
	nodes, err := parse(name, src)
	if err != nil {
		return nil, err
	}
	return &Template{name: name, nodes: nodes}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name, src string) *Template {
	t, err := Parse(name, src)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name the template was parsed with.
func (t *Template) Name() string {
	return t.name
}

// Execute writes the rendered template to w.
func (t *Template) Execute(w io.Writer, data map[string]any) error {
	return newState(t, w, data).walk(t.nodes)
}

// Render returns the rendered template as a string.
func (t *Template) Render(data map[string]any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
