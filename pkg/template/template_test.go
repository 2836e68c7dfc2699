package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Rendering
// =============================================================================

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		data     map[string]any
		expected string
	}{
		{
			name:     "plain text",
			src:      "<p>no tags</p>",
			expected: "<p>no tags</p>",
		},
		{
			name:     "variable",
			src:      "Hello {{ name }}!",
			data:     map[string]any{"name": "World"},
			expected: "Hello World!",
		},
		{
			name:     "undefined variable is empty",
			src:      "[{{ missing }}]",
			expected: "[]",
		},
		{
			name:     "member access",
			src:      "{{ user.name }} ({{ user.age }})",
			data:     map[string]any{"user": map[string]any{"name": "alice", "age": 30}},
			expected: "alice (30)",
		},
		{
			name:     "struct field",
			src:      "{{ page.Title }}",
			data:     map[string]any{"page": struct{ Title string }{"About"}},
			expected: "About",
		},
		{
			name:     "arithmetic",
			src:      "{{ 2 * 3 }} {{ 1.5 + 1 }}",
			expected: "6 2.5",
		},
		{
			name:     "or operator is not a filter",
			src:      "{{ n > 3 || n < 0 }}",
			data:     map[string]any{"n": 5},
			expected: "true",
		},
		{
			name:     "nil coalescing",
			src:      `{{ missing ?? "fallback" }}`,
			expected: "fallback",
		},
		{
			name:     "comment dropped",
			src:      "a{# hidden #}b",
			expected: "ab",
		},
		{
			name:     "multiline comment dropped",
			src:      "a{# one\ntwo #}b",
			expected: "ab",
		},
		{
			name:     "set",
			src:      "{% set total = price * qty %}{{ total }}",
			data:     map[string]any{"price": 3, "qty": 4},
			expected: "12",
		},
		{
			name:     "nil prints empty",
			src:      "[{{ nil }}]",
			expected: "[]",
		},
		{
			name:     "bool",
			src:      "{{ 1 < 2 }}",
			expected: "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.name, tt.src)
			require.NoError(t, err)

			out, err := tmpl.Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRender_If(t *testing.T) {
	src := "{% if role == \"admin\" %}admin{% elif role %}user{% else %}guest{% endif %}"
	tmpl := MustParse("if.html", src)

	tests := []struct {
		role     any
		expected string
	}{
		{"admin", "admin"},
		{"editor", "user"},
		{"", "guest"},
		{nil, "guest"},
	}

	for _, tt := range tests {
		out, err := tmpl.Render(map[string]any{"role": tt.role})
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out, "role=%v", tt.role)
	}
}

func TestRender_IfOperators(t *testing.T) {
	data := map[string]any{
		"items": []string{"a", "b"},
		"empty": []any{},
		"n":     5,
		"name":  "ada",
		"blank": "",
		"user":  map[string]any{"admin": false, "tags": []string{"x"}},
	}

	tests := []struct {
		src      string
		expected string
	}{
		{`{% if "a" in items %}yes{% endif %}`, "yes"},
		{`{% if "z" in items %}yes{% else %}no{% endif %}`, "no"},
		{`{% if n > 3 and n < 10 %}mid{% endif %}`, "mid"},
		{`{% if not (n > 10) %}small{% endif %}`, "small"},
		{`{% if items %}full{% endif %}`, "full"},

		// Operands of not, and and or need not be booleans.
		{`{% if not empty %}none{% endif %}`, "none"},
		{`{% if not items %}none{% else %}some{% endif %}`, "some"},
		{`{% if items and n %}both{% endif %}`, "both"},
		{`{% if empty and n %}both{% else %}no{% endif %}`, "no"},
		{`{% if name or missing %}any{% endif %}`, "any"},
		{`{% if blank || missing %}any{% else %}none{% endif %}`, "none"},
		{`{% if !blank && name %}ok{% endif %}`, "ok"},

		// Undefined names and lookups through them are nil.
		{`{% if not missing %}absent{% endif %}`, "absent"},
		{`{% if missing.field %}yes{% else %}no{% endif %}`, "no"},
		{`{% if missing.a.b or user.admin %}yes{% else %}no{% endif %}`, "no"},
		{`{% if missing[0] %}yes{% else %}no{% endif %}`, "no"},
		{`{% if user.tags %}tagged{% endif %}`, "tagged"},
		{`{{ missing.field ?? "fallback" }}`, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := MustParse("t", tt.src).Render(data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRender_IfMemberChain(t *testing.T) {
	tmpl := MustParse("t", `{% if user.admin %}admin{% elif user %}member{% else %}guest{% endif %}`)

	tests := []struct {
		name     string
		data     map[string]any
		expected string
	}{
		{"no user", nil, "guest"},
		{"member", map[string]any{"user": map[string]any{"name": "bob"}}, "member"},
		{"admin", map[string]any{"user": map[string]any{"admin": true}}, "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tmpl.Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRender_For(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		data     map[string]any
		expected string
	}{
		{
			name:     "slice",
			src:      "{% for item in items %}<li>{{ item }}</li>{% endfor %}",
			data:     map[string]any{"items": []string{"a", "b", "c"}},
			expected: "<li>a</li><li>b</li><li>c</li>",
		},
		{
			name:     "loop variables",
			src:      "{% for x in items %}{{ loop.index }}/{{ loop.length }}{% if loop.first %}F{% endif %}{% if loop.last %}L{% endif %};{% endfor %}",
			data:     map[string]any{"items": []int{7, 8, 9}},
			expected: "1/3F;2/3;3/3L;",
		},
		{
			name:     "index0",
			src:      "{% for x in items %}{{ loop.index0 }}{% endfor %}",
			data:     map[string]any{"items": []int{7, 8}},
			expected: "01",
		},
		{
			name:     "else on empty",
			src:      "{% for x in items %}{{ x }}{% else %}empty{% endfor %}",
			data:     map[string]any{"items": []string{}},
			expected: "empty",
		},
		{
			name:     "else on undefined",
			src:      "{% for x in missing %}{{ x }}{% else %}empty{% endfor %}",
			expected: "empty",
		},
		{
			name:     "map key value sorted",
			src:      "{% for k, v in m %}{{ k }}={{ v }};{% endfor %}",
			data:     map[string]any{"m": map[string]int{"b": 2, "a": 1, "c": 3}},
			expected: "a=1;b=2;c=3;",
		},
		{
			name:     "map keys",
			src:      "{% for k in m %}{{ k }}{% endfor %}",
			data:     map[string]any{"m": map[string]int{"y": 1, "x": 2}},
			expected: "xy",
		},
		{
			name:     "slice index and value",
			src:      "{% for i, v in items %}{{ i }}:{{ v }} {% endfor %}",
			data:     map[string]any{"items": []string{"a", "b"}},
			expected: "0:a 1:b ",
		},
		{
			name:     "range",
			src:      "{% for i in 1..3 %}{{ i }}{% endfor %}",
			expected: "123",
		},
		{
			name:     "nested",
			src:      "{% for row in rows %}[{% for c in row %}{{ c }}{% endfor %}]{% endfor %}",
			data:     map[string]any{"rows": [][]int{{1, 2}, {3}}},
			expected: "[12][3]",
		},
		{
			name:     "loop variable does not leak",
			src:      "{% for x in items %}{% endfor %}[{{ x }}]",
			data:     map[string]any{"items": []int{1}},
			expected: "[]",
		},
		{
			name:     "string characters",
			src:      "{% for ch in word %}{{ ch }}-{% endfor %}",
			data:     map[string]any{"word": "héj"},
			expected: "h-é-j-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustParse(tt.name, tt.src).Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

// =============================================================================
// Filters
// =============================================================================

func TestFilters(t *testing.T) {
	data := map[string]any{
		"name":  "flask app",
		"items": []string{"a", "b", "c"},
		"html":  `<b>"hi"</b>`,
		"empty": "",
	}

	tests := []struct {
		src      string
		expected string
	}{
		{"{{ name | upper }}", "FLASK APP"},
		{"{{ \"ABC\" | lower }}", "abc"},
		{"{{ name | title }}", "Flask App"},
		{"{{ \"hELLO wORLD\" | capitalize }}", "Hello world"},
		{"[{{ \"  x  \" | trim }}]", "[x]"},
		{"{{ items | length }}", "3"},
		{"{{ name | count }}", "9"},
		{"{{ missing | length }}", "0"},
		{"{{ missing | default(\"anon\") }}", "anon"},
		{"{{ name | default(\"anon\") }}", "flask app"},
		{"[{{ empty | default(\"anon\") }}]", "[]"},
		{"{{ empty | default(\"anon\", true) }}", "anon"},
		{"{{ items | join(\", \") }}", "a, b, c"},
		{"{{ items | join }}", "abc"},
		{"{{ name | replace(\"flask\", \"feo\") }}", "feo app"},
		{"{{ items | first }}", "a"},
		{"{{ items | last }}", "c"},
		{"{{ \"abc\" | reverse }}", "cba"},
		{"{{ items | reverse | join }}", "cba"},
		{"{{ \"abcdef\" | truncate(3) }}", "abc..."},
		{"{{ \"abc\" | truncate(3) }}", "abc"},
		{"{{ \"abcdef\" | truncate(2, \"!\") }}", "ab!"},
		{"{{ html | escape }}", "&lt;b&gt;&#34;hi&#34;&lt;/b&gt;"},
		{"{{ html | e }}", "&lt;b&gt;&#34;hi&#34;&lt;/b&gt;"},
		{"{{ html | safe }}", `<b>"hi"</b>`},
		{"{{ name | upper | replace(\"APP\", \"|\") }}", "FLASK |"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := MustParse("filters", tt.src).Render(data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRender_DelimitersInsideCode(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"nested map literal", `{{ {"a": {"b": 1}}.a.b }}`, "1"},
		{"braces in string", `[{{ "}}" }}]`, "[}}]"},
		{"tag close in string", `{% set x = "%}" %}{{ x }}`, "%}"},
		{"map in set", `{% set m = {"k": "v"} %}{{ m.k }}`, "v"},
		{"escaped quote", `{{ "a\"}}" }}`, `a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustParse("t", tt.src).Render(nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unclosed output", "a {{ name", 1, "unclosed {{"},
		{"unclosed tag", "{% if x", 1, "unclosed {%"},
		{"unclosed comment", "{# note", 1, "unclosed {#"},
		{"empty output", "{{ }}", 1, "empty {{ }}"},
		{"unclosed if", "{% if x %}yes", 1, "unclosed {% if %}"},
		{"unclosed for", "line\n{% for x in xs %}", 2, "unclosed {% for %}"},
		{"stray endif", "one\ntwo\n{% endif %}", 3, "unexpected {% endif %}"},
		{"stray else", "{% else %}", 1, "unexpected {% else %}"},
		{"endfor closes if", "{% if x %}{% endfor %}", 1, "unexpected {% endfor %}"},
		{"unknown tag", "{% block body %}", 1, `unknown tag "block"`},
		{"malformed for", "{% for in xs %}{% endfor %}", 1, "malformed for"},
		{"malformed set", "{% set = 1 %}", 1, "malformed set"},
		{"if without condition", "{% if %}{% endif %}", 1, "if needs a condition"},
		{"include without name", "{% include %}", 1, "include needs a template name"},
		{"malformed filter", "{{ x | upper( }}", 1, "malformed filter"},
		{"bad filter name", "{{ x | 9 }}", 1, "malformed filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("page.html", tt.src)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "got %T", err)
			assert.Equal(t, "page.html", syntaxErr.Name)
			assert.Equal(t, tt.line, syntaxErr.Line)
			assert.Contains(t, syntaxErr.Msg, tt.msg)
		})
	}
}

func TestSyntaxError_Format(t *testing.T) {
	err := &SyntaxError{Name: "index.html", Line: 4, Msg: "unclosed {% if %}"}
	assert.Equal(t, "template: index.html:4: unclosed {% if %}", err.Error())
}

func TestRender_ExecErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		msg  string
	}{
		{"unknown filter", "{{ x | shout }}", nil, `unknown filter "shout"`},
		{"not iterable", "\n{% for x in n %}{% endfor %}", map[string]any{"n": 5}, "cannot iterate over int"},
		{"bad expression", "{{ 1 + }}", nil, "compile"},
		{"filter failure", "{{ n | length }}", map[string]any{"n": 5}, "has no length"},
		{"include outside set", `{% include "x.html" %}`, nil, "outside a template set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustParse("page.html", tt.src).Render(tt.data)
			require.Error(t, err)

			var execErr *ExecError
			require.True(t, errors.As(err, &execErr), "got %T", err)
			assert.Equal(t, "page.html", execErr.Name)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRender_ExecErrorLine(t *testing.T) {
	_, err := MustParse("page.html", "one\ntwo\n{{ x | nope }}").Render(nil)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.Line)
	assert.True(t, strings.HasPrefix(err.Error(), "template: page.html:3:"))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("bad", "{% if %}") })
}

func TestTemplate_Name(t *testing.T) {
	assert.Equal(t, "index.html", MustParse("index.html", "").Name())
}

// =============================================================================
// Helpers
// =============================================================================

func TestTruthy(t *testing.T) {
	var nilMap map[string]any
	var nilPtr *int
	one := 1

	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"zero int", 0, false},
		{"int", 3, true},
		{"zero float", 0.0, false},
		{"float", 0.5, true},
		{"empty slice", []int{}, false},
		{"slice", []int{1}, true},
		{"nil map", nilMap, false},
		{"map", map[string]int{"a": 1}, true},
		{"nil pointer", nilPtr, false},
		{"pointer", &one, true},
		{"struct", struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truthy(tt.value))
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	tests := []struct {
		input    string
		sep      byte
		expected []string
	}{
		{"a | b", '|', []string{"a ", " b"}},
		{"a || b", '|', []string{"a || b"}},
		{`"x|y" | upper`, '|', []string{`"x|y" `, " upper"}},
		{"f(a, b), c", ',', []string{"f(a, b)", " c"}},
		{`"a,b", 'c'`, ',', []string{`"a,b"`, " 'c'"}},
		{"[1, 2], {x: 1}", ',', []string{"[1, 2]", " {x: 1}"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitTopLevel(tt.input, tt.sep))
		})
	}
}
