package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSet(opts ...SetOption) *Set {
	fsys := fstest.MapFS{
		"index.html":           {Data: []byte(`{% include "partials/header.html" %}<p>{{ title }}</p>`)},
		"partials/header.html": {Data: []byte(`<h1>{{ site }}</h1>`)},
		"list.html":            {Data: []byte(`{% for x in items %}{% include "item.html" %}{% endfor %}`)},
		"item.html":            {Data: []byte(`<li>{{ x }}</li>`)},
		"self.html":            {Data: []byte(`{% include "self.html" %}`)},
		"broken.html":          {Data: []byte("ok\n{% if x %}")},
		"ghost.html":           {Data: []byte(`{% include "nowhere.html" %}`)},
		"notes.txt":            {Data: []byte(`{{ note }}`)},
	}
	return NewSet(fsys, opts...)
}

func TestSet_Render(t *testing.T) {
	s := newTestSet(WithGlobal("site", "feo"))

	out, err := s.Render("index.html", map[string]any{"title": "Home"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>feo</h1><p>Home</p>", out)
}

func TestSet_DataOverridesGlobals(t *testing.T) {
	s := newTestSet(WithGlobal("site", "feo"))

	out, err := s.Render("partials/header.html", map[string]any{"site": "mine"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>mine</h1>", out)
}

func TestSet_IncludeSeesLoopScope(t *testing.T) {
	s := newTestSet()

	out, err := s.Render("list.html", map[string]any{"items": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "<li>a</li><li>b</li>", out)
}

func TestSet_NotFound(t *testing.T) {
	s := newTestSet()

	for _, name := range []string{"missing.html", "../etc/passwd", "/abs.html", ""} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTemplateNotFound))
		})
	}
}

func TestSet_NilFS(t *testing.T) {
	s := NewSet(nil)

	_, err := s.Get("index.html")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	names, err := s.Names("*")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSet_IncludeMissing(t *testing.T) {
	s := newTestSet()

	_, err := s.Render("ghost.html", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "ghost.html", execErr.Name)
}

func TestSet_IncludeDepth(t *testing.T) {
	s := newTestSet()

	_, err := s.Render("self.html", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errIncludeDepth)
}

func TestSet_SyntaxError(t *testing.T) {
	s := newTestSet()

	_, err := s.Get("broken.html")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "broken.html", syntaxErr.Name)
	assert.Equal(t, 2, syntaxErr.Line)
}

func TestSet_Cache(t *testing.T) {
	s := newTestSet()

	first, err := s.Get("item.html")
	require.NoError(t, err)
	second, err := s.Get("item.html")
	require.NoError(t, err)
	assert.Same(t, first, second)

	s.Reset()
	third, err := s.Get("item.html")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestSet_Names(t *testing.T) {
	s := newTestSet()

	names, err := s.Names("**/*.html")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"broken.html",
		"ghost.html",
		"index.html",
		"item.html",
		"list.html",
		"partials/header.html",
		"self.html",
	}, names)

	names, err = s.Names("*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names)
}

func TestSet_Preload(t *testing.T) {
	s := newTestSet()

	err := s.Preload("**/*.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.html:2")

	assert.NoError(t, s.Preload("partials/*.html"))
}

func TestSet_Filters(t *testing.T) {
	shout := func(v any, _ ...any) (any, error) {
		return strings.ToUpper(format(v)) + "!", nil
	}
	s := newTestSet(WithFilter("shout", shout))

	out, err := s.RenderString("{{ word | shout }}", map[string]any{"word": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "HEY!", out)

	// Custom filters shadow built-ins.
	s.AddFilter("upper", func(v any, _ ...any) (any, error) { return "custom", nil })
	out, err = s.RenderString("{{ word | upper }}", map[string]any{"word": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "custom", out)
}

func TestSet_AddGlobal(t *testing.T) {
	s := newTestSet()
	s.AddGlobal("greet", func(name string) string { return "hi " + name })

	out, err := s.RenderString(`{{ greet("bob") }}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", out)
}

func TestSet_RenderStringInclude(t *testing.T) {
	s := newTestSet(WithGlobal("site", "feo"))

	out, err := s.RenderString(`[{% include "partials/header.html" %}]`, nil)
	require.NoError(t, err)
	assert.Equal(t, "[<h1>feo</h1>]", out)
}

func TestSet_RenderStringSyntaxError(t *testing.T) {
	s := newTestSet()

	_, err := s.RenderString("{% for %}", nil)
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "<string>", syntaxErr.Name)
}

func TestSet_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	s := NewSet(os.DirFS(dir))
	out, err := s.Render("page.html", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, dir) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("v2"), 0o644)
		out, err := s.Render("page.html", nil)
		return err == nil && out == "v2"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestSet_WatchMissingDir(t *testing.T) {
	s := NewSet(nil)
	err := s.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
