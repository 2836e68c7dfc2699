package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var appTemplates = fstest.MapFS{
	"index.html":          {Data: []byte(`<h1>{{ title }}</h1><a href="{{ url_for("user", {"username": "ann"}) }}">ann</a>`)},
	"list.html":           {Data: []byte(`{% for x in items %}{{ x }};{% endfor %}{{ n + 1 }}`)},
	"partials/nav.html":   {Data: []byte(`<nav></nav>`)},
	"partials/broken.txt": {Data: []byte(`{% for %}`)},
}

func home(*feo.Request) (*feo.Response, error) {
	return feo.HTML("home"), nil
}

func newCLIApp(t *testing.T) *feo.App {
	t.Helper()
	cfg := config.Default()
	cfg.StaticDir = ""
	cfg.TemplatesDir = ""
	app := feo.New("hello", feo.WithConfig(cfg), feo.WithTemplates(appTemplates))
	app.Get("/", home)
	app.Get("/user/<username>", func(req *feo.Request) (*feo.Response, error) {
		return feo.Text(req.Param("username")), nil
	}, feo.Name("user"))
	require.NoError(t, app.Route("/api/data", func(*feo.Request) (*feo.Response, error) {
		return feo.JSON(map[string]string{"status": "success"})
	}, feo.Methods("GET", "POST"), feo.Name("api_data")))
	return app
}

var testBuild = BuildInfo{Version: "1.2.3", Commit: "abc", Date: "2026-01-01"}

func runRoot(root *cobra.Command, args ...string) (string, string, int) {
	var stdout, stderr bytes.Buffer
	code := execute(root, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func runApp(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	return runRoot(NewAppCommand(newCLIApp(t), testBuild), args...)
}

// =============================================================================
// version
// =============================================================================

func TestVersion(t *testing.T) {
	out, _, code := runApp(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "hello v1.2.3 (abc, 2026-01-01)\n")

	out, _, code = runApp(t, "version", "--json")
	require.Equal(t, 0, code)
	var v VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "hello", v.Name)
	assert.Equal(t, "1.2.3", v.Version)
	assert.Equal(t, "abc", v.Commit)
	assert.NotEmpty(t, v.Go)
}

func TestResolveVersion_Defaults(t *testing.T) {
	v := resolveVersion("feo", BuildInfo{Commit: "abc", Date: "today"})
	assert.NotEmpty(t, v.Version)
	assert.Equal(t, "abc", v.Commit)
	assert.Equal(t, "today", v.Date)
}

// =============================================================================
// routes
// =============================================================================

func TestRoutes_Table(t *testing.T) {
	out, _, code := runApp(t, "routes")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "Endpoint")
	assert.Regexp(t, `api_data\s+GET, POST\s+/api/data`, out)
	assert.Regexp(t, `home\s+GET\s+/\n`, out)
	assert.Less(t, bytes.Index([]byte(out), []byte("api_data")), bytes.Index([]byte(out), []byte("home")))
}

func TestRoutes_JSON(t *testing.T) {
	out, _, code := runApp(t, "routes", "--json", "--sort", "match")
	require.Equal(t, 0, code)

	var routes []feo.Route
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 3)
	assert.Equal(t, "/", routes[0].Rule)
	assert.Equal(t, "user", routes[1].Endpoint)
	assert.Equal(t, []string{"GET", "POST"}, routes[2].Methods)
}

func TestRoutes_SortByRule(t *testing.T) {
	routes, err := sortRoutes([]feo.Route{{Rule: "/b"}, {Rule: "/a"}}, "rule")
	require.NoError(t, err)
	assert.Equal(t, "/a", routes[0].Rule)

	_, err = sortRoutes(nil, "size")
	assert.ErrorContains(t, err, `unknown sort key "size"`)
}

func TestRoutes_Empty(t *testing.T) {
	cfg := config.Default()
	cfg.StaticDir = ""
	app := feo.New("empty", feo.WithConfig(cfg))

	out, _, code := runRoot(NewAppCommand(app, testBuild), "routes")
	require.Equal(t, 0, code)
	assert.Equal(t, "No routes were registered.\n", out)
}

// =============================================================================
// render
// =============================================================================

func TestRender_App(t *testing.T) {
	out, _, code := runApp(t, "render", "index.html", "--data", "title=Welcome")
	require.Equal(t, 0, code)
	assert.Equal(t, `<h1>Welcome</h1><a href="/user/ann">ann</a>`, out)
}

func TestRender_TypedData(t *testing.T) {
	out, _, code := runApp(t, "render", "list.html", "--data", "items=[a, b]", "--data", "n=41")
	require.Equal(t, 0, code)
	assert.Equal(t, "a;b;42", out)
}

func TestRender_DataFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vars.yaml")
	require.NoError(t, os.WriteFile(file, []byte("items: [x, y]\nn: 1\n"), 0o644))

	out, _, code := runApp(t, "render", "list.html", "--data-file", file, "--data", "n=9")
	require.Equal(t, 0, code)
	assert.Equal(t, "x;y;10", out)
}

func TestRender_Inline(t *testing.T) {
	out, _, code := runApp(t, "render", "--inline", "{{ name | upper }}", "--data", "name=feo")
	require.Equal(t, 0, code)
	assert.Equal(t, "FEO", out)
}

func TestRender_OutputFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.html")

	out, _, code := runApp(t, "render", "partials/nav.html", "-o", file)
	require.Equal(t, 0, code)
	assert.Empty(t, out)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "<nav></nav>", string(got))
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing template", []string{"render", "nope.html"}, "template not found"},
		{"bad data flag", []string{"render", "index.html", "--data", "novalue"}, "expected key=value"},
		{"missing data file", []string{"render", "index.html", "--data-file", "/nonexistent/vars.yaml"}, "failed to read data file"},
		{"no argument", []string{"render"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runApp(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRender_ToolDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.html"), []byte("Hi {{ who }}"), 0o644))

	out, _, code := runRoot(NewToolCommand(testBuild), "render", "hi.html", "--dir", dir, "--data", "who=there")
	require.Equal(t, 0, code)
	assert.Equal(t, "Hi there", out)
}

func TestLoadData(t *testing.T) {
	data, err := loadData("", map[string]string{
		"s":    "text",
		"n":    "3",
		"f":    "1.5",
		"b":    "true",
		"list": "[1, 2]",
		"obj":  "a: b",
		"null": "",
	})
	require.NoError(t, err)

	assert.Equal(t, "text", data["s"])
	assert.Equal(t, 3, data["n"])
	assert.InDelta(t, 1.5, data["f"], 0)
	assert.Equal(t, true, data["b"])
	assert.Equal(t, []any{1, 2}, data["list"])
	assert.Equal(t, "a: b", data["obj"])
	assert.Equal(t, "", data["null"])
}

// =============================================================================
// check
// =============================================================================

func TestCheck_App(t *testing.T) {
	out, _, code := runApp(t, "check")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "ok    index.html\n")
	assert.Contains(t, out, "ok    partials/nav.html\n")
	assert.Contains(t, out, "3 templates, 0 with errors\n")
}

func TestCheck_Failure(t *testing.T) {
	out, stderr, code := runApp(t, "check", "**/*.txt, **/nav.html")
	require.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL  partials/broken.txt\n")
	assert.Contains(t, out, "malformed for")
	assert.Contains(t, out, "2 templates, 1 with errors\n")
	assert.Contains(t, stderr, "templates have errors: 1 of 2")
}

func TestCheck_JSON(t *testing.T) {
	out, _, code := runApp(t, "check", "**/*.txt", "--json")
	require.Equal(t, 1, code)

	var results []CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Error, "partials/broken.txt:1")
}

func TestCheck_NoMatches(t *testing.T) {
	_, stderr, code := runRoot(NewToolCommand(testBuild), "check", "--dir", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ErrNoTemplates.Error())
}

// =============================================================================
// run
// =============================================================================

func TestRun_StopsWithContext(t *testing.T) {
	app := newCLIApp(t)
	root := NewAppCommand(app, testBuild)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"run", "--port", "0", "--debug", "--compress", "--log-format", "json"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, root.ExecuteContext(ctx))

	assert.Contains(t, stderr.String(), " * Serving Feo app 'hello'")
	assert.Contains(t, stderr.String(), " * Debug mode: on")
	assert.Contains(t, stderr.String(), " * Running on http://127.0.0.1:")
	assert.Contains(t, stderr.String(), " * Shutting down server...")

	cfg := app.Config()
	assert.Equal(t, 0, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Compress)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestRun_ConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "feo.yaml")
	require.NoError(t, os.WriteFile(file, []byte("host: 127.0.0.1\nport: 0\nmetrics:\n  enabled: true\n  path: /metrics\n"), 0o644))

	app := newCLIApp(t)
	root := NewAppCommand(app, testBuild)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--config", file})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, root.ExecuteContext(ctx))

	assert.True(t, app.Config().Metrics.Enabled)
	assert.Equal(t, 0, app.Config().Port)
}

func TestRun_PrintConfig(t *testing.T) {
	out, _, code := runApp(t, "run", "--print-config", "--port", "8080", "--debug")
	require.Equal(t, 0, code)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)

	out, _, code = runApp(t, "run", "--print-config", "--json", "--host", "0.0.0.0")
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "0.0.0.0", cfg.Host)
}

func TestRun_InvalidSettings(t *testing.T) {
	_, stderr, code := runApp(t, "run", "--port", "70000")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "port")
}
