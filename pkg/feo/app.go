package feo

import (
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/logging"
	"github.com/feoweb/feo/pkg/template"
)

// BeforeFunc runs before the handler, once the route is known. Returning a
// response or an error skips the handler.
type BeforeFunc func(req *Request) (*Response, error)

// AfterFunc runs after the handler and may replace its response.
type AfterFunc func(req *Request, resp *Response) *Response

// App is a web application: a URL map, error handlers, hooks and templates.
// It implements http.Handler. Registration is expected to happen before
// serving but is safe at any time.
type App struct {
	name      string
	cfg       *config.Config
	logger    *slog.Logger
	templates *template.Set
	tmplFS    fs.FS

	mu            sync.RWMutex
	routes        []*Route
	endpoints     map[string]*Route
	errorHandlers map[int]ErrorHandlerFunc
	before        []BeforeFunc
	after         []AfterFunc
}

// Option configures an App.
type Option func(*App)

// WithConfig sets the configuration. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// WithLogger sets the logger. Defaults to logging.Nop().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTemplates reads templates from fsys instead of Config.TemplatesDir.
func WithTemplates(fsys fs.FS) Option {
	return func(a *App) {
		a.tmplFS = fsys
	}
}

// New creates an application. Templates are read from the configured
// templates directory at render time. When a static directory is configured
// its files are served under the static URL path by an endpoint named
// "static".
func New(name string, opts ...Option) *App {
	a := &App{
		name:          name,
		cfg:           config.Default(),
		logger:        logging.Nop(),
		endpoints:     make(map[string]*Route),
		errorHandlers: make(map[int]ErrorHandlerFunc),
	}
	for _, opt := range opts {
		opt(a)
	}

	fsys := a.tmplFS
	if fsys == nil && a.cfg.TemplatesDir != "" {
		fsys = os.DirFS(a.cfg.TemplatesDir)
	}
	a.templates = template.NewSet(fsys,
		template.WithLogger(a.logger),
		template.WithFilter("urlencode", urlencodeFilter),
	)

	if a.cfg.StaticDir != "" {
		a.registerStatic()
	}
	return a
}

// Name returns the application name.
func (a *App) Name() string {
	return a.name
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Templates returns the template set used by Request.Render.
func (a *App) Templates() *template.Set {
	return a.templates
}

// Debug reports whether debug mode is on.
func (a *App) Debug() bool {
	return a.cfg.Debug
}

// ErrorHandler registers fn for responses with the given status code.
func (a *App) ErrorHandler(code int, fn ErrorHandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errorHandlers[code] = fn
}

// BeforeRequest registers a hook that runs before every request.
func (a *App) BeforeRequest(fn BeforeFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.before = append(a.before, fn)
}

// AfterRequest registers a hook that runs after every handled request,
// including error responses.
func (a *App) AfterRequest(fn AfterFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.after = append(a.after, fn)
}

func (a *App) errorHandler(code int) ErrorHandlerFunc {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.errorHandlers[code]
}

func (a *App) hooks() ([]BeforeFunc, []AfterFunc) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.before, a.after
}
