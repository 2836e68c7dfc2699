package template

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/feoweb/feo/pkg/logging"
)

// Set loads templates by name from a filesystem, typically os.DirFS of the
// application's templates directory. Templates are read on first use and
// cached until Reset is called.
type Set struct {
	fsys   fs.FS
	logger *slog.Logger

	mu      sync.RWMutex
	cache   map[string]*Template
	filters map[string]Filter
	globals map[string]any
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithLogger sets the logger used for load and reload messages.
func WithLogger(logger *slog.Logger) SetOption {
	return func(s *Set) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFilter registers a custom filter.
func WithFilter(name string, f Filter) SetOption {
	return func(s *Set) {
		s.filters[name] = f
	}
}

// WithGlobal makes a value available to every template in the set.
func WithGlobal(name string, v any) SetOption {
	return func(s *Set) {
		s.globals[name] = v
	}
}

// NewSet creates a template set reading from fsys.
func NewSet(fsys fs.FS, opts ...SetOption) *Set {
	s := &Set{
		fsys:    fsys,
		logger:  logging.Nop(),
		cache:   make(map[string]*Template),
		filters: make(map[string]Filter),
		globals: make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the named template, loading and parsing it if needed.
// Missing files yield an error wrapping ErrTemplateNotFound.
func (s *Set) Get(name string) (*Template, error) {
	s.mu.RLock()
	t, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	if s.fsys == nil || !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	src, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}

	nodes, err := parse(name, string(src))
	if err != nil {
		return nil, err
	}
	t = &Template{name: name, nodes: nodes, set: s}

	s.mu.Lock()
	s.cache[name] = t
	s.mu.Unlock()

	s.logger.Debug("template loaded", "name", name)
	return t, nil
}

// Render renders the named template with data.
func (s *Set) Render(name string, data map[string]any) (string, error) {
	t, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}

// Parse parses src as a template bound to the set, so it can use the set's
// filters and globals and include its files. The result is not cached.
func (s *Set) Parse(name, src string) (*Template, error) {
	nodes, err := parse(name, src)
	if err != nil {
		return nil, err
	}
	return &Template{name: name, nodes: nodes, set: s}, nil
}

// RenderString renders an inline template source with data.
func (s *Set) RenderString(src string, data map[string]any) (string, error) {
	t, err := s.Parse("<string>", src)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}

// AddFilter registers a custom filter. Custom filters shadow built-in ones.
func (s *Set) AddFilter(name string, f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[name] = f
}

// AddGlobal makes v available as name in every template of the set.
func (s *Set) AddGlobal(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals[name] = v
}

// Reset drops every cached template so the next render reads from disk.
func (s *Set) Reset() {
	s.mu.Lock()
	s.cache = make(map[string]*Template)
	s.mu.Unlock()
	s.logger.Debug("template cache cleared")
}

// Names lists the template files matching a doublestar pattern such as
// "**/*.html", sorted.
func (s *Set) Names(pattern string) ([]string, error) {
	if s.fsys == nil {
		return nil, nil
	}
	names, err := doublestar.Glob(s.fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing templates %q: %w", pattern, err)
	}
	sort.Strings(names)
	return names, nil
}

// Preload parses every template matching pattern and returns all syntax
// errors joined together.
func (s *Set) Preload(pattern string) error {
	names, err := s.Names(pattern)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if _, err := s.Get(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Set) filter(name string) (Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filters[name]
	return f, ok
}

func (s *Set) globalsCopy() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.globals)
}
