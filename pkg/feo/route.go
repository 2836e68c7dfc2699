package feo

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/feoweb/feo/internal/matching"
)

// ErrDuplicateEndpoint is returned when an explicit endpoint name is already
// taken by a different handler.
var ErrDuplicateEndpoint = errors.New("duplicate endpoint")

// ErrUnknownEndpoint is returned by URLFor for names no route carries.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// HandlerFunc handles a request matched by a route.
type HandlerFunc func(req *Request) (*Response, error)

// Route is an entry of the URL map.
type Route struct {
	// Rule is the pattern the route was registered with.
	Rule string `json:"rule"`
	// Endpoint names the route for URLFor.
	Endpoint string `json:"endpoint"`
	// Methods are the accepted methods, upper case.
	Methods []string `json:"methods"`

	pattern *matching.Pattern
	handler HandlerFunc
	fn      uintptr
}

// RouteOption configures a route.
type RouteOption func(*Route)

// Methods sets the methods a route accepts. The default is GET.
func Methods(methods ...string) RouteOption {
	return func(r *Route) {
		r.Methods = methods
	}
}

// Name sets the endpoint name. The default is the handler's function name,
// or the rule for anonymous functions.
func Name(endpoint string) RouteOption {
	return func(r *Route) {
		r.Endpoint = endpoint
	}
}

// Route registers handler for rule. Rules are Flask style: "/user/<username>"
// or "/post/<int:id>". Routes are tried in registration order.
func (a *App) Route(rule string, handler HandlerFunc, opts ...RouteOption) error {
	if handler == nil {
		return fmt.Errorf("route %q: nil handler", rule)
	}
	pattern, err := matching.Compile(rule)
	if err != nil {
		return err
	}

	r := &Route{
		Rule:    rule,
		pattern: pattern,
		handler: handler,
		fn:      reflect.ValueOf(handler).Pointer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Methods = matching.NormalizeMethods(r.Methods)
	explicit := r.Endpoint != ""
	if !explicit {
		r.Endpoint = endpointName(r.fn, rule)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// An explicit name must be unique unless it points at the same handler.
	// A derived name that is taken keeps addressing the first route.
	existing, taken := a.endpoints[r.Endpoint]
	if taken && explicit && existing.fn != r.fn {
		return fmt.Errorf("%w: %q is already used by %s", ErrDuplicateEndpoint, r.Endpoint, existing.Rule)
	}
	if !taken {
		a.endpoints[r.Endpoint] = r
	}
	a.routes = append(a.routes, r)

	a.logger.Debug("route registered", "rule", rule, "endpoint", r.Endpoint, "methods", r.Methods)
	return nil
}

// mustRoute panics on registration errors, like http.ServeMux.Handle.
func (a *App) mustRoute(rule string, handler HandlerFunc, method string, opts []RouteOption) {
	opts = append([]RouteOption{Methods(method)}, opts...)
	if err := a.Route(rule, handler, opts...); err != nil {
		panic(err)
	}
}

// Get registers a GET route. It panics if the rule is invalid.
func (a *App) Get(rule string, handler HandlerFunc, opts ...RouteOption) {
	a.mustRoute(rule, handler, http.MethodGet, opts)
}

// Post registers a POST route. It panics if the rule is invalid.
func (a *App) Post(rule string, handler HandlerFunc, opts ...RouteOption) {
	a.mustRoute(rule, handler, http.MethodPost, opts)
}

// Put registers a PUT route. It panics if the rule is invalid.
func (a *App) Put(rule string, handler HandlerFunc, opts ...RouteOption) {
	a.mustRoute(rule, handler, http.MethodPut, opts)
}

// Delete registers a DELETE route. It panics if the rule is invalid.
func (a *App) Delete(rule string, handler HandlerFunc, opts ...RouteOption) {
	a.mustRoute(rule, handler, http.MethodDelete, opts)
}

// Patch registers a PATCH route. It panics if the rule is invalid.
func (a *App) Patch(rule string, handler HandlerFunc, opts ...RouteOption) {
	a.mustRoute(rule, handler, http.MethodPatch, opts)
}

// Routes returns a copy of the URL map in registration order.
func (a *App) Routes() []Route {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Route, len(a.routes))
	for i, r := range a.routes {
		out[i] = Route{Rule: r.Rule, Endpoint: r.Endpoint, Methods: append([]string(nil), r.Methods...)}
	}
	return out
}

// URLFor builds the URL of an endpoint. Values that are not part of the rule
// become query parameters.
func (a *App) URLFor(endpoint string, params map[string]any) (string, error) {
	a.mu.RLock()
	r, ok := a.endpoints[endpoint]
	a.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}

	values := make(map[string]string, len(params))
	for k, v := range params {
		values[k] = fmt.Sprint(v)
	}
	url, err := r.pattern.Build(values)
	if err != nil {
		return "", fmt.Errorf("building URL for %q: %w", endpoint, err)
	}
	return url, nil
}

// Lookup returns the route that would serve method and path.
func (a *App) Lookup(method, path string) (Route, bool) {
	r, _, _ := a.match(method, path)
	if r == nil {
		return Route{}, false
	}
	return Route{Rule: r.Rule, Endpoint: r.Endpoint, Methods: append([]string(nil), r.Methods...)}, true
}

// match finds the first route whose rule matches path and which accepts
// method. When only other methods match, their methods are returned.
func (a *App) match(method, path string) (*Route, map[string]string, [][]string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var allowed [][]string
	for _, r := range a.routes {
		params, ok := r.pattern.Match(path)
		if !ok {
			continue
		}
		if matching.AllowsMethod(r.Methods, method) {
			return r, params, nil
		}
		allowed = append(allowed, r.Methods)
	}
	return nil, nil, allowed
}

var anonymousFunc = regexp.MustCompile(`^func\d+$`)

// endpointName derives an endpoint from the handler's function name, e.g.
// "index" for main.index. Anonymous functions use the rule.
func endpointName(fn uintptr, rule string) string {
	f := runtime.FuncForPC(fn)
	if f == nil {
		return rule
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" || anonymousFunc.MatchString(name) {
		return rule
	}
	return name
}
