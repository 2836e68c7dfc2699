package feo

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/feoweb/feo/internal/matching"
)

// maxNearMisses bounds the route suggestions on debug 404 pages.
const maxNearMisses = 3

// ServeHTTP dispatches a request: before hooks, routing, the handler, error
// handling and after hooks, then writes the response.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := newRequest(a, w, r)

	resp := a.handle(req)
	resp.write(w, r.Method)

	a.logger.Debug("request handled",
		"method", req.Method,
		"path", req.Path,
		"endpoint", req.Endpoint(),
		"status", resp.StatusCode(),
		"duration", time.Since(start),
		"request_id", req.ID(),
	)
}

// handle produces the response for req. It never returns nil.
func (a *App) handle(req *Request) *Response {
	before, after := a.hooks()

	resp, err := a.run(req, before)
	if err != nil {
		resp = a.handleError(req, err)
	} else if resp == nil {
		resp = a.handleError(req, errors.New("handler returned neither a response nor an error"))
	} else if !validStatus(resp.StatusCode()) {
		resp = a.handleError(req, fmt.Errorf("handler returned invalid status code %d", resp.Status))
	}

	for _, fn := range after {
		if replaced := a.safeAfter(fn, req, resp); replaced != nil {
			resp = replaced
		}
	}
	return resp
}

// run routes the request, then executes the before hooks and the matched
// handler, turning panics into errors.
func (a *App) run(req *Request, before []BeforeFunc) (resp *Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			resp, err = nil, &panicError{value: v, stack: debug.Stack()}
		}
	}()

	route, params, allowed := a.match(req.Method, req.Path)
	req.route = route
	req.params = params

	for _, fn := range before {
		if hookResp, hookErr := fn(req); hookResp != nil || hookErr != nil {
			return hookResp, hookErr
		}
	}

	if route == nil {
		return a.unmatched(req, allowed)
	}
	return route.handler(req)
}

// unmatched answers requests no route accepts: OPTIONS and 405 when the path
// exists under other methods, 404 otherwise.
func (a *App) unmatched(req *Request, allowed [][]string) (*Response, error) {
	if len(allowed) == 0 {
		if a.cfg.Debug {
			req.nearMisses = a.nearMisses(req)
		}
		return nil, Abort(http.StatusNotFound, "")
	}

	allow := matching.AllowHeader(allowed...)
	if req.Method == http.MethodOptions {
		return NoContent().WithStatus(http.StatusOK).WithHeader("Allow", allow), nil
	}
	if a.cfg.Debug {
		req.nearMisses = a.nearMisses(req)
	}
	return nil, &HTTPError{
		Code:   http.StatusMethodNotAllowed,
		Header: http.Header{"Allow": {allow}},
	}
}

// nearMisses lists the routes closest to the request for debug error pages.
// Routes whose rule matches but which reject the method rank first.
func (a *App) nearMisses(req *Request) []matching.NearMiss {
	a.mu.RLock()
	patterns := make([]*matching.Pattern, len(a.routes))
	methods := make(map[*matching.Pattern][]string, len(a.routes))
	for i, r := range a.routes {
		patterns[i] = r.pattern
		methods[r.pattern] = r.Methods
	}
	a.mu.RUnlock()

	rejects := func(p *matching.Pattern) bool {
		return !matching.AllowsMethod(methods[p], req.Method)
	}
	return matching.NearMisses(req.Path, patterns, rejects, maxNearMisses)
}

// handleError turns err into a response, using a registered error handler
// when there is one for the status.
func (a *App) handleError(req *Request, err error) *Response {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = &HTTPError{Code: http.StatusInternalServerError, Err: err}
	} else if !validStatus(httpErr.Code) {
		httpErr = &HTTPError{Code: http.StatusInternalServerError, Err: fmt.Errorf("invalid status code: %w", err)}
	}

	if httpErr.Code >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"method", req.Method,
			"path", req.Path,
			"status", httpErr.Code,
			"error", err,
			"request_id", req.ID(),
		)
	}

	resp := a.customErrorPage(req, httpErr)
	if resp == nil {
		resp = defaultErrorPage(req, httpErr, a.cfg.Debug)
	}
	for k, v := range httpErr.Header {
		resp.Header[k] = v
	}
	return resp
}

// validStatus reports whether net/http can write code as a status line.
func validStatus(code int) bool {
	return code >= 100 && code <= 999
}

// customErrorPage runs the registered handler for the error's status. A
// failing handler falls back to the default 500 page.
func (a *App) customErrorPage(req *Request, httpErr *HTTPError) (resp *Response) {
	fn := a.errorHandler(httpErr.Code)
	if fn == nil {
		return nil
	}

	defer func() {
		if v := recover(); v != nil {
			a.logger.Error("error handler panicked", "status", httpErr.Code, "panic", v)
			resp = defaultErrorPage(req, &HTTPError{Code: http.StatusInternalServerError}, a.cfg.Debug)
		}
	}()

	resp, err := fn(req, httpErr)
	if err != nil || resp == nil {
		a.logger.Error("error handler failed", "status", httpErr.Code, "error", err)
		return defaultErrorPage(req, &HTTPError{Code: http.StatusInternalServerError, Err: err}, a.cfg.Debug)
	}
	if resp.Status == 0 {
		resp.Status = httpErr.Code
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	return resp
}

// safeAfter runs an after hook, keeping the current response if it panics.
func (a *App) safeAfter(fn AfterFunc, req *Request, resp *Response) (out *Response) {
	defer func() {
		if v := recover(); v != nil {
			a.logger.Error("after request hook panicked", "panic", v)
			out = nil
		}
	}()
	return fn(req, resp)
}
