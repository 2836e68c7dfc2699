package feo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feoweb/feo/internal/id"
	"github.com/feoweb/feo/internal/matching"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Request is the handler's view of an incoming HTTP request.
type Request struct {
	// Method is the HTTP method, upper case.
	Method string
	// Path is the URL path without the query string.
	Path string
	// Header holds the request headers.
	Header http.Header
	// Query holds the parsed query string (Flask's request.args).
	Query url.Values
	// Raw is the underlying request.
	Raw *http.Request

	app        *App
	route      *Route
	params     map[string]string
	id         string
	body       []byte
	bodyRead   bool
	nearMisses []matching.NearMiss
}

func newRequest(app *App, w http.ResponseWriter, r *http.Request) *Request {
	if limit := app.cfg.MaxBodySize; limit > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	return &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Query:  r.URL.Query(),
		Raw:    r,
		app:    app,
		id:     id.FromHeader(r.Header.Get(RequestIDHeader)),
	}
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	return r.Raw.Context()
}

// App returns the application handling the request.
func (r *Request) App() *App {
	return r.app
}

// ID returns the request id: the X-Request-ID header when the client or a
// proxy set a usable one, otherwise a random UUID.
func (r *Request) ID() string {
	return r.id
}

// Endpoint returns the endpoint of the matched route, or "" before routing
// and for unmatched requests.
func (r *Request) Endpoint() string {
	if r.route == nil {
		return ""
	}
	return r.route.Endpoint
}

// Arg returns the first value of a query parameter.
func (r *Request) Arg(name string) string {
	return r.Query.Get(name)
}

// Args returns the query parameters with single values collapsed to a
// string and repeated parameters kept as a []string.
func (r *Request) Args() map[string]any {
	out := make(map[string]any, len(r.Query))
	for k, v := range r.Query {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Param returns a dynamic URL segment, "" if absent.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// Params returns a copy of all dynamic URL segments.
func (r *Request) Params() map[string]string {
	return maps.Clone(r.params)
}

// ParamInt returns a dynamic segment as an int. A missing or malformed value
// is a 400 *HTTPError.
func (r *Request) ParamInt(name string) (int, error) {
	v, ok := r.params[name]
	if !ok {
		return 0, Abort(http.StatusBadRequest, fmt.Sprintf("missing URL parameter %q", name))
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &HTTPError{Code: http.StatusBadRequest, Message: fmt.Sprintf("URL parameter %q is not an integer", name), Err: err}
	}
	return n, nil
}

// Cookie returns the value of the named cookie, "" if absent.
func (r *Request) Cookie(name string) string {
	c, err := r.Raw.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Body reads and caches the request body. Bodies over Config.MaxBodySize
// yield a 413 *HTTPError.
func (r *Request) Body() ([]byte, error) {
	if r.bodyRead {
		return r.body, nil
	}
	r.bodyRead = true
	if r.Raw.Body == nil {
		return nil, nil
	}

	data, err := io.ReadAll(r.Raw.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &HTTPError{Code: http.StatusRequestEntityTooLarge, Err: err}
		}
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	r.body = data
	return data, nil
}

// Form parses an urlencoded or multipart body and returns its fields.
// Query parameters are not included.
func (r *Request) Form() (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var err error
	if mediaType == "multipart/form-data" {
		err = r.Raw.ParseMultipartForm(r.app.cfg.MaxBodySize)
	} else {
		err = r.Raw.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &HTTPError{Code: http.StatusRequestEntityTooLarge, Err: err}
		}
		return nil, &HTTPError{Code: http.StatusBadRequest, Message: "malformed form data", Err: err}
	}
	return r.Raw.PostForm, nil
}

// BindJSON decodes the JSON body into v. Malformed JSON is a 400 *HTTPError.
func (r *Request) BindJSON(v any) error {
	body, err := r.Body()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &HTTPError{Code: http.StatusBadRequest, Message: "malformed JSON body", Err: err}
	}
	return nil
}

// JSONPath evaluates a JSONPath expression such as "$.user.name" against the
// JSON body and returns every match.
func (r *Request) JSONPath(expr string) ([]any, error) {
	path, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", expr, err)
	}
	body, err := r.Body()
	if err != nil {
		return nil, err
	}
	data, err := oj.Parse(body)
	if err != nil {
		return nil, &HTTPError{Code: http.StatusBadRequest, Message: "malformed JSON body", Err: err}
	}
	return path.Get(data), nil
}

// URLFor builds the URL of an endpoint of the request's application.
func (r *Request) URLFor(endpoint string, params map[string]any) (string, error) {
	return r.app.URLFor(endpoint, params)
}
