package feo

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
)

// HTTPError is an error with an HTTP status. Handlers return one, usually via
// Abort, to stop processing and answer with that status.
type HTTPError struct {
	Code int
	// Message is shown on the error page. Empty means the standard text.
	Message string
	// Header is added to the error response, e.g. Allow on a 405.
	Header http.Header
	// Err is the underlying cause, if any.
	Err error
}

// Abort returns an *HTTPError for code. The message is optional.
func Abort(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	text := fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	if e.Message != "" {
		text += ": " + e.Message
	}
	if e.Err != nil {
		text += ": " + e.Err.Error()
	}
	return text
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ErrorHandlerFunc renders the response for an error status. The returned
// response keeps the error's status unless it sets one itself.
type ErrorHandlerFunc func(req *Request, err *HTTPError) (*Response, error)

// panicError carries a recovered panic.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// Default descriptions, following Werkzeug's wording.
var descriptions = map[int]string{
	http.StatusBadRequest:            "The browser (or proxy) sent a request that this server could not understand.",
	http.StatusUnauthorized:          "The server could not verify that you are authorized to access the URL requested.",
	http.StatusForbidden:             "You don't have the permission to access the requested resource.",
	http.StatusMethodNotAllowed:      "The method is not allowed for the requested URL.",
	http.StatusRequestEntityTooLarge: "The data value transmitted exceeds the capacity limit.",
	http.StatusInternalServerError:   "The server encountered an internal error and was unable to complete your request.",
}

// defaultErrorPage renders the built-in page for err. Details of 500s other
// than an explicit message are only shown in debug mode.
func defaultErrorPage(req *Request, err *HTTPError, debug bool) *Response {
	title := fmt.Sprintf("%d %s", err.Code, http.StatusText(err.Code))

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>", title)

	switch {
	case err.Code == http.StatusNotFound && err.Message == "":
		fmt.Fprintf(&body, "<p>The requested URL %s was not found.</p>", html.EscapeString(req.Path))
	case err.Message != "":
		fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(err.Message))
	case err.Code == http.StatusInternalServerError && debug && err.Err != nil:
		fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString(err.Err.Error()))
	default:
		desc := descriptions[err.Code]
		if desc == "" {
			desc = http.StatusText(err.Code)
		}
		fmt.Fprintf(&body, "<p>%s</p>", desc)
	}

	if debug {
		var p *panicError
		if errors.As(err.Err, &p) {
			fmt.Fprintf(&body, "<pre>%s</pre>", html.EscapeString(string(p.stack)))
		}
		if len(req.nearMisses) > 0 {
			body.WriteString("<p>Routes that came close:</p><ul>")
			for _, m := range req.nearMisses {
				fmt.Fprintf(&body, "<li><code>%s</code>: %s</li>", html.EscapeString(m.Rule), html.EscapeString(m.Reason))
			}
			body.WriteString("</ul>")
		}
	}

	return HTML(body.String()).WithStatus(err.Code)
}
