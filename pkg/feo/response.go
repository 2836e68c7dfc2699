package feo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
)

// Content types set by the response constructors.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// Response is what a handler returns. The zero Status means 200 OK and an
// unset Content-Type defaults to HTML.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an HTML response with the given body.
func NewResponse(body []byte) *Response {
	return &Response{
		Header: http.Header{"Content-Type": {ContentTypeHTML}},
		Body:   body,
	}
}

// HTML returns a 200 response with an HTML body.
func HTML(body string) *Response {
	return NewResponse([]byte(body))
}

// Text returns a 200 response with a plain text body.
func Text(body string) *Response {
	return NewResponse([]byte(body)).WithHeader("Content-Type", ContentTypeText)
}

// JSON encodes v as the response body. It has the handler signature's
// result shape, so handlers can end with return feo.JSON(v).
func JSON(v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON response: %w", err)
	}
	return NewResponse(body).WithHeader("Content-Type", ContentTypeJSON), nil
}

// Redirect returns a 302 response pointing at location.
func Redirect(location string) *Response {
	return &Response{
		Status: http.StatusFound,
		Header: http.Header{"Location": {location}},
	}
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent, Header: http.Header{}}
}

// File returns the named file from fsys. The content type is taken from the
// extension, or sniffed when the extension is unknown. A missing file is a
// 404 *HTTPError.
func File(fsys fs.FS, name string) (*Response, error) {
	if !fs.ValidPath(name) {
		return nil, Abort(http.StatusNotFound, "")
	}
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, Abort(http.StatusNotFound, "")
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(body)
	}
	return NewResponse(body).WithHeader("Content-Type", ctype), nil
}

// StatusCode returns the status to send, 200 when Status is unset.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// WithStatus sets the status code.
func (r *Response) WithStatus(code int) *Response {
	r.Status = code
	return r
}

// WithHeader sets a header, replacing existing values.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(key, value)
	return r
}

// SetCookie adds a Set-Cookie header. Invalid cookies are dropped.
func (r *Response) SetCookie(c *http.Cookie) *Response {
	if v := c.String(); v != "" {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Add("Set-Cookie", v)
	}
	return r
}

// write sends the response. HEAD requests and bodiless statuses get headers
// only. A status net/http cannot send becomes 500.
func (r *Response) write(w http.ResponseWriter, method string) {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = v
	}
	if h.Get("Content-Type") == "" && len(r.Body) > 0 {
		h.Set("Content-Type", ContentTypeHTML)
	}

	status := r.StatusCode()
	if !validStatus(status) {
		status = http.StatusInternalServerError
	}
	bodyAllowed := status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
	if bodyAllowed {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	} else {
		h.Del("Content-Length")
	}
	w.WriteHeader(status)

	if bodyAllowed && method != http.MethodHead {
		_, _ = w.Write(r.Body)
	}
}
