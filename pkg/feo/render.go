package feo

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/feoweb/feo/pkg/template"
)

// Render renders a template from the templates directory into an HTML
// response. Besides data, templates see request and url_for. A missing
// template is a 500 *HTTPError whose message names it.
func (r *Request) Render(name string, data map[string]any) (*Response, error) {
	out, err := r.app.templates.Render(name, r.templateData(data))
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			return nil, &HTTPError{
				Code:    http.StatusInternalServerError,
				Message: "Template not found: " + name,
				Err:     err,
			}
		}
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return HTML(out), nil
}

// RenderString renders an inline template source into an HTML response.
func (r *Request) RenderString(src string, data map[string]any) (*Response, error) {
	out, err := r.app.templates.RenderString(src, r.templateData(data))
	if err != nil {
		return nil, fmt.Errorf("rendering inline template: %w", err)
	}
	return HTML(out), nil
}

// RenderTemplate renders a template outside of a request. Templates see
// url_for but no request.
func (a *App) RenderTemplate(name string, data map[string]any) (string, error) {
	out := make(map[string]any, len(data)+1)
	out["url_for"] = a.urlForFunc()
	maps.Copy(out, data)
	return a.templates.Render(name, out)
}

func (a *App) urlForFunc() func(string, ...map[string]any) (string, error) {
	return func(endpoint string, params ...map[string]any) (string, error) {
		merged := make(map[string]any)
		for _, p := range params {
			maps.Copy(merged, p)
		}
		return a.URLFor(endpoint, merged)
	}
}

func (r *Request) templateData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+2)
	out["request"] = map[string]any{
		"method":   r.Method,
		"path":     r.Path,
		"args":     r.Args(),
		"headers":  r.Header,
		"endpoint": r.Endpoint(),
		"params":   r.Params(),
		"id":       r.id,
	}
	out["url_for"] = r.app.urlForFunc()
	maps.Copy(out, data)
	return out
}

func urlencodeFilter(v any, _ ...any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		q := url.Values{}
		for k, val := range x {
			q.Set(k, fmt.Sprint(val))
		}
		return q.Encode(), nil
	case nil:
		return "", nil
	}
	return url.QueryEscape(fmt.Sprint(v)), nil
}
