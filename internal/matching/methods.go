package matching

import (
	"net/http"
	"slices"
	"strings"
)

// NormalizeMethods upper-cases and de-duplicates methods, keeping their
// order. An empty list means GET only.
func NormalizeMethods(methods []string) []string {
	if len(methods) == 0 {
		return []string{http.MethodGet}
	}
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return []string{http.MethodGet}
	}
	return out
}

// AllowsMethod reports whether method is served by a route registered for
// methods. HEAD is implied by GET.
func AllowsMethod(methods []string, method string) bool {
	if slices.Contains(methods, method) {
		return true
	}
	return method == http.MethodHead && slices.Contains(methods, http.MethodGet)
}

// AllowHeader builds the value of an Allow header from the methods of every
// route matching a path. OPTIONS is always included, HEAD whenever GET is.
func AllowHeader(methodSets ...[]string) string {
	var allowed []string
	add := func(m string) {
		if !slices.Contains(allowed, m) {
			allowed = append(allowed, m)
		}
	}
	for _, set := range methodSets {
		for _, m := range set {
			add(m)
			if m == http.MethodGet {
				add(http.MethodHead)
			}
		}
	}
	add(http.MethodOptions)
	slices.Sort(allowed)
	return strings.Join(allowed, ", ")
}
