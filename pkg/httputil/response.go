// Package httputil writes the JSON bodies of the endpoints the feo server
// mounts next to an application, such as the health check.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorBody is the JSON shape of a failed built-in endpoint.
type ErrorBody struct {
	// Error is a stable snake_case code, e.g. "shutting_down".
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes v with status. Built-in endpoints report live server
// state, so the response is marked uncacheable. A nil v writes headers only.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError sends an ErrorBody with status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

// WriteUnavailable answers 503. A positive retryAfter is sent as a
// Retry-After header in whole seconds, rounded up.
func WriteUnavailable(w http.ResponseWriter, code, message string, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	WriteError(w, http.StatusServiceUnavailable, code, message)
}
