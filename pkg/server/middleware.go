package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/feoweb/feo/internal/id"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/feoweb/feo/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthPath serves the liveness probe.
const HealthPath = "/__feo/health"

// compressLevel is the gzip level used when compression is enabled.
const compressLevel = 5

// routes builds the middleware chain and the built-in endpoints. Every other
// request falls through to the application, which owns 404 and 405.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware(s.label))
	}
	if s.cfg.Compress {
		r.Use(middleware.Compress(compressLevel))
	}

	r.Get(HealthPath, s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, s.metricsPath(), s.metrics.Handler())
	}

	r.NotFound(s.app.ServeHTTP)
	r.MethodNotAllowed(s.app.ServeHTTP)
	return r
}

func (s *Server) metricsPath() string {
	if s.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return s.cfg.Metrics.Path
}

// label names the route a request is served by, keeping metric cardinality
// bounded by the URL map.
func (s *Server) label(r *http.Request) string {
	path := r.URL.Path
	if path == HealthPath || (s.metrics != nil && path == s.metricsPath()) {
		return path
	}
	if route, ok := s.app.Lookup(r.Method, path); ok {
		return route.Rule
	}
	return "unmatched"
}

// requestID assigns every request an id, keeping a usable one sent by the
// client, and echoes it in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := id.FromHeader(r.Header.Get(feo.RequestIDHeader))
		r.Header.Set(feo.RequestIDHeader, rid)
		w.Header().Set(feo.RequestIDHeader, rid)
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request. Requests are logged at info level
// in debug mode and at debug level otherwise.
func (s *Server) accessLog(next http.Handler) http.Handler {
	level := slog.LevelDebug
	if s.cfg.Debug {
		level = slog.LevelInfo
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
			"request_id", r.Header.Get(feo.RequestIDHeader),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.stopping.Load() {
		httputil.WriteUnavailable(w, "shutting_down", "server is shutting down", s.cfg.ShutdownTimeoutDuration())
		return
	}

	var uptime time.Duration
	if started := s.started.Load(); started != 0 {
		uptime = time.Since(time.Unix(0, started)).Round(time.Second)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"app":       s.app.Name(),
		"routes":    len(s.app.Routes()),
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
