package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/feoweb/feo/pkg/config"
	"github.com/feoweb/feo/pkg/feo"
	"github.com/feoweb/feo/pkg/logging"
	"golang.org/x/net/netutil"
)

// ErrAlreadyRunning is returned by Start when the server is serving.
var ErrAlreadyRunning = errors.New("server already running")

// Server is the development HTTP server for a feo application.
type Server struct {
	app     *feo.App
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	metrics *Metrics
	handler http.Handler

	mu          sync.Mutex
	running     bool
	listener    net.Listener
	httpServer  *http.Server
	serveErr    chan error
	stopWatch   context.CancelFunc
	watchDone   chan struct{}
	started     atomic.Int64
	stopping    atomic.Bool
	watchTmpl   bool
	templateDir string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and server errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOutput sets where the startup banner is printed. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		if w != nil {
			s.out = w
		}
	}
}

// WithConfig overrides the application's configuration for the server.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithTemplateWatch overrides whether the templates directory is watched.
// By default it is watched in debug mode.
func WithTemplateWatch(enabled bool) Option {
	return func(s *Server) {
		s.watchTmpl = enabled
	}
}

// New creates a server for app. The address, timeouts and middleware come
// from the application's configuration.
func New(app *feo.App, opts ...Option) *Server {
	s := &Server{
		app:    app,
		cfg:    app.Config(),
		logger: logging.Nop(),
		out:    os.Stderr,
	}
	s.watchTmpl = s.cfg.Debug
	for _, opt := range opts {
		opt(s)
	}
	s.templateDir = s.cfg.TemplatesDir

	if s.cfg.Metrics.Enabled {
		s.metrics = NewMetrics()
	}
	s.handler = s.routes()
	return s
}

// Handler returns the application wrapped in the server middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the request metrics, or nil when they are disabled.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeoutDuration(),
		ReadHeaderTimeout: s.cfg.ReadTimeoutDuration(),
		WriteTimeout:      s.cfg.WriteTimeoutDuration(),
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	s.listener = ln
	s.serveErr = make(chan error, 1)
	s.started.Store(time.Now().UnixNano())
	s.stopping.Store(false)

	srv, errc := s.httpServer, s.serveErr
	go func() {
		defer close(errc)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			errc <- err
		}
	}()

	if s.watchTmpl && s.templateDir != "" {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopWatch = cancel
		s.watchDone = make(chan struct{})
		go s.watchTemplates(ctx, s.watchDone)
	}

	s.running = true
	s.banner()
	s.logger.Info("server started", "addr", ln.Addr().String(), "debug", s.cfg.Debug)
	return nil
}

func (s *Server) banner() {
	debug := "off"
	if s.cfg.Debug {
		debug = "on"
	}
	fmt.Fprintf(s.out, " * Serving Feo app '%s'\n", s.app.Name())
	fmt.Fprintf(s.out, " * Debug mode: %s\n", debug)
	fmt.Fprintf(s.out, " * Running on http://%s\n", s.listener.Addr().String())
	fmt.Fprintln(s.out, "Press CTRL+C to quit")
}

func (s *Server) watchTemplates(ctx context.Context, done chan struct{}) {
	defer close(done)
	if err := s.app.Templates().Watch(ctx, s.templateDir); err != nil {
		s.logger.Warn("template reload disabled", "dir", s.templateDir, "error", err)
	}
}

// Addr returns the address the server listens on, or the configured
// address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.stopping.Store(true)
	fmt.Fprintln(s.out, " * Shutting down server...")

	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
		s.stopWatch = nil
	}

	err := s.httpServer.Shutdown(ctx)
	s.running = false
	s.listener = nil
	if err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Run starts the server and blocks until ctx is cancelled, the process
// receives SIGINT or SIGTERM, or serving fails. It then shuts down within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	errc := s.serveErr
	s.mu.Unlock()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errc:
		serveErr = err
	}

	shutdownCtx := context.Background()
	if timeout := s.cfg.ShutdownTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
		defer cancel()
	}
	if err := s.Stop(shutdownCtx); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}
