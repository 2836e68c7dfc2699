// Package server runs a feo application as a development HTTP server.
//
//	srv := server.New(app, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The server binds to 127.0.0.1:5000 unless the application's configuration
// says otherwise. Requests pass through request id, real IP and access log
// middleware, plus gzip and Prometheus metrics when enabled. A liveness probe
// is served at /__feo/health. In debug mode edited templates are picked up
// without a restart.
package server
