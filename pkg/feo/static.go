package feo

import (
	"os"
	"strings"
)

// StaticEndpoint is the endpoint name of the static files route, for
// URLFor("static", map[string]any{"filename": "style.css"}).
const StaticEndpoint = "static"

func (a *App) registerStatic() {
	prefix := strings.TrimSuffix(a.cfg.StaticURLPath, "/")
	fsys := os.DirFS(a.cfg.StaticDir)

	serveStatic := func(req *Request) (*Response, error) {
		return File(fsys, req.Param("filename"))
	}
	if err := a.Route(prefix+"/<path:filename>", serveStatic, Name(StaticEndpoint)); err != nil {
		a.logger.Error("failed to register static route", "path", prefix, "error", err)
	}
}
