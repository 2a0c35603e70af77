package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
)

// handle404 renders the site's 404.html when it has one, otherwise a plain
// text response.
func (s *Server) handle404(w http.ResponseWriter, r *http.Request) {
	if !s.renderErrorPage(w, r, http.StatusNotFound, nil) {
		http.NotFound(w, r)
	}
}

// handle500 renders the site's 500.html when it has one. The error text is
// only shown in dev mode.
func (s *Server) handle500(w http.ResponseWriter, r *http.Request, err error) {
	s.logError("%s: %v", r.URL.Path, err)
	if !s.renderErrorPage(w, r, http.StatusInternalServerError, err) {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

// renderErrorPage binds <status>.html from the site root. Pages without
// their own data see {status, path, error}.
func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, status int, cause error) bool {
	page := filepath.Join(s.config.Site, statusFile(status))
	if _, err := os.Stat(page); err != nil {
		return false
	}

	obj := map[string]any{
		"status": float64(status),
		"path":   r.URL.Path,
	}
	if cause != nil && s.config.Server.Dev {
		obj["error"] = cause.Error()
	}

	src := data.Chain(s.sidecarSource(page), data.Static(obj))
	body, err := s.renderFile(r, page, "/"+statusFile(status), src)
	if err != nil {
		s.logError("rendering %s: %v", page, err)
		return false
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	w.Write(body)
	return true
}

func statusFile(status int) string {
	switch status {
	case http.StatusNotFound:
		return "404.html"
	default:
		return "500.html"
	}
}
