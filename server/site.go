package server

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/engine"
)

// siteHandler maps URLs onto the site directory. Pages are bound before
// they are sent; every other file is served as-is.
type siteHandler struct {
	server   *Server
	siteRoot string // Absolute path to the site directory
}

func newSiteHandler(s *Server, siteRoot string) *siteHandler {
	return &siteHandler{server: s, siteRoot: siteRoot}
}

// ServeHTTP resolves the request path to a file. Directory URLs serve their
// index document.
func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path

	if containsPathTraversal(urlPath) {
		h.server.logWarn("blocked path traversal attempt: %s", urlPath)
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}

	if containsDotfile(urlPath) {
		h.server.logWarn("blocked dotfile access attempt: %s", urlPath)
		h.server.handle404(w, r)
		return
	}

	fsPath := filepath.Join(h.siteRoot, filepath.FromSlash(path.Clean("/"+urlPath)))
	info, err := os.Stat(fsPath)
	if err == nil && info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			http.Redirect(w, r, urlPath+"/", http.StatusFound)
			return
		}
		fsPath = filepath.Join(fsPath, h.server.config.Data.Index)
		info, err = os.Stat(fsPath)
	}
	if err != nil || info.IsDir() {
		h.server.handle404(w, r)
		return
	}

	if isPage(fsPath) {
		h.servePage(w, r, fsPath, urlPath)
		return
	}
	serveStaticFile(w, r, fsPath, h.server.config.Server.Dev)
}

// servePage binds and sends one page.
func (h *siteHandler) servePage(w http.ResponseWriter, r *http.Request, fsPath, urlPath string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if cached := h.server.pages.Get(r); cached != nil {
		cached.write(w)
		return
	}

	src, remote := h.server.pageSource(r, fsPath, urlPath)
	body, err := h.server.renderFile(r, fsPath, urlPath, src)
	if err != nil {
		h.server.handle500(w, r, err)
		return
	}

	// Cache the headers before middleware adds encoding headers to them
	headers := http.Header{}
	headers.Set("Content-Type", "text/html; charset=utf-8")
	if remote {
		headers.Add("Vary", "Accept-Language")
	}
	h.server.pages.Set(r, http.StatusOK, headers, body)

	for k, v := range headers {
		w.Header()[k] = append(w.Header()[k], v...)
	}
	if !h.server.pages.disabled {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// renderFile parses a page, binds it against src and returns the markup.
// Inline page data takes precedence over src.
func (s *Server) renderFile(r *http.Request, fsPath, urlPath string, src data.Loader) ([]byte, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	inline := recordSource(r, "inline", data.InlineSource{ID: s.config.Data.ScriptID})
	e := engine.New(s.binder.Registry(), engine.WithLogger(countDiagnostics(r, s.requestLog(urlPath))))
	e.Init(r.Context(), doc, data.Chain(inline, src))

	if s.config.Server.Dev {
		injectLiveReload(doc)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pageSource picks the data source of a page without inline data: its
// sidecar JSON file, then the remote data service. remote reports the
// latter, whose response depends on the request's Accept-Language.
func (s *Server) pageSource(r *http.Request, fsPath, urlPath string) (src data.Loader, remote bool) {
	if src := s.sidecarSource(fsPath); src != nil {
		return recordSource(r, "sidecar", src), false
	}

	if s.config.Data.Remote == "" {
		return nil, false
	}

	header := http.Header{}
	for k, v := range s.config.Data.Headers {
		header.Set(k, v)
	}
	if lang := r.Header.Get("Accept-Language"); lang != "" {
		header.Set("Accept-Language", lang)
	}

	return recordSource(r, "remote", data.HTTPSource{
		URL:     strings.TrimSuffix(s.config.Data.Remote, "/") + data.DataURL(urlPath, s.config.Data.Index),
		Client:  s.client,
		Cache:   s.dataCache,
		Timeout: s.config.Data.Timeout,
		Header:  header,
	}), true
}

// sidecarSource returns the <page>.json file source of a page, or nil when
// the page has none.
func (s *Server) sidecarSource(fsPath string) data.Loader {
	sidecar := data.SidecarPath(fsPath, s.config.Data.Index, false)
	if info, err := os.Stat(sidecar); err != nil || info.IsDir() {
		return nil
	}
	return data.FileSource{Path: sidecar}
}

// isPage reports whether a file is bound before it is served.
func isPage(fsPath string) bool {
	switch strings.ToLower(filepath.Ext(fsPath)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// serveStaticFile serves a file as-is. Dev mode disables browser caching.
func serveStaticFile(w http.ResponseWriter, r *http.Request, fsPath string, dev bool) {
	if dev {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}
	http.ServeFile(w, r, fsPath)
}

// containsPathTraversal checks if a path contains .. components.
func containsPathTraversal(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// containsDotfile checks if any path segment starts with a dot (hidden files).
func containsDotfile(p string) bool {
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg != "" && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
