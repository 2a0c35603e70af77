package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/errors"
	"github.com/sambeau/plainbind/pkg/plainbind/plainbind"
)

//go:embed devtools/logs.html
var logsPage string

// devToolsHandler serves dev tool pages at /__/* routes.
type devToolsHandler struct {
	server *Server
	pages  *plainbind.Binder
}

// newDevToolsHandler creates a new dev tools handler. Its pages are bound
// with their own binder so rendering them never records diagnostics.
func newDevToolsHandler(s *Server) *devToolsHandler {
	return &devToolsHandler{
		server: s,
		pages: plainbind.New(
			plainbind.WithLogger(s.engineLog),
			plainbind.WithLocation(s.config.Location()),
		),
	}
}

// ServeHTTP handles requests to /__/* routes.
func (h *devToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.server.config.Server.Dev {
		http.NotFound(w, r)
		return
	}

	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/__":
		http.Redirect(w, r, "/__/logs", http.StatusFound)
	case "/__/logs/poll":
		h.serveLogsPoll(w, r)
	case "/__/logs":
		h.serveLogs(w, r)
	default:
		http.NotFound(w, r)
	}
}

// serveLogs serves the diagnostics page. ?route= filters by page, ?clear
// deletes, ?text and ?json pick another representation.
func (h *devToolsHandler) serveLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	route := q.Get("route")

	if q.Has("clear") {
		if h.server.devLog != nil {
			if err := h.server.devLog.ClearLogs(route); err != nil {
				h.server.logError("failed to clear logs: %v", err)
			}
		}
		http.Redirect(w, r, logsURL(route, ""), http.StatusSeeOther)
		return
	}

	var entries []LogEntry
	if h.server.devLog != nil {
		var err error
		entries, err = h.server.devLog.GetLogs(route, 500)
		if err != nil {
			h.server.logError("failed to get logs: %v", err)
		}
	}

	switch {
	case q.Has("text"):
		h.serveLogsText(w, entries)
	case q.Has("json"):
		h.serveLogsJSON(w, entries)
	default:
		h.serveLogsHTML(w, r, entries, route)
	}
}

// serveLogsPoll returns the current log sequence number for live refresh.
func (h *devToolsHandler) serveLogsPoll(w http.ResponseWriter, r *http.Request) {
	seq := uint64(0)
	if h.server.devLog != nil {
		seq = h.server.devLog.GetSeq()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	fmt.Fprintf(w, `{"seq":%d}`, seq)
}

// serveLogsText serves logs in plain text format, oldest first.
func (h *devToolsHandler) serveLogsText(w http.ResponseWriter, entries []LogEntry) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if len(entries) == 0 {
		fmt.Fprintln(w, "No logs")
		return
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		code := e.Code
		if code == "" {
			code = "-"
		}
		route := e.Route
		if route == "" {
			route = "(formatter)"
		}
		fmt.Fprintf(w, "[%s] %s %s %s\n", e.Timestamp.Format("15:04:05"), strings.ToUpper(e.Level), code, route)
		fmt.Fprintf(w, "  %s\n", e.Message)
		if e.Hint != "" {
			fmt.Fprintf(w, "  hint: %s\n", e.Hint)
		}
		fmt.Fprintln(w)
	}
}

func (h *devToolsHandler) serveLogsJSON(w http.ResponseWriter, entries []LogEntry) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if entries == nil {
		entries = []LogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(entries)
}

// serveLogsHTML binds the embedded logs page against the entries.
func (h *devToolsHandler) serveLogsHTML(w http.ResponseWriter, r *http.Request, entries []LogEntry, route string) {
	items := make([]any, len(entries))
	for i, e := range entries {
		items[i] = map[string]any{
			"time":     float64(e.Timestamp.UnixMilli()),
			"route":    e.Route,
			"routeURL": logsURL(e.Route, ""),
			"code":     e.Code,
			"message":  e.Message,
			"hint":     e.Hint,
			"isFetch":  e.Class == string(errors.ClassFetch),
			"isData":   e.Class == string(errors.ClassData),
			"isFormat": e.Class == string(errors.ClassFormat),
			"isRender": e.Class == string(errors.ClassRender),
		}
	}
	obj := map[string]any{
		"route":        route,
		"count":        float64(len(entries)),
		"entries":      items,
		"entriesEmpty": len(items) == 0,
		"textURL":      logsURL(route, "text"),
		"jsonURL":      logsURL(route, "json"),
		"clearURL":     logsURL(route, "clear"),
	}

	var buf bytes.Buffer
	if _, err := h.pages.Render(r.Context(), strings.NewReader(logsPage), &buf, data.Static(obj)); err != nil {
		h.server.handle500(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// logsURL builds a /__/logs link keeping the route filter.
func logsURL(route, flag string) string {
	q := url.Values{}
	if route != "" {
		q.Set("route", route)
	}
	u := "/__/logs"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	if flag != "" {
		if strings.Contains(u, "?") {
			u += "&" + flag
		} else {
			u += "?" + flag
		}
	}
	return u
}
