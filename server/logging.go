package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
)

// RequestLogEntry is one line of the request log. Data and Diagnostics are
// only set for pages that were bound during the request.
type RequestLogEntry struct {
	Time        string `json:"time"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Status      int    `json:"status"`
	Bytes       int    `json:"bytes"`
	DurationMs  int64  `json:"duration_ms"`
	Cache       string `json:"cache,omitempty"`
	Data        string `json:"data,omitempty"`
	Diagnostics int64  `json:"diagnostics,omitempty"`
	ClientIP    string `json:"client_ip"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// bindStats collects what happened while a page was bound.
type bindStats struct {
	source      atomic.Value // string
	diagnostics atomic.Int64
}

type bindStatsKey struct{}

func statsFrom(ctx context.Context) *bindStats {
	st, _ := ctx.Value(bindStatsKey{}).(*bindStats)
	return st
}

// recordSource wraps l so that the request log names the source that
// supplied the page data.
func recordSource(r *http.Request, name string, l data.Loader) data.Loader {
	st := statsFrom(r.Context())
	if l == nil || st == nil {
		return l
	}
	return data.LoaderFunc(func(ctx context.Context, doc *html.Node) (map[string]any, error) {
		obj, err := l.Load(ctx, doc)
		if !stderrors.Is(err, data.ErrNoData) {
			st.source.Store(name)
		}
		return obj, err
	})
}

// countDiagnostics wraps the engine logger of a request so that binding
// diagnostics are counted in the request log.
func countDiagnostics(r *http.Request, next logger.Logger) logger.Logger {
	st := statsFrom(r.Context())
	if st == nil {
		return next
	}
	return &diagnosticCounter{next: next, stats: st}
}

type diagnosticCounter struct {
	next  logger.Logger
	stats *bindStats
}

func (c *diagnosticCounter) Log(values ...any) { c.next.Log(values...) }

func (c *diagnosticCounter) LogLine(values ...any) {
	c.stats.diagnostics.Add(1)
	c.next.LogLine(values...)
}

// statusRecorder remembers the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// requestLogger writes one line per request as text or JSON.
type requestLogger struct {
	next   http.Handler
	out    io.Writer
	asJSON bool
}

func newRequestLogger(next http.Handler, out io.Writer, format string) *requestLogger {
	return &requestLogger{next: next, out: out, asJSON: format == "json"}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st := &bindStats{}
	rec := &statusRecorder{ResponseWriter: w}
	rl.next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), bindStatsKey{}, st)))
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	entry := RequestLogEntry{
		Time:        start.Format(time.RFC3339),
		Method:      r.Method,
		Path:        r.URL.Path,
		Status:      rec.status,
		Bytes:       rec.bytes,
		DurationMs:  time.Since(start).Milliseconds(),
		Cache:       rec.Header().Get("X-Cache"),
		Diagnostics: st.diagnostics.Load(),
		ClientIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
	}
	entry.Data, _ = st.source.Load().(string)

	if rl.asJSON {
		line, err := json.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintf(rl.out, "%s\n", line)
		return
	}
	fmt.Fprintln(rl.out, entry.text())
}

// text renders the entry as a single space-separated line.
func (e RequestLogEntry) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %d %dB %dms", e.Time, e.Method, e.Path, e.Status, e.Bytes, e.DurationMs)
	if e.Cache != "" {
		b.WriteString(" " + e.Cache)
	}
	if e.Data != "" {
		b.WriteString(" data=" + e.Data)
	}
	if e.Diagnostics > 0 {
		fmt.Fprintf(&b, " diagnostics=%d", e.Diagnostics)
	}
	return b.String()
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

// openOutput resolves a logging destination: "stdout", "stderr", "none", or
// a file path opened for appending. The returned closer is nil unless a file
// was opened.
func openOutput(name string, stdout, stderr io.Writer) (io.Writer, io.Closer, error) {
	switch name {
	case "", "stderr":
		return stderr, nil, nil
	case "stdout":
		return stdout, nil, nil
	case "none":
		return io.Discard, nil, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, f, nil
}
