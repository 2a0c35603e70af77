package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sambeau/plainbind/config"
)

func newDevServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	s := newTestServer(t, files, func(c *config.Config) {
		c.Server.Dev = true
	})
	if s.devLog == nil {
		t.Fatal("dev server should open a dev log")
	}
	return s
}

func seedLogs(t *testing.T, s *Server) {
	t.Helper()
	entries := []LogEntry{
		{Route: "/a.html", Class: "data", Code: "DATA-0002", Message: "failed to read data file"},
		{Route: "/b.html", Class: "fetch", Code: "FETCH-0001", Message: "fetching x: HTTP 500"},
		{Route: "", Class: "format", Code: "FMT-0002", Message: "unknown formatter shout"},
	}
	for _, e := range entries {
		if err := s.devLog.Log(e); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDevTools_NotFoundInProduction(t *testing.T) {
	s := newTestServer(t, nil, nil)

	// Production mode has no /__/ route, so the site handler answers
	if rec := get(s, "/__/logs"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	// The handler refuses on its own as well
	rec := httptest.NewRecorder()
	newDevToolsHandler(s).ServeHTTP(rec, httptest.NewRequest("GET", "/__/logs", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("handler status = %d, want 404", rec.Code)
	}
}

func TestDevTools_Redirect(t *testing.T) {
	s := newDevServer(t, nil)

	rec := get(s, "/__/")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/__/logs" {
		t.Errorf("Location = %q", loc)
	}

	if rec := get(s, "/__/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tool = %d", rec.Code)
	}
}

func TestDevTools_Poll(t *testing.T) {
	s := newDevServer(t, nil)
	seedLogs(t, s)

	rec := get(s, "/__/logs/poll")
	var got struct{ Seq uint64 }
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("poll response: %v", err)
	}
	if got.Seq != 3 {
		t.Errorf("seq = %d, want 3", got.Seq)
	}
}

func TestDevTools_LogsHTML(t *testing.T) {
	s := newDevServer(t, nil)
	seedLogs(t, s)

	rec := get(s, "/__/logs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"FETCH-0001",
		"unknown formatter shout",
		"(formatter)",
		`class="fetch"`,
		`href="/__/logs?route=%2Fa.html"`,
		">3</span> entries",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("logs page should contain %q", want)
		}
	}
	if strings.Contains(body, "No diagnostics recorded") {
		t.Error("empty message shown with entries present")
	}
}

func TestDevTools_LogsHTMLEmpty(t *testing.T) {
	s := newDevServer(t, nil)

	body := get(s, "/__/logs").Body.String()
	if !strings.Contains(body, "No diagnostics recorded") {
		t.Error("expected empty message")
	}
}

func TestDevTools_LogsText(t *testing.T) {
	s := newDevServer(t, nil)

	if body := get(s, "/__/logs?text").Body.String(); body != "No logs\n" {
		t.Errorf("empty text = %q", body)
	}

	seedLogs(t, s)
	rec := get(s, "/__/logs?text")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	first := strings.Index(body, "DATA-0002")
	last := strings.Index(body, "FMT-0002")
	if first < 0 || last < 0 || first > last {
		t.Errorf("text listing should be oldest first:\n%s", body)
	}
	if !strings.Contains(body, "WARN FMT-0002 (formatter)") {
		t.Errorf("formatter entries should be labelled:\n%s", body)
	}

	s.devLog.Log(LogEntry{Code: "FMT-0002", Message: "unknown formatter nmber", Hint: "Did you mean `number`?"})
	if body := get(s, "/__/logs?text").Body.String(); !strings.Contains(body, "  hint: Did you mean `number`?\n") {
		t.Errorf("hint missing from text listing:\n%s", body)
	}
}

func TestDevTools_LogsJSON(t *testing.T) {
	s := newDevServer(t, nil)

	if body := strings.TrimSpace(get(s, "/__/logs?json").Body.String()); body != "[]" {
		t.Errorf("empty json = %q", body)
	}

	seedLogs(t, s)
	var entries []LogEntry
	if err := json.Unmarshal(get(s, "/__/logs?json&route=/b.html").Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Code != "FETCH-0001" {
		t.Errorf("route filter: %+v", entries)
	}
}

func TestDevTools_Clear(t *testing.T) {
	s := newDevServer(t, nil)
	seedLogs(t, s)

	rec := get(s, "/__/logs?route=/a.html&clear")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/__/logs?route=%2Fa.html" {
		t.Errorf("Location = %q", loc)
	}
	if n, _ := s.devLog.Count(""); n != 2 {
		t.Errorf("expected 2 entries left, got %d", n)
	}

	get(s, "/__/logs?clear")
	if n, _ := s.devLog.Count(""); n != 0 {
		t.Errorf("expected all entries cleared, got %d", n)
	}
}

func TestDevTools_PagesRecordDiagnostics(t *testing.T) {
	s := newDevServer(t, map[string]string{
		"bad.html":      titlePage,
		"bad.html.json": `{not json`,
		"fmt.html":      `<html><body><p data-bind="title" data-format="nope">x</p></body></html>`,
	})

	get(s, "/bad.html")
	entries, err := s.devLog.GetLogs("/bad.html", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected a diagnostic for the broken sidecar")
	}
	if entries[0].Class != "data" {
		t.Errorf("class = %q, want data", entries[0].Class)
	}

	get(s, "/fmt.html")
	entries, _ = s.devLog.GetLogs("", 10)
	var found bool
	for _, e := range entries {
		if e.Code == "FMT-0002" && e.Route == "" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unknown formatter entry: %+v", entries)
	}

	// Viewing the log page itself records nothing
	before, _ := s.devLog.Count("")
	get(s, "/__/logs")
	if after, _ := s.devLog.Count(""); after != before {
		t.Errorf("logs page recorded diagnostics: %d -> %d", before, after)
	}
}

func TestLogsURL(t *testing.T) {
	tests := []struct {
		route, flag, want string
	}{
		{"", "", "/__/logs"},
		{"", "text", "/__/logs?text"},
		{"/a.html", "", "/__/logs?route=%2Fa.html"},
		{"/a.html", "json", "/__/logs?route=%2Fa.html&json"},
	}
	for _, tt := range tests {
		if got := logsURL(tt.route, tt.flag); got != tt.want {
			t.Errorf("logsURL(%q, %q) = %q, want %q", tt.route, tt.flag, got, tt.want)
		}
	}
}
