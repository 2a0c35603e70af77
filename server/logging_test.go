package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRequestLoggerText(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "text")

	req := httptest.NewRequest("GET", "/about.html", nil)
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	log := buf.String()
	for _, want := range []string{"GET", "/about.html", " 200 ", " 2B ", "HIT"} {
		if !strings.Contains(log, want) {
			t.Errorf("log should contain %q: %s", want, log)
		}
	}
}

func TestRequestLoggerJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("Created"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json")

	req := httptest.NewRequest("POST", "/form.html", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}

	if entry.Method != "POST" {
		t.Errorf("expected method POST, got %s", entry.Method)
	}
	if entry.Path != "/form.html" {
		t.Errorf("expected path /form.html, got %s", entry.Path)
	}
	if entry.Status != 201 {
		t.Errorf("expected status 201, got %d", entry.Status)
	}
	if entry.Bytes != len("Created") {
		t.Errorf("expected %d bytes, got %d", len("Created"), entry.Bytes)
	}
	if entry.UserAgent != "test-agent" {
		t.Errorf("expected user-agent test-agent, got %s", entry.UserAgent)
	}
	if entry.Time == "" {
		t.Error("time should not be empty")
	}
	if entry.DurationMs < 0 {
		t.Error("duration_ms should be non-negative")
	}
}

func TestRequestLoggerXForwardedFor(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.195, 10.0.0.1")
	rec := httptest.NewRecorder()
	logger.ServeHTTP(rec, req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry.ClientIP != "203.0.113.195" {
		t.Errorf("expected first X-Forwarded-For hop, got %s", entry.ClientIP)
	}
}

func TestRequestLoggerCapturesStatus(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name:       "implicit 200",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("x")) },
			wantStatus: 200,
		},
		{
			name:       "no body",
			handler:    func(w http.ResponseWriter, r *http.Request) {},
			wantStatus: 200,
		},
		{
			name:       "not found",
			handler:    func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantStatus: 404,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newRequestLogger(tt.handler, &buf, "json")
			logger.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

			var entry RequestLogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse JSON log: %v", err)
			}
			if entry.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, entry.Status)
			}
		})
	}
}

func TestRequestLoggerDefaultFormat(t *testing.T) {
	var buf bytes.Buffer
	newRequestLogger(http.NotFoundHandler(), &buf, "").ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected a text line by default, got %q", buf.String())
	}
}

func TestRequestLoggerBindStats(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"index.html":       titlePage,
		"index.html.json":  `{"title": "Home"}`,
		"inline.html":      `<script id="plainbind-data" type="application/json">{"title": "Inline"}</script>` + titlePage,
		"empty.html":       titlePage,
		"broken.html":      titlePage,
		"broken.html.json": `{not json`,
		"style.css":        "body {}",
	}, nil)

	tests := []struct {
		path            string
		wantData        string
		wantDiagnostics int64
	}{
		{"/", "sidecar", 0},
		{"/inline.html", "inline", 0},
		{"/empty.html", "", 0},
		{"/broken.html", "sidecar", 1},
		{"/style.css", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var buf bytes.Buffer
			rl := newRequestLogger(s.mux, &buf, "json")
			rl.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			var entry RequestLogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse JSON log: %v", err)
			}
			if entry.Data != tt.wantData {
				t.Errorf("data = %q, want %q", entry.Data, tt.wantData)
			}
			if entry.Diagnostics != tt.wantDiagnostics {
				t.Errorf("diagnostics = %d, want %d", entry.Diagnostics, tt.wantDiagnostics)
			}
		})
	}
}

func TestRequestLogEntryText(t *testing.T) {
	e := RequestLogEntry{
		Time: "2024-01-02T03:04:05Z", Method: "GET", Path: "/", Status: 200,
		Bytes: 10, DurationMs: 3, Cache: "MISS", Data: "remote", Diagnostics: 2,
	}
	want := "2024-01-02T03:04:05Z GET / 200 10B 3ms MISS data=remote diagnostics=2"
	if got := e.text(); got != want {
		t.Errorf("text() = %q, want %q", got, want)
	}
}

func TestOpenOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	w, c, err := openOutput("stdout", &stdout, &stderr)
	if err != nil || w != &stdout || c != nil {
		t.Errorf("stdout: %v %v %v", w, c, err)
	}
	w, _, _ = openOutput("", &stdout, &stderr)
	if w != &stderr {
		t.Error("empty name should mean stderr")
	}
	w, _, _ = openOutput("none", &stdout, &stderr)
	if w != io.Discard {
		t.Error("none should discard")
	}

	path := filepath.Join(t.TempDir(), "requests.log")
	w, c, err = openOutput(path, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "line\n")
	c.Close()
	got, _ := os.ReadFile(path)
	if string(got) != "line\n" {
		t.Errorf("file output = %q", got)
	}

	if _, _, err := openOutput(filepath.Join(t.TempDir(), "missing", "x.log"), &stdout, &stderr); err == nil {
		t.Error("expected error for unwritable path")
	}
}
