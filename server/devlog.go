package server

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sambeau/plainbind/pkg/plainbind/errors"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

const (
	defaultDevLogName   = "dev_logs.db"
	defaultDevLogSize   = 10 << 20
	defaultTruncatePct  = 25
	defaultDevLogLimit  = 1000
	diagnosticsTableDDL = `
CREATE TABLE IF NOT EXISTS diagnostics (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	route     TEXT NOT NULL DEFAULT '',
	level     TEXT NOT NULL DEFAULT 'warn',
	class     TEXT NOT NULL DEFAULT '',
	code      TEXT NOT NULL DEFAULT '',
	message   TEXT NOT NULL,
	hint      TEXT NOT NULL DEFAULT '',
	logged_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_route ON diagnostics(route);`
)

// DevLog stores binding diagnostics in a SQLite database so they can be
// browsed at /__/logs while developing a site.
type DevLog struct {
	mu          sync.RWMutex
	db          *sql.DB
	path        string
	maxSize     int64
	truncatePct int
	seq         uint64 // bumped on every write and clear
}

// LogEntry is one recorded diagnostic. Route is empty for diagnostics that
// are not tied to a page, such as formatter failures.
type LogEntry struct {
	ID        int64     `json:"id"`
	Route     string    `json:"route"`
	Level     string    `json:"level"`
	Class     string    `json:"class,omitempty"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DevLogConfig holds configuration for the dev log.
type DevLogConfig struct {
	Path        string // Database file, relative to the base directory
	MaxSize     int64  // File size that triggers truncation
	TruncatePct int    // Share of the oldest entries dropped on truncation
}

// DefaultDevLogConfig returns the default configuration.
func DefaultDevLogConfig() DevLogConfig {
	return DevLogConfig{MaxSize: defaultDevLogSize, TruncatePct: defaultTruncatePct}
}

// NewDevLog opens or creates the log database. An empty cfg.Path means
// dev_logs.db in baseDir.
func NewDevLog(baseDir string, cfg DevLogConfig) (*DevLog, error) {
	path := cfg.Path
	switch {
	case path == "":
		path = filepath.Join(baseDir, defaultDevLogName)
	case !filepath.IsAbs(path):
		path = filepath.Join(baseDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(diagnosticsTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dev log schema: %w", err)
	}

	dl := &DevLog{
		db:          db,
		path:        path,
		maxSize:     cfg.MaxSize,
		truncatePct: cfg.TruncatePct,
	}
	if dl.maxSize <= 0 {
		dl.maxSize = defaultDevLogSize
	}
	if dl.truncatePct <= 0 || dl.truncatePct > 100 {
		dl.truncatePct = defaultTruncatePct
	}
	return dl, nil
}

// openSQLite opens a single-connection WAL database. Writes are serialized
// by DevLog.mu, so one connection is enough.
func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening dev log database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to dev log database: %w", err)
	}
	return db, nil
}

// routeFilter returns the WHERE clause selecting route, or every entry
// when route is empty.
func routeFilter(route string) (string, []any) {
	if route == "" {
		return "", nil
	}
	return " WHERE route = ?", []any{route}
}

// Log records one diagnostic, trimming the oldest entries first when the
// database has grown past its size limit.
func (dl *DevLog) Log(entry LogEntry) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if err := dl.trimLocked(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] dev log truncation failed: %v\n", err)
	}
	if entry.Level == "" {
		entry.Level = "warn"
	}

	_, err := dl.db.Exec(
		`INSERT INTO diagnostics (route, level, class, code, message, hint) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Route, entry.Level, entry.Class, entry.Code, entry.Message, entry.Hint,
	)
	if err != nil {
		return fmt.Errorf("writing diagnostic: %w", err)
	}
	dl.seq++
	return nil
}

// GetSeq returns a counter that changes whenever the log does, for the
// viewer's polling.
func (dl *DevLog) GetSeq() uint64 {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.seq
}

// GetLogs returns up to limit entries for route (every route when empty),
// newest first.
func (dl *DevLog) GetLogs(route string, limit int) ([]LogEntry, error) {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	if limit <= 0 {
		limit = defaultDevLogLimit
	}
	where, args := routeFilter(route)
	rows, err := dl.db.Query(
		`SELECT id, route, level, class, code, message, hint, logged_at FROM diagnostics`+where+
			` ORDER BY id DESC LIMIT ?`,
		append(args, limit)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var loggedAt string
		if err := rows.Scan(&e.ID, &e.Route, &e.Level, &e.Class, &e.Code, &e.Message, &e.Hint, &loggedAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		// The driver's timestamp layout varies with how the row was written
		if t, err := dateparse.ParseIn(loggedAt, time.UTC); err == nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearLogs deletes the entries for route, or every entry when route is
// empty.
func (dl *DevLog) ClearLogs(route string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	where, args := routeFilter(route)
	if _, err := dl.db.Exec(`DELETE FROM diagnostics`+where, args...); err != nil {
		return fmt.Errorf("clearing logs: %w", err)
	}
	dl.seq++
	return nil
}

// Count returns the number of entries for route, or of every entry when
// route is empty.
func (dl *DevLog) Count(route string) (int, error) {
	dl.mu.RLock()
	defer dl.mu.RUnlock()

	where, args := routeFilter(route)
	var n int
	err := dl.db.QueryRow(`SELECT COUNT(*) FROM diagnostics`+where, args...).Scan(&n)
	return n, err
}

// trimLocked drops the oldest truncatePct of entries, at least one, once
// the database file has reached maxSize. dl.mu must be held.
func (dl *DevLog) trimLocked() error {
	info, err := os.Stat(dl.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < dl.maxSize {
		return nil
	}

	var total int
	if err := dl.db.QueryRow(`SELECT COUNT(*) FROM diagnostics`).Scan(&total); err != nil || total == 0 {
		return err
	}
	drop := max(total*dl.truncatePct/100, 1)
	_, err = dl.db.Exec(
		`DELETE FROM diagnostics WHERE id IN (SELECT id FROM diagnostics ORDER BY id LIMIT ?)`,
		drop,
	)
	return err
}

// Close closes the database.
func (dl *DevLog) Close() error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.db.Close()
}

// Path returns the database file path.
func (dl *DevLog) Path() string {
	return dl.path
}

// Logger returns an engine logger that records every diagnostic line
// under route before passing it on to next, which may be nil.
func (dl *DevLog) Logger(route string, next logger.Logger) logger.Logger {
	return &devLogSink{log: dl, route: route, next: next}
}

type devLogSink struct {
	log   *DevLog
	route string
	next  logger.Logger
}

func (s *devLogSink) Log(values ...any) {
	if s.next != nil {
		s.next.Log(values...)
	}
}

func (s *devLogSink) LogLine(values ...any) {
	if s.next != nil {
		s.next.LogLine(values...)
	}
	if err := s.log.Log(diagnosticEntry(s.route, values)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] dev log write failed: %v\n", err)
	}
}

// diagnosticEntry turns a logged line into an entry. A BindError supplies
// the class, code and hints; the "[plainbind]" prefix is dropped.
func diagnosticEntry(route string, values []any) LogEntry {
	entry := LogEntry{Route: route, Level: "warn"}
	var parts []string
	for _, v := range values {
		if v == "[plainbind]" {
			continue
		}
		var be *errors.BindError
		if err, ok := v.(error); ok && stderrors.As(err, &be) {
			entry.Class = string(be.Class)
			entry.Code = be.Code
			entry.Hint = strings.Join(be.Hints, "; ")
			msg := be.Message
			if be.File != "" {
				msg = be.File + ": " + msg
			}
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}
	entry.Message = strings.Join(parts, " ")
	return entry
}
