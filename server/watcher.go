package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events an editor produces for one save.
const debounce = 100 * time.Millisecond

// changeKind says what a changed file means for the rendered site.
type changeKind int

const (
	changeIgnored changeKind = iota
	changeConfig             // needs a restart
	changeData               // sidecar JSON
	changePage               // HTML template
	changeAsset              // served as-is, never bound
)

func (k changeKind) String() string {
	switch k {
	case changeConfig:
		return "config"
	case changeData:
		return "data"
	case changePage:
		return "page"
	case changeAsset:
		return "asset"
	}
	return "ignored"
}

// Watcher follows the site directory in dev mode. Page and data changes
// flush the rendered page cache; every relevant change bumps the live
// reload sequence.
type Watcher struct {
	fsw        *fsnotify.Watcher
	server     *Server
	configPath string
	siteDir    string
	stdout     io.Writer
	stderr     io.Writer

	mu        sync.Mutex
	seen      map[string]time.Time // last handled change per path
	changeSeq uint64
}

// NewWatcher creates the dev mode watcher. configPath may be empty.
func NewWatcher(s *Server, configPath string, stdout, stderr io.Writer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:        fsw,
		server:     s,
		configPath: configPath,
		siteDir:    s.config.Site,
		stdout:     stdout,
		stderr:     stderr,
		seen:       map[string]time.Time{},
	}, nil
}

// Start watches the site tree and the config directory until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.configPath != "" {
		dir := filepath.Dir(w.configPath)
		if err := w.fsw.Add(dir); err != nil {
			w.logError("failed to watch config dir %s: %v", dir, err)
		} else {
			w.logInfo("watching config: %s", w.configPath)
		}
	}

	if err := w.addTree(w.siteDir); err != nil {
		return fmt.Errorf("watching site %s: %w", w.siteDir, err)
	}
	w.logInfo("watching site: %s", w.siteDir)

	go w.loop(ctx)
	return nil
}

// addTree watches root and every directory below it that is not hidden.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && path == root:
			return err
		case err != nil, !d.IsDir():
			return nil
		case path != root && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) && w.isNewDir(ev.Name) {
				continue
			}
			if w.relevant(ev.Name) && w.settle(ev.Name) {
				w.handleFileChange(ev.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// isNewDir reports whether path is a directory, watching it and its
// subdirectories when it is.
func (w *Watcher) isNewDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := w.addTree(path); err != nil {
		w.logError("failed to watch %s: %v", path, err)
	}
	return true
}

// settle reports whether a change to path is the first in its debounce
// window.
func (w *Watcher) settle(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if now.Sub(w.seen[path]) < debounce {
		return false
	}
	w.seen[path] = now
	return true
}

// classify maps a changed path to what it affects. Anything under a hidden
// directory of the site, and editor droppings like .swp files, are ignored.
// Hidden directories above the site root do not count.
func (w *Watcher) classify(path string) changeKind {
	if w.configPath != "" && filepath.Base(path) == filepath.Base(w.configPath) {
		return changeConfig
	}
	rel, err := filepath.Rel(w.siteDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = path
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if len(seg) > 1 && seg[0] == '.' && seg != ".." {
			return changeIgnored
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return changeData
	case ".html", ".htm":
		return changePage
	case ".css", ".js", ".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".woff2":
		return changeAsset
	}
	return changeIgnored
}

func (w *Watcher) relevant(path string) bool {
	return w.classify(path) != changeIgnored
}

// handleFileChange applies one settled change.
func (w *Watcher) handleFileChange(path string) {
	kind := w.classify(path)
	switch kind {
	case changeIgnored:
		return
	case changeConfig:
		w.logInfo("config changed: %s (restart server for config changes to take effect)", path)
	default:
		w.logInfo("%s changed: %s", kind, path)
	}
	if kind == changeData || kind == changePage {
		w.server.pages.Clear()
	}
	w.TriggerReload()
}

// GetChangeSeq returns the live reload sequence.
func (w *Watcher) GetChangeSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// TriggerReload tells polling browsers to reload.
func (w *Watcher) TriggerReload() {
	w.mu.Lock()
	w.changeSeq++
	w.mu.Unlock()
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
