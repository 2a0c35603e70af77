// Package server serves a directory of PlainBind pages over HTTP. Every
// .html page is bound on the server before it is sent, with data from its
// inline script, a sidecar <page>.json file, or a remote data service.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sambeau/plainbind/config"
	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
	"github.com/sambeau/plainbind/pkg/plainbind/plainbind"
)

// Server represents a PlainBind web server instance.
type Server struct {
	config     *config.Config
	configPath string
	stdout     io.Writer
	stderr     io.Writer
	mux        *http.ServeMux
	server     *http.Server
	binder     *plainbind.Binder
	engineLog  logger.Logger
	client     *http.Client
	dataCache  *gocache.Cache // nil when remote caching is off
	pages      *pageCache
	watcher    *Watcher
	devLog     *DevLog
	closers    []io.Closer
}

// New creates a new PlainBind server with the given configuration.
func New(cfg *config.Config, configPath string, stdout, stderr io.Writer) (*Server, error) {
	s := &Server{
		config:     cfg,
		configPath: configPath,
		stdout:     stdout,
		stderr:     stderr,
		mux:        http.NewServeMux(),
		client:     &http.Client{},
		pages:      newPageCache(cfg.Server.Dev, cfg.Render.CacheTTL),
	}

	engineOut, closer, err := openOutput(cfg.Logging.Engine, stdout, stderr)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	s.engineLog = logger.WriterLogger(engineOut)

	if cfg.Server.Dev {
		if err := s.openDevLog(); err != nil {
			s.logWarn("dev log disabled: %v", err)
		}
	}

	registryLog := s.engineLog
	if s.devLog != nil {
		registryLog = s.devLog.Logger("", s.engineLog)
	}
	s.binder = plainbind.New(
		plainbind.WithLogger(registryLog),
		plainbind.WithLocale(cfg.Locale()),
		plainbind.WithLocation(cfg.Location()),
		plainbind.WithScriptID(cfg.Data.ScriptID),
	)

	if cfg.Data.Remote != "" && cfg.Data.CacheTTL > 0 {
		s.dataCache = data.NewCache(cfg.Data.CacheTTL)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) openDevLog() error {
	maxSize, err := config.ParseSize(s.config.Dev.LogMaxSize)
	if err != nil {
		return err
	}
	dl, err := NewDevLog(s.config.BaseDir, DevLogConfig{
		Path:        s.config.Dev.LogDatabase,
		MaxSize:     maxSize,
		TruncatePct: s.config.Dev.LogTruncatePct,
	})
	if err != nil {
		return err
	}
	s.devLog = dl
	s.closers = append(s.closers, dl)
	s.logInfo("dev log: %s", dl.Path())
	return nil
}

// setupRoutes configures the HTTP mux.
func (s *Server) setupRoutes() {
	if s.config.Server.Dev {
		s.mux.Handle(liveReloadPath, newLiveReloadHandler(s))
		s.mux.Handle("/__/", newDevToolsHandler(s))
	}
	s.mux.Handle("/", newSiteHandler(s, s.config.Site))
}

// RegisterFormatter adds a formatter available to every page.
func (s *Server) RegisterFormatter(name string, fn plainbind.Formatter) error {
	return s.binder.RegisterFormatter(name, fn)
}

// Handler returns the full middleware chain: compression and request
// logging around the routes.
func (s *Server) Handler() (http.Handler, error) {
	var handler http.Handler = s.mux

	handler, err := newCompressionHandler(handler, s.config.Compression)
	if err != nil {
		return nil, fmt.Errorf("configuring compression: %w", err)
	}

	if !s.config.Logging.Quiet && s.config.Logging.Level != "error" {
		out, closer, err := openOutput(s.config.Logging.Output, s.stdout, s.stderr)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
		handler = newRequestLogger(handler, out, s.config.Logging.Format)
	}

	return handler, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	addr := s.listenAddr()

	if s.config.Server.Dev {
		watcher, err := NewWatcher(s, s.configPath, s.stdout, s.stderr)
		if err != nil {
			s.logError("failed to create watcher: %v", err)
		} else {
			s.watcher = watcher
			if err := s.watcher.Start(ctx); err != nil {
				s.logError("failed to start watcher: %v", err)
			}
			defer s.watcher.Close()
		}
	}

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if s.config.Server.Dev {
			fmt.Fprintf(s.stdout, "Starting PlainBind in development mode on http://%s\n", addr)
		} else {
			fmt.Fprintf(s.stdout, "Starting PlainBind on http://%s\n", addr)
		}
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Close releases log files and the dev log database.
func (s *Server) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	host := s.config.Server.Host
	if s.config.Server.Dev && host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, s.config.Server.Port)
}

// requestLog returns the engine logger for one page render.
func (s *Server) requestLog(route string) logger.Logger {
	if s.devLog != nil {
		return s.devLog.Logger(route, s.engineLog)
	}
	return s.engineLog
}

func (s *Server) logInfo(format string, args ...any) {
	fmt.Fprintf(s.stdout, "[INFO] "+format+"\n", args...)
}

func (s *Server) logWarn(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[WARN] "+format+"\n", args...)
}

func (s *Server) logError(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[ERROR] "+format+"\n", args...)
}
