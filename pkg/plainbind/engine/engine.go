// Package engine performs the single binding pass over an HTML tree.
//
// An Engine walks the children of <body>, evaluates each element's data-*
// directives against a chain of scopes, and mutates the tree in place. It
// runs once: Init loads the data, processes the document and then fires the
// ready callbacks. Later calls return the stored context.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/errors"
	"github.com/sambeau/plainbind/pkg/plainbind/format"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
	"github.com/sambeau/plainbind/pkg/plainbind/scope"
)

// Version of the binding engine, reported in Context.
const Version = "0.1.0"

// Context describes a completed pass.
type Context struct {
	Data    map[string]any
	Root    *html.Node
	Version string
}

// Engine holds the state of one binding pass.
type Engine struct {
	registry   *format.Registry
	logger     logger.Logger
	directives []directive

	mu          sync.Mutex
	initialized bool
	last        Context
	queue       []func(Context)
	subscribers []chan Context
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the sink for recovered data and render errors.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine that formats values with registry. A nil registry
// gets the built-in formatters.
func New(registry *format.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		logger:     logger.DefaultLogger,
		directives: defaultDirectives(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = format.NewRegistry(format.WithLogger(e.logger))
	}
	return e
}

// Registry returns the formatter registry used by the engine.
func (e *Engine) Registry() *format.Registry {
	return e.registry
}

// Init loads the data for doc and runs the binding pass. Load failures are
// logged and the pass runs against an empty object. Init runs at most once;
// later calls return the context of the first run.
func (e *Engine) Init(ctx context.Context, doc *html.Node, loader data.Loader) Context {
	e.mu.Lock()
	if e.initialized {
		last := e.last
		e.mu.Unlock()
		return last
	}
	e.mu.Unlock()

	obj := e.load(ctx, doc, loader)
	root := passRoot(doc)
	s := scope.New(obj)
	if root != nil {
		for _, child := range dom.Children(root) {
			e.Process(child, s)
		}
	}

	result := Context{Data: s.Root(), Root: root, Version: Version}
	e.emitReady(result)
	return result
}

func (e *Engine) load(ctx context.Context, doc *html.Node, loader data.Loader) map[string]any {
	if loader == nil {
		return map[string]any{}
	}
	obj, err := loader.Load(ctx, doc)
	if err != nil && !stderrors.Is(err, data.ErrNoData) {
		e.logError(err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj
}

// passRoot returns the node whose children the pass visits: <body> when
// there is one, else the document element, else doc itself.
func passRoot(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if body := dom.Body(doc); body != nil {
		return body
	}
	if root := dom.DocumentElement(doc); root != nil {
		return root
	}
	return doc
}

// Initialized reports whether the pass has completed.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Context returns the context of the completed pass.
func (e *Engine) Context() (Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.initialized
}

// Ready registers cb to run once after the pass. If the pass has already
// completed, cb runs immediately with the stored context.
func (e *Engine) Ready(cb func(Context)) {
	if cb == nil {
		return
	}
	e.mu.Lock()
	if !e.initialized {
		e.queue = append(e.queue, cb)
		e.mu.Unlock()
		return
	}
	last := e.last
	e.mu.Unlock()
	e.runCallback(cb, last)
}

// Subscribe returns a channel that receives the context once the pass has
// completed.
func (e *Engine) Subscribe() <-chan Context {
	ch := make(chan Context, 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		ch <- e.last
		close(ch)
		return ch
	}
	e.subscribers = append(e.subscribers, ch)
	return ch
}

func (e *Engine) emitReady(c Context) {
	e.mu.Lock()
	e.last = c
	e.initialized = true
	queue := e.queue
	subscribers := e.subscribers
	e.queue = nil
	e.subscribers = nil
	e.mu.Unlock()

	for _, cb := range queue {
		e.runCallback(cb, c)
	}
	for _, ch := range subscribers {
		ch <- c
		close(ch)
	}
}

func (e *Engine) runCallback(cb func(Context), c Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logError(errors.New("RENDER-0001", map[string]any{"Err": fmt.Sprint(r)}))
		}
	}()
	cb(c)
}

func (e *Engine) logError(err error) {
	if e.logger != nil {
		e.logger.LogLine("[plainbind]", err)
	}
}
