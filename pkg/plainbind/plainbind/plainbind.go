// Package plainbind provides a public API for binding JSON data into HTML
// pages marked up with PlainBind data-* directives.
//
//	b := plainbind.New()
//	b.RegisterFormatter("shout", func(v any, _ map[string]any, _ string) (any, error) {
//		return strings.ToUpper(fmt.Sprint(v)) + "!", nil
//	})
//	out, err := b.RenderString(ctx, page, map[string]any{"title": "hi"})
package plainbind

import (
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/engine"
	"github.com/sambeau/plainbind/pkg/plainbind/format"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
)

// Version of the binding engine.
const Version = engine.Version

type (
	// Context describes a completed binding pass.
	Context = engine.Context
	// Formatter is the signature of a value formatter.
	Formatter = format.Func
	// Loader produces the root data object of a page.
	Loader = data.Loader
)

// Binder renders pages. It is safe for concurrent use: every render gets its
// own engine, and all of them share the binder's formatter registry.
type Binder struct {
	registry *format.Registry
	logger   logger.Logger
	scriptID string

	regOpts []format.Option
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the sink for recovered data, formatter and render errors.
func WithLogger(l Logger) Option {
	return func(b *Binder) { b.logger = l }
}

// WithLocale sets the locale of the number and percent formatters.
func WithLocale(tag language.Tag) Option {
	return func(b *Binder) { b.regOpts = append(b.regOpts, format.WithLocale(tag)) }
}

// WithLocation sets the time zone of the date formatters.
func WithLocation(loc *time.Location) Option {
	return func(b *Binder) { b.regOpts = append(b.regOpts, format.WithLocation(loc)) }
}

// WithScriptID changes the id of the inline data script.
func WithScriptID(id string) Option {
	return func(b *Binder) { b.scriptID = id }
}

// New creates a Binder with the built-in formatters.
func New(opts ...Option) *Binder {
	b := &Binder{
		logger:   logger.DefaultLogger,
		scriptID: data.DefaultScriptID,
	}
	for _, opt := range opts {
		opt(b)
	}
	regOpts := append([]format.Option{format.WithLogger(b.logger)}, b.regOpts...)
	b.registry = format.NewRegistry(regOpts...)
	return b
}

// RegisterFormatter adds or replaces a formatter. It returns an error
// matching errors.ErrInvalidArgument for an empty name or a nil function.
func (b *Binder) RegisterFormatter(name string, fn Formatter) error {
	return b.registry.Register(name, fn)
}

// Registry returns the binder's formatter registry.
func (b *Binder) Registry() *format.Registry {
	return b.registry
}

// NewEngine returns a fresh engine sharing the binder's registry.
func (b *Binder) NewEngine() *engine.Engine {
	return engine.New(b.registry, engine.WithLogger(b.logger))
}

// Loader returns the data loader used for a page: the inline data script
// when the page has one, then src.
func (b *Binder) Loader(src Loader) Loader {
	return data.Chain(data.InlineSource{ID: b.scriptID}, src)
}

// Bind runs the binding pass over a parsed document.
func (b *Binder) Bind(ctx context.Context, doc *html.Node, src Loader) Context {
	return b.NewEngine().Init(ctx, doc, b.Loader(src))
}

// Render parses an HTML document from r, binds it and writes the result to
// w. Only parse and write failures are returned; data and formatter problems
// are logged.
func (b *Binder) Render(ctx context.Context, r io.Reader, w io.Writer, src Loader) (Context, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Context{}, err
	}
	c := b.Bind(ctx, doc, src)
	if err := html.Render(w, doc); err != nil {
		return c, err
	}
	return c, nil
}

// RenderString binds page against obj. An inline data script in the page
// takes precedence over obj.
func (b *Binder) RenderString(ctx context.Context, page string, obj map[string]any) (string, error) {
	var src Loader
	if obj != nil {
		src = data.Static(obj)
	}
	var sb strings.Builder
	if _, err := b.Render(ctx, strings.NewReader(page), &sb, src); err != nil {
		return "", err
	}
	return sb.String(), nil
}
