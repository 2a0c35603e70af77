// Package format holds the named value formatters applied by data-format.
package format

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/sambeau/plainbind/pkg/plainbind/errors"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
)

// Func transforms a resolved value. vars is the variable mapping of the
// scope the value was resolved in and arg is the optional argument from the
// spec ("" when absent). Returning an error makes the registry fall back to
// the unformatted value.
type Func func(v any, vars map[string]any, arg string) (any, error)

// Registry maps formatter names to functions. It is safe for concurrent use,
// so one registry can serve many render passes.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Func
	logger     logger.Logger
	locale     language.Tag
	location   *time.Location
	builtins   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the sink for formatter failures.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithLocale sets the locale used by the number and percent formatters.
func WithLocale(tag language.Tag) Option {
	return func(r *Registry) { r.locale = tag }
}

// WithLocation sets the time zone whose calendar fields the date
// formatters print.
func WithLocation(loc *time.Location) Option {
	return func(r *Registry) { r.location = loc }
}

// WithoutBuiltins creates an empty registry.
func WithoutBuiltins() Option {
	return func(r *Registry) { r.builtins = false }
}

// NewRegistry creates a registry with the built-in formatters installed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		formatters: make(map[string]Func),
		logger:     logger.DefaultLogger,
		locale:     language.AmericanEnglish,
		location:   time.Local,
		builtins:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.builtins {
		registerBuiltins(r)
	}
	return r
}

// Register binds name to fn, replacing any previous formatter of that name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("ARG-0001", nil)
	}
	if fn == nil {
		return errors.New("ARG-0002", map[string]any{"Name": name})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = fn
	return nil
}

// MustRegister is like Register but panics on invalid arguments.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the formatter registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.formatters[name]
	return fn, ok
}

// Names returns the registered formatter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLogger replaces the failure sink.
func (r *Registry) SetLogger(l logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

func (r *Registry) log(err *errors.BindError) {
	r.mu.RLock()
	l := r.logger
	r.mu.RUnlock()
	if l != nil {
		l.LogLine("[plainbind]", err)
	}
}

// Apply runs the formatter selected by spec over v. An empty spec or an
// unknown name returns v unchanged, as does a formatter that fails.
func (r *Registry) Apply(spec string, v any, vars map[string]any) any {
	parsed, ok := ParseSpec(spec)
	if !ok {
		return v
	}
	fn, found := r.Lookup(parsed.Name)
	if !found {
		r.log(errors.NewUnknownFormatter(parsed.Name, r.Names()))
		return v
	}
	return r.call(parsed, fn, v, vars)
}

func (r *Registry) call(spec Spec, fn Func, v any, vars map[string]any) (out any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log(errors.New("FMT-0001", map[string]any{"Name": spec.Name, "Err": fmt.Sprint(rec)}))
			out = v
		}
	}()

	result, err := fn(v, vars, spec.Arg)
	if err != nil {
		r.log(errors.New("FMT-0001", map[string]any{"Name": spec.Name, "Err": err.Error()}))
		return v
	}
	return result
}
