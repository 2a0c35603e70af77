package engine

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/errors"
	"github.com/sambeau/plainbind/pkg/plainbind/scope"
	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

// bindValue resolves expr, applies the node's data-format and falls back to
// data-placeholder when the result is empty.
func (e *Engine) bindValue(n *html.Node, expr string, s *scope.Scope) any {
	v := scope.Resolve(expr, s)
	if spec, ok := dom.Attr(n, AttrFormat); ok {
		v = e.registry.Apply(spec, v, s.Vars())
	}
	if value.IsEmpty(v) {
		if placeholder, ok := dom.Attr(n, AttrPlaceholder); ok {
			return placeholder
		}
	}
	return v
}

// display converts a bound value to the text written into the tree.
func display(v any) string {
	if value.IsNil(v) {
		return ""
	}
	return value.String(v)
}

func (e *Engine) bindText(n *html.Node, expr string, s *scope.Scope) outcome {
	dom.SetText(n, display(e.bindValue(n, expr, s)))
	return stop
}

// bindHTML replaces the node's children with the bound markup. The markup
// is inserted as-is.
func (e *Engine) bindHTML(n *html.Node, expr string, s *scope.Scope) outcome {
	markup := display(e.bindValue(n, expr, s))
	if err := dom.SetInnerHTML(n, markup); err != nil {
		e.logError(errors.New("RENDER-0002", map[string]any{"Tag": n.Data, "Err": err.Error()}))
		dom.SetText(n, "")
	}
	return stop
}

// bindAttrs handles every data-bind-attr-<name> attribute on the node,
// setting <name> to the bound value or removing it when the value is empty.
func (e *Engine) bindAttrs(n *html.Node, _ string, s *scope.Scope) outcome {
	for _, a := range dom.AttrsWithPrefix(n, AttrBindPrefix) {
		target := strings.TrimPrefix(a.Key, AttrBindPrefix)
		if target == "" {
			e.logError(errors.New("RENDER-0003", map[string]any{"Attr": a.Key}))
			continue
		}
		v := e.bindValue(n, a.Val, s)
		if value.IsEmpty(v) {
			dom.RemoveAttr(n, target)
		} else {
			dom.SetAttr(n, target, value.String(v))
		}
	}
	return next
}
