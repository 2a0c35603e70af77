package engine

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/scope"
	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

// Directive attribute names.
const (
	AttrRepeat      = "data-repeat"
	AttrEmpty       = "data-empty"
	AttrShow        = "data-show"
	AttrHide        = "data-hide"
	AttrClassWhen   = "data-class-when"
	AttrLink        = "data-link"
	AttrBindHTML    = "data-bind-html"
	AttrBind        = "data-bind"
	AttrBindPrefix  = "data-bind-attr-"
	AttrFormat      = "data-format"
	AttrPlaceholder = "data-placeholder"
)

// outcome tells Process what to do after a directive has run.
type outcome int

const (
	next    outcome = iota // evaluate the remaining directives
	stop                   // leave the node and its children alone
	removed                // the node has left the tree
)

// A directive matches an element and applies one binding to it. expr is the
// value of the matched attribute.
type directive struct {
	name  string
	match func(n *html.Node) (expr string, ok bool)
	apply func(e *Engine, n *html.Node, expr string, s *scope.Scope) outcome
}

// defaultDirectives returns the directive table in evaluation order.
func defaultDirectives() []directive {
	return []directive{
		{AttrRepeat, attr(AttrRepeat), (*Engine).repeat},
		{AttrEmpty, attr(AttrEmpty), (*Engine).empty},
		{AttrShow, attr(AttrShow), (*Engine).show},
		{AttrHide, attr(AttrHide), (*Engine).hide},
		{AttrClassWhen, attr(AttrClassWhen), (*Engine).classWhen},
		{AttrLink, attr(AttrLink), (*Engine).link},
		{AttrBindHTML, attr(AttrBindHTML), (*Engine).bindHTML},
		{AttrBind, attr(AttrBind), (*Engine).bindText},
		{AttrBindPrefix + "*", attrPrefix(AttrBindPrefix), (*Engine).bindAttrs},
	}
}

// attr matches elements carrying a non-empty attribute named key.
func attr(key string) func(*html.Node) (string, bool) {
	return func(n *html.Node) (string, bool) {
		v, ok := dom.Attr(n, key)
		return v, ok && v != ""
	}
}

// attrPrefix matches elements with at least one attribute starting with
// prefix, whatever its value.
func attrPrefix(prefix string) func(*html.Node) (string, bool) {
	return func(n *html.Node) (string, bool) {
		for _, a := range n.Attr {
			if a.Namespace == "" && strings.HasPrefix(a.Key, prefix) {
				return "", true
			}
		}
		return "", false
	}
}

// Process binds n and, unless a directive stops it, its descendants. It
// reports whether n was removed from the tree. Non-element nodes are left
// alone.
func (e *Engine) Process(n *html.Node, s *scope.Scope) bool {
	if !dom.IsElement(n) {
		return false
	}
	for _, d := range e.directives {
		expr, ok := d.match(n)
		if !ok {
			continue
		}
		switch d.apply(e, n, expr, s) {
		case stop:
			return false
		case removed:
			return true
		}
	}

	for _, child := range dom.Children(n) {
		e.Process(child, s)
	}
	return false
}

// empty keeps the node only while the value is an empty array or a falsy
// non-array value.
func (e *Engine) empty(n *html.Node, expr string, s *scope.Scope) outcome {
	v := scope.Resolve(expr, s)
	var showing bool
	if value.IsArray(v) {
		showing = len(value.Items(v)) == 0
	} else {
		showing = !value.Truthy(v)
	}
	if showing {
		return next
	}
	dom.Remove(n)
	return removed
}

func (e *Engine) show(n *html.Node, expr string, s *scope.Scope) outcome {
	dom.SetHidden(n, !value.Truthy(scope.Resolve(expr, s)))
	return next
}

func (e *Engine) hide(n *html.Node, expr string, s *scope.Scope) outcome {
	dom.SetHidden(n, value.Truthy(scope.Resolve(expr, s)))
	return next
}

// classWhen toggles classes from a list of "expr:class" pairs. Pairs
// missing either part are skipped.
func (e *Engine) classWhen(n *html.Node, expr string, s *scope.Scope) outcome {
	for _, pair := range strings.Split(expr, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ":")
		path := strings.TrimSpace(parts[0])
		if path == "" || len(parts) < 2 {
			continue
		}
		class := strings.TrimSpace(parts[1])
		if class == "" {
			continue
		}
		if value.Truthy(scope.Resolve(path, s)) {
			dom.AddClass(n, class)
		} else {
			dom.RemoveClass(n, class)
		}
	}
	return next
}

func (e *Engine) link(n *html.Node, expr string, s *scope.Scope) outcome {
	v := scope.Resolve(expr, s)
	if value.IsEmpty(v) {
		dom.RemoveAttr(n, "href")
	} else {
		dom.SetAttr(n, "href", value.String(v))
	}
	return next
}
