package engine

import (
	"regexp"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/scope"
	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

// repeatRe parses "item in items".
var repeatRe = regexp.MustCompile(`^\s*([\w$]+)\s+in\s+(.+)\s*$`)

// ParseRepeat splits a data-repeat expression into the loop variable and
// the collection path.
func ParseRepeat(expr string) (name, path string, ok bool) {
	m := repeatRe.FindStringSubmatch(expr)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// repeat stops processing of the template whether or not it expanded.
func (e *Engine) repeat(n *html.Node, expr string, s *scope.Scope) outcome {
	attached := n.Parent != nil
	if e.expandRepeat(n, expr, s) && attached {
		return removed
	}
	return stop
}

// expandRepeat replaces the template n with one processed clone per item of
// the collection. It reports whether expr was a valid repeat expression. A
// template without a parent is left alone.
func (e *Engine) expandRepeat(n *html.Node, expr string, s *scope.Scope) bool {
	name, path, ok := ParseRepeat(expr)
	if !ok {
		return false
	}
	parent := n.Parent
	if parent == nil {
		return true
	}

	items := value.Items(scope.Resolve(path, s))
	clones := make([]*html.Node, 0, len(items))
	for i, item := range items {
		clone := dom.Clone(n)
		dom.RemoveAttr(clone, AttrRepeat)
		if e.Process(clone, s.Fork(name, item, i)) {
			continue
		}
		clones = append(clones, clone)
	}

	for _, clone := range clones {
		parent.InsertBefore(clone, n)
	}
	parent.RemoveChild(n)
	return true
}
