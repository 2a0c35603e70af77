// Package scope resolves dotted path expressions against a chain of
// variable scopes.
package scope

import "maps"

// IndexVar is the loop variable holding the 0-based position of the
// current item inside a repeated block.
const IndexVar = "$index"

// Scope is one link in the variable chain. The root scope holds the data
// object; every repeated item gets a child scope whose vars shadow the
// parent's.
type Scope struct {
	vars   map[string]any
	parent *Scope
	root   map[string]any
}

// New returns the root scope for data.
func New(data map[string]any) *Scope {
	if data == nil {
		data = map[string]any{}
	}
	return &Scope{vars: data, root: data}
}

// Fork returns a child scope whose vars are a shallow copy of s's vars
// plus name bound to item and IndexVar bound to index.
func (s *Scope) Fork(name string, item any, index int) *Scope {
	vars := make(map[string]any, len(s.vars)+2)
	maps.Copy(vars, s.vars)
	vars[name] = item
	vars[IndexVar] = index
	return &Scope{vars: vars, parent: s, root: s.root}
}

// Vars returns the variables visible in this scope's own mapping. Callers
// must not modify the returned map.
func (s *Scope) Vars() map[string]any {
	return s.vars
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root returns the data object shared by every scope in the chain.
func (s *Scope) Root() map[string]any {
	return s.root
}

// Depth returns the number of scopes between s and the root.
func (s *Scope) Depth() int {
	depth := 0
	for cursor := s.parent; cursor != nil; cursor = cursor.parent {
		depth++
	}
	return depth
}

// Lookup walks the chain from innermost to outermost and returns the value
// of the first scope that owns name.
func (s *Scope) Lookup(name string) (any, bool) {
	for cursor := s; cursor != nil; cursor = cursor.parent {
		if v, ok := cursor.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}
