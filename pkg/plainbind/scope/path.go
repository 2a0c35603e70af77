package scope

import (
	"regexp"
	"strings"

	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

// Path is a normalized path expression: "items[0].name" becomes
// ["items", "0", "name"].
type Path []string

var bracketIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// ParsePath normalizes expr into a Path. Empty and malformed expressions
// produce an empty Path rather than an error.
func ParsePath(expr string) Path {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	expr = bracketIndexRe.ReplaceAllString(expr, ".$1")

	var path Path
	for _, segment := range strings.Split(expr, ".") {
		if segment != "" {
			path = append(path, segment)
		}
	}
	return path
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Resolve evaluates expr against s. Missing or null values resolve to the
// empty string; Resolve never panics.
func Resolve(expr string, s *Scope) any {
	return ParsePath(expr).Resolve(s)
}

// Resolve evaluates the path against s.
func (p Path) Resolve(s *Scope) any {
	if len(p) == 0 || s == nil {
		return ""
	}

	current, ok := s.Lookup(p[0])
	if !ok {
		current = value.Undefined
		if s.root != nil {
			if v, found := s.root[p[0]]; found {
				current = v
			}
		}
	}

	for _, key := range p[1:] {
		if value.IsNil(current) {
			return ""
		}
		current = value.Index(current, key)
	}

	if value.IsNil(current) {
		return ""
	}
	return current
}
