// Package dom wraps the golang.org/x/net/html node tree with the element
// operations the binding engine needs: attribute access, class lists, text
// and markup replacement, and deep cloning.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of the attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute key is present, even if empty.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets key to val, replacing an existing value in place so the
// attribute order of the source is kept.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes every attribute named key.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// AttrsWithPrefix returns a snapshot of the attributes whose name starts
// with prefix.
func AttrsWithPrefix(n *html.Node, prefix string) []html.Attribute {
	var out []html.Attribute
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.HasPrefix(a.Key, prefix) {
			out = append(out, a)
		}
	}
	return out
}

// Classes returns the node's class list.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether name is in the node's class list.
func HasClass(n *html.Node, name string) bool {
	for _, c := range Classes(n) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class list unless it is already there.
func AddClass(n *html.Node, name string) {
	if HasClass(n, name) {
		return
	}
	SetAttr(n, "class", strings.Join(append(Classes(n), name), " "))
}

// RemoveClass drops every occurrence of name from the class list. The class
// attribute is kept, possibly empty, once it exists.
func RemoveClass(n *html.Node, name string) {
	if !HasAttr(n, "class") {
		return
	}
	classes := Classes(n)
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// SetHidden sets or clears the boolean hidden attribute.
func SetHidden(n *html.Node, hidden bool) {
	if hidden {
		SetAttr(n, "hidden", "")
		return
	}
	RemoveAttr(n, "hidden")
}

// Children returns a snapshot of n's child nodes.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// RemoveChildren detaches all of n's children.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// SetText replaces n's content with a single text node. An empty string
// leaves the node without children.
func SetText(n *html.Node, text string) {
	RemoveChildren(n)
	if text == "" {
		return
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// SetInnerHTML parses markup as a fragment in the context of n and makes
// the result n's children. The markup is not sanitized.
func SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext(n))
	if err != nil {
		return err
	}
	RemoveChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// fragmentContext returns a parse context with the same element type as n.
// Detached nodes still need a DataAtom for the fragment parser.
func fragmentContext(n *html.Node) *html.Node {
	if n.DataAtom != 0 || n.Data == "" {
		return n
	}
	return &html.Node{
		Type:      html.ElementNode,
		Data:      n.Data,
		DataAtom:  atom.Lookup([]byte(n.Data)),
		Namespace: n.Namespace,
	}
}

// InnerHTML renders n's children.
func InnerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// Clone returns a deep copy of n that is not attached to any tree.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Remove detaches n from its parent, if any.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
