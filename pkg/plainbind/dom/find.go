package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete HTML document.
func Parse(src string) (*html.Node, error) {
	return html.Parse(strings.NewReader(src))
}

// Render serializes n to a string.
func Render(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Walk visits n and its descendants in document order until fn returns
// false.
func Walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// FindByID returns the first element whose id attribute equals id.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if IsElement(n) {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// FindElement returns the first element of the given type.
func FindElement(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if IsElement(n) && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

// DocumentElement returns the <html> element of a parsed document.
func DocumentElement(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if IsElement(doc) {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

// Body returns the <body> element of a parsed document, or nil.
func Body(doc *html.Node) *html.Node {
	root := DocumentElement(doc)
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) && c.DataAtom == atom.Body {
			return c
		}
	}
	return nil
}
