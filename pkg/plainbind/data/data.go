// Package data acquires the JSON object a page is bound against.
//
// A page carries its data inline in a <script id="plainbind-data"
// type="application/json"> element, or next to it as a "<page>.json"
// sidecar that is read from disk or fetched over HTTP. Sources are tried
// in order by Chain; the first one that applies wins, and its failures
// degrade to an empty object at the engine.
package data

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/errors"
)

// DefaultScriptID is the id of the inline data element.
const DefaultScriptID = "plainbind-data"

// DefaultIndex is appended to directory paths when deriving a data URL.
const DefaultIndex = "index.html"

// ErrNoData is returned by a source that does not apply to the document,
// such as an inline source on a page without a data script.
var ErrNoData = stderrors.New("no data source")

// Loader produces the root data object for a document.
type Loader interface {
	Load(ctx context.Context, doc *html.Node) (map[string]any, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, doc *html.Node) (map[string]any, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, doc *html.Node) (map[string]any, error) {
	return f(ctx, doc)
}

// Static returns a loader that always yields obj.
func Static(obj map[string]any) Loader {
	return LoaderFunc(func(context.Context, *html.Node) (map[string]any, error) {
		return obj, nil
	})
}

// Chain tries each loader in turn and returns the result of the first one
// that does not report ErrNoData.
func Chain(loaders ...Loader) Loader {
	return LoaderFunc(func(ctx context.Context, doc *html.Node) (map[string]any, error) {
		for _, l := range loaders {
			if l == nil {
				continue
			}
			obj, err := l.Load(ctx, doc)
			if stderrors.Is(err, ErrNoData) {
				continue
			}
			return obj, err
		}
		return nil, ErrNoData
	})
}

// Decode parses a JSON document whose root must be an object. A JSON null
// decodes to an empty object.
func Decode(b []byte) (map[string]any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	switch root := v.(type) {
	case map[string]any:
		return root, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, errors.New("DATA-0003", map[string]any{"Got": jsonKind(root)})
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	}
	return fmt.Sprintf("%T", v)
}

// DataURL derives the sidecar data path for a page path: "/" becomes
// "/index.html.json" and "/about.html" becomes "/about.html.json".
func DataURL(pagePath, index string) string {
	if index == "" {
		index = DefaultIndex
	}
	if pagePath == "" {
		pagePath = "/"
	}
	if strings.HasSuffix(pagePath, "/") {
		pagePath += index
	}
	return pagePath + ".json"
}

// SidecarPath is DataURL for file system paths: a directory maps to its
// index document's sidecar.
func SidecarPath(pagePath, index string, isDir bool) string {
	if index == "" {
		index = DefaultIndex
	}
	if isDir {
		return path.Join(pagePath, index) + ".json"
	}
	return pagePath + ".json"
}
