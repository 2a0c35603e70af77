package data

import (
	"context"
	"os"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/errors"
)

// FileSource reads a JSON file from disk.
type FileSource struct {
	Path string
}

// Load reads and decodes the file. A missing file is an error like any
// other, so the page renders against an empty object.
func (s FileSource) Load(ctx context.Context, _ *html.Node) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New("DATA-0002", map[string]any{"Path": s.Path, "Err": err.Error()})
	}
	obj, err := Decode(b)
	if err != nil {
		return nil, errors.New("DATA-0002", map[string]any{"Path": s.Path, "Err": err.Error()})
	}
	return obj, nil
}
