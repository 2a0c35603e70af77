package format

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

// Raw HTML in the source is escaped; the output is meant for data-bind-html.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// formatMarkdown renders the value as GitHub-flavoured markdown.
func formatMarkdown(v any, _ map[string]any, _ string) (any, error) {
	if value.IsNil(v) {
		return v, nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(value.String(v)), &buf); err != nil {
		return nil, err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
