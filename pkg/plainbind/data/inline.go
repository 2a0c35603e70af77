package data

import (
	"context"

	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/errors"
)

const jsonType = "application/json"

// InlineSource reads the data embedded in the document itself.
type InlineSource struct {
	// ID of the script element; DefaultScriptID when empty.
	ID string
}

// Load parses the text of the data script. Pages without a script of that
// id, or whose script is not typed exactly application/json, report
// ErrNoData.
func (s InlineSource) Load(_ context.Context, doc *html.Node) (map[string]any, error) {
	id := s.ID
	if id == "" {
		id = DefaultScriptID
	}
	script := dom.FindByID(doc, id)
	if script == nil {
		return nil, ErrNoData
	}
	if typ, _ := dom.Attr(script, "type"); typ != jsonType {
		return nil, ErrNoData
	}

	obj, err := Decode([]byte(dom.Text(script)))
	if err != nil {
		return nil, errors.New("DATA-0001", map[string]any{"Err": err.Error(), "ID": id})
	}
	return obj, nil
}
