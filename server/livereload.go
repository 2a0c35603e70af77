package server

import (
	"encoding/json"
	"net/http"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
)

const (
	liveReloadPath     = "/__livereload"
	liveReloadScriptID = "plainbind-livereload"
)

// liveReloadScript reloads the page once the watcher's sequence moves past
// the value it saw first. Fetch failures are retried, which covers server
// restarts.
const liveReloadScript = `
(() => {
  let first = null;
  const poll = () => fetch("` + liveReloadPath + `", {cache: "no-store"})
    .then((r) => r.json())
    .then(({seq}) => {
      if (first === null) first = seq;
      else if (seq !== first) return location.reload();
      setTimeout(poll, 1000);
    })
    .catch(() => setTimeout(poll, 1000));
  addEventListener("load", poll);
})();
`

// liveReloadHandler reports the watcher sequence as {"seq": N}; 0 when no
// watcher is running.
type liveReloadHandler struct {
	server *Server
}

func newLiveReloadHandler(s *Server) *liveReloadHandler {
	return &liveReloadHandler{server: s}
}

func (h *liveReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seq uint64 `json:"seq"`
	}
	if h.server.watcher != nil {
		body.Seq = h.server.watcher.GetChangeSeq()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	b, _ := json.Marshal(body)
	w.Write(b)
}

// injectLiveReload appends the polling script to <body>, or to the
// document element of a page without one. Pages that already carry it are
// left alone.
func injectLiveReload(doc *html.Node) {
	if dom.FindByID(doc, liveReloadScriptID) != nil {
		return
	}
	parent := dom.Body(doc)
	if parent == nil {
		parent = dom.DocumentElement(doc)
	}
	if parent == nil {
		return
	}
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "id", Val: liveReloadScriptID}},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: liveReloadScript})
	parent.AppendChild(script)
}
