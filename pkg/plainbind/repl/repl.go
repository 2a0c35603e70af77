// Package repl is an interactive explorer for PlainBind path expressions.
// Each line is resolved against a JSON data file the same way the engine
// resolves directive expressions, optionally piped through a formatter.
package repl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sambeau/plainbind/pkg/plainbind/dom"
	"github.com/sambeau/plainbind/pkg/plainbind/engine"
	"github.com/sambeau/plainbind/pkg/plainbind/format"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
	"github.com/sambeau/plainbind/pkg/plainbind/scope"
	"github.com/sambeau/plainbind/pkg/plainbind/value"
)

const PROMPT = ">> "
const PROMPT_RAW = ":> "

const LOGO = `
█▀█ █░░ ▄▀█ █ █▄░█ █▄▄ █ █▄░█ █▀▄
█▀▀ █▄▄ █▀█ █ █░▀█ █▄█ █ █░▀█ █▄▀`

// Session holds the state of one REPL: the scope chain being explored and
// the output mode. It is independent of the terminal so it can be driven
// from tests.
type Session struct {
	registry *format.Registry
	logger   logger.Logger
	scope    *scope.Scope
	raw      bool
}

// NewSession creates a session rooted at obj.
func NewSession(obj map[string]any, registry *format.Registry, l logger.Logger) *Session {
	if registry == nil {
		registry = format.NewRegistry(format.WithLogger(l))
	}
	return &Session{registry: registry, logger: l, scope: scope.New(obj)}
}

// Raw reports whether values are printed as bound text instead of JSON.
func (s *Session) Raw() bool {
	return s.raw
}

// Eval handles one line of input and reports whether the session should
// end.
func (s *Session) Eval(input string, out io.Writer) (quit bool) {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return false
	case trimmed == "exit" || trimmed == "quit":
		fmt.Fprintln(out, "Goodbye!")
		return true
	case strings.HasPrefix(trimmed, ":"):
		s.command(trimmed, out)
		return false
	}

	expr, spec, _ := strings.Cut(trimmed, "|")
	v := scope.Resolve(expr, s.scope)
	if spec = strings.TrimSpace(spec); spec != "" {
		v = s.registry.Apply(spec, v, s.scope.Vars())
	}
	fmt.Fprintln(out, s.show(v))
	return false
}

func (s *Session) show(v any) string {
	if s.raw {
		if value.IsNil(v) {
			return ""
		}
		return value.String(v)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return value.String(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// command handles REPL meta-commands that start with ':'
func (s *Session) command(cmd string, out io.Writer) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "Enter a path such as user.name or items[0].title.")
		fmt.Fprintln(out, "Append | formatter[:arg] to format it, e.g. price | currency.")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?        Show this help")
		fmt.Fprintln(out, "  :keys [path]         List the keys of an object")
		fmt.Fprintln(out, "  :formats             List the registered formatters")
		fmt.Fprintln(out, "  :each VAR in PATH    Enter the scope of the first item of a list")
		fmt.Fprintln(out, "  :up                  Leave the innermost :each scope")
		fmt.Fprintln(out, "  :vars                Show the loop variables in scope")
		fmt.Fprintln(out, "  :bind HTML           Bind a markup snippet in the current scope")
		fmt.Fprintln(out, "  :raw                 Toggle raw output (text as it would be bound)")
		fmt.Fprintln(out, "  exit, quit           Exit the REPL")

	case ":keys":
		v := any(s.scope.Root())
		if arg != "" {
			v = scope.Resolve(arg, s.scope)
		}
		m, ok := v.(map[string]any)
		if !ok {
			fmt.Fprintln(out, "(not an object)")
			return
		}
		for _, k := range sortedKeys(m) {
			fmt.Fprintf(out, "  %s\n", k)
		}

	case ":formats":
		fmt.Fprintln(out, strings.Join(s.registry.Names(), " "))

	case ":each":
		s.each(arg, out)

	case ":up":
		if parent := s.scope.Parent(); parent != nil {
			s.scope = parent
			fmt.Fprintf(out, "(depth %d)\n", s.scope.Depth())
		} else {
			fmt.Fprintln(out, "(already at the root scope)")
		}

	case ":vars":
		s.printVars(out)

	case ":bind":
		rendered, err := s.bind(arg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(out, rendered)

	case ":raw":
		s.raw = !s.raw
		if s.raw {
			fmt.Fprintln(out, "Raw output mode ON (bound text)")
		} else {
			fmt.Fprintln(out, "Raw output mode OFF (JSON values)")
		}

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", name)
	}
}

// each forks the scope the way a data-repeat does for its first item.
func (s *Session) each(arg string, out io.Writer) {
	name, path, ok := engine.ParseRepeat(arg)
	if !ok {
		fmt.Fprintln(out, "Usage: :each VAR in PATH")
		return
	}
	items := value.Items(scope.Resolve(path, s.scope))
	if len(items) == 0 {
		fmt.Fprintf(out, "%s is empty or not a list\n", strings.TrimSpace(path))
		return
	}
	s.scope = s.scope.Fork(name, items[0], 0)
	fmt.Fprintf(out, "%s = %s (1 of %d, depth %d)\n", name, s.show(items[0]), len(items), s.scope.Depth())
}

func (s *Session) printVars(out io.Writer) {
	if s.scope.Parent() == nil {
		fmt.Fprintln(out, "(root scope)")
		return
	}
	vars := s.scope.Vars()
	root := s.scope.Root()
	var names []string
	for k := range vars {
		if _, inRoot := root[k]; !inRoot || k == scope.IndexVar {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(out, "  %s = %s\n", k, value.String(vars[k]))
	}
}

// bind processes a markup snippet in the current scope and returns the
// rendered result.
func (s *Session) bind(markup string) (string, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	if err := dom.SetInnerHTML(container, markup); err != nil {
		return "", err
	}
	e := engine.New(s.registry, engine.WithLogger(s.logger))
	for _, child := range dom.Children(container) {
		e.Process(child, s.scope)
	}
	return dom.InnerHTML(container)
}

// completions returns the root keys and formatter names starting with the
// last word of line.
func (s *Session) completions(line string) []string {
	if line == "" || strings.HasSuffix(line, " ") {
		return nil
	}
	words := strings.Fields(line)
	last := words[len(words)-1]
	head := line[:len(line)-len(last)]

	candidates := append(sortedKeys(s.scope.Root()), s.registry.Names()...)
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, last) {
			matches = append(matches, head+c)
		}
	}
	return matches
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Start starts the REPL with line editing, history, and tab completion
func Start(out io.Writer, version string, session *Session) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(session.completions)

	historyFile := filepath.Join(os.TempDir(), ".plainbind_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s\n", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	for {
		prompt := PROMPT
		if session.Raw() {
			prompt = PROMPT_RAW
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if session.Eval(input, out) {
			return
		}
	}
}
