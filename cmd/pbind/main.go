package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/sambeau/plainbind/pkg/plainbind/data"
	"github.com/sambeau/plainbind/pkg/plainbind/logger"
	"github.com/sambeau/plainbind/pkg/plainbind/plainbind"
	"github.com/sambeau/plainbind/pkg/plainbind/repl"
)

// Version is set at compile time via -ldflags
var Version = "dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by render and repl.
type options struct {
	dataPath string
	output   string
	diff     bool
	strict   bool
	locale   string
	timezone string
	scriptID string
	timeout  time.Duration
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "repl" {
		return replCommand(args[1:], stdout, stderr)
	}

	flags := flag.NewFlagSet("pbind", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options
	addCommonFlags(flags, &opts)
	flags.StringVar(&opts.dataPath, "d", "", "Data file or URL (default: inline data, then PAGE.json)")
	flags.StringVar(&opts.dataPath, "data", "", "Data file or URL")
	flags.StringVar(&opts.output, "o", "", "Write output to file instead of stdout")
	flags.BoolVar(&opts.diff, "diff", false, "Show a line diff of the page before and after binding")
	flags.BoolVar(&opts.strict, "strict", false, "Fail when binding reports any diagnostic")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Timeout for data URLs")
	showVersion := flags.Bool("version", false, "Show version information")
	showHelp := flags.Bool("help", false, "Show help message")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout)
			return nil
		}
		printHelp(stderr)
		return err
	}

	switch {
	case *showHelp:
		printHelp(stdout)
		return nil
	case *showVersion:
		fmt.Fprintf(stdout, "pbind version %s (engine %s)\n", Version, plainbind.Version)
		return nil
	case flags.NArg() != 1:
		printHelp(stderr)
		return fmt.Errorf("expected one page, got %d", flags.NArg())
	}

	return renderCommand(ctx, flags.Arg(0), stdin, opts, stdout, stderr)
}

func addCommonFlags(flags *flag.FlagSet, opts *options) {
	flags.StringVar(&opts.locale, "locale", "en-US", "Locale for number and date formatters")
	flags.StringVar(&opts.timezone, "tz", "Local", "Time zone for date formatters")
	flags.StringVar(&opts.scriptID, "script-id", data.DefaultScriptID, "id of the inline data script")
}

// binder builds a Binder from the shared flags. Diagnostics go to log.
func (o options) binder(log logger.Logger) (*plainbind.Binder, error) {
	tag, err := language.Parse(o.locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", o.locale, err)
	}
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", o.timezone, err)
	}
	return plainbind.New(
		plainbind.WithLogger(log),
		plainbind.WithLocale(tag),
		plainbind.WithLocation(loc),
		plainbind.WithScriptID(o.scriptID),
	), nil
}

// renderCommand binds one page. PAGE "-" reads the page from stdin.
func renderCommand(ctx context.Context, page string, stdin io.Reader, opts options, stdout, stderr io.Writer) error {
	var src []byte
	var err error
	if page == "-" {
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(page)
	}
	if err != nil {
		return fmt.Errorf("reading page: %w", err)
	}

	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}

	var before bytes.Buffer
	if opts.diff {
		if err := html.Render(&before, doc); err != nil {
			return err
		}
	}

	log := &countingLogger{next: logger.WriterLogger(stderr)}
	b, err := opts.binder(log)
	if err != nil {
		return err
	}
	b.Bind(ctx, doc, pageSource(page, opts))

	var after bytes.Buffer
	if err := html.Render(&after, doc); err != nil {
		return err
	}

	if err := writeResult(stdout, opts, before.String(), after.String()); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if opts.strict && log.count.Load() > 0 {
		return fmt.Errorf("binding reported %d diagnostic(s)", log.count.Load())
	}
	return nil
}

// pageSource picks the data for a page without inline data: the -d file or
// URL, then the page's sidecar JSON file.
func pageSource(page string, opts options) data.Loader {
	switch {
	case strings.HasPrefix(opts.dataPath, "http://"), strings.HasPrefix(opts.dataPath, "https://"):
		return data.HTTPSource{URL: opts.dataPath, Timeout: opts.timeout}
	case opts.dataPath != "":
		return data.FileSource{Path: opts.dataPath}
	case page == "-":
		return nil
	}
	sidecar := data.SidecarPath(page, "", false)
	if _, err := os.Stat(sidecar); err != nil {
		return nil
	}
	return data.FileSource{Path: sidecar}
}

// writeResult writes the bound page, or its diff with --diff, to the -o
// file or stdout.
func writeResult(stdout io.Writer, opts options, before, after string) (err error) {
	out := stdout
	if opts.output != "" {
		f, ferr := os.Create(opts.output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	if opts.diff {
		return writeDiff(out, before, after)
	}
	_, err = io.WriteString(out, after+"\n")
	return err
}

// writeDiff prints a line diff: "-" lines are only in before, "+" lines
// only in after.
func writeDiff(w io.Writer, before, after string) error {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changed := false
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			continue
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		changed = true
		for _, line := range strings.SplitAfter(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if _, err := fmt.Fprintf(w, "%s%s\n", prefix, strings.TrimSuffix(line, "\n")); err != nil {
				return err
			}
		}
	}
	if !changed {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}
	return nil
}

// replCommand starts the path REPL over a data file.
func replCommand(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("repl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var opts options
	addCommonFlags(flags, &opts)
	if err := flags.Parse(args); err != nil {
		return err
	}

	obj, err := loadReplData(flags.Arg(0))
	if err != nil {
		return err
	}

	log := logger.WriterLogger(stderr)
	b, err := opts.binder(log)
	if err != nil {
		return err
	}
	repl.Start(stdout, Version, repl.NewSession(obj, b.Registry(), log))
	return nil
}

func loadReplData(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	obj, err := data.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// countingLogger forwards to next and counts diagnostic lines.
type countingLogger struct {
	next  logger.Logger
	count atomic.Int64
}

func (l *countingLogger) Log(values ...any) { l.next.Log(values...) }

func (l *countingLogger) LogLine(values ...any) {
	l.count.Add(1)
	l.next.LogLine(values...)
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `pbind - bind JSON data into an HTML page, version %s

Usage:
  pbind [options] PAGE.html
  pbind [options] -            Read the page from stdin
  pbind repl [options] [DATA.json]

Data:
  A page's inline <script id="plainbind-data" type="application/json">
  always wins. Otherwise -d is used, then PAGE.html.json next to the page.

Options:
  -d, --data <file|url>  Data file or URL
  -o <file>              Write output to file instead of stdout
  --diff                 Show a line diff of the page before and after binding
  --strict               Fail when binding reports any diagnostic
  --locale <tag>         Locale for number and date formatters (default en-US)
  --tz <zone>            Time zone for date formatters (default Local)
  --script-id <id>       id of the inline data script
  --timeout <duration>   Timeout for data URLs (default 10s)
  --version              Show version information
  --help                 Show this help message

Examples:
  pbind index.html                    Bind using index.html.json
  pbind -d products.json list.html    Bind using an explicit data file
  pbind --diff index.html             See what binding changes
  pbind repl products.json            Explore data paths interactively
`, Version)
}
