package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const initConfig = `# PlainBind configuration
# Generated by: plainbind --init

server:
  host: localhost
  port: 8080

site: ./site

data:
  script_id: plainbind-data
  index: index.html
  # remote: https://api.example.com   # fetch <page>.json from here when no sidecar exists
  # cache_ttl: 1m

render:
  locale: en-US
  timezone: Local

logging:
  level: info
  format: text
  output: stderr
  engine: stderr

dev:
  log_database: ./logs/dev_logs.db
`

const initGitignore = `# PlainBind
logs/
*.db
*.db-wal
*.db-shm
`

const initIndex = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title data-bind="title">PlainBind</title>
</head>
<body>
<h1 data-bind="title">Hello</h1>
<p data-bind="intro" data-placeholder="Edit site/index.html.json to change this page."></p>
<ul>
  <li data-repeat="item in items"><span data-bind="item.name"></span> <em data-bind="item.price" data-format="number"></em></li>
</ul>
<p data-empty="items">Nothing here yet.</p>
</body>
</html>
`

const initIndexData = `{
  "title": "Hello from PlainBind",
  "intro": "This page is bound to site/index.html.json.",
  "items": [
    {"name": "Apples", "price": 1.25},
    {"name": "Pears", "price": 2}
  ]
}
`

const init404 = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Not found</title></head>
<body>
<h1>Not found</h1>
<p>There is no page at <code data-bind="path"></code>.</p>
</body>
</html>
`

// runInitCommand scaffolds a new site in folder. The folder may exist but
// must be empty.
func runInitCommand(folder string, stdout, stderr io.Writer) error {
	absPath, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s is a file, not a folder", folder)
	case err == nil:
		entries, err := os.ReadDir(absPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", folder, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("folder %s is not empty", folder)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("checking %s: %w", folder, err)
	}

	for _, dir := range []string{"site", "logs"} {
		if err := os.MkdirAll(filepath.Join(absPath, dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	files := []struct {
		name    string
		content string
	}{
		{"plainbind.yaml", initConfig},
		{".gitignore", initGitignore},
		{filepath.Join("site", "index.html"), initIndex},
		{filepath.Join("site", "index.html.json"), initIndexData},
		{filepath.Join("site", "404.html"), init404},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(absPath, f.name), []byte(f.content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	fmt.Fprintf(stdout, "Created new PlainBind site in %s\n\n", absPath)
	fmt.Fprintf(stdout, "Next steps:\n")
	fmt.Fprintf(stdout, "  cd %s\n", folder)
	fmt.Fprintf(stdout, "  plainbind --dev\n\n")
	fmt.Fprintf(stdout, "Then open http://localhost:8080\n")
	return nil
}
