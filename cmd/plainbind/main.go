package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sambeau/plainbind/config"
	"github.com/sambeau/plainbind/server"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// serveOptions are the command line settings of the serve command.
type serveOptions struct {
	configPath string
	siteDir    string
	profile    string
	initFolder string
	port       int
	dev        bool
	quiet      bool
	version    bool
	help       bool
}

func parseServeFlags(args []string) (serveOptions, error) {
	var o serveOptions
	flags := flag.NewFlagSet("plainbind", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&o.configPath, "config", "", "Path to config file")
	flags.BoolVar(&o.dev, "dev", false, "Development mode")
	flags.BoolVar(&o.quiet, "quiet", false, "Suppress request logs")
	flags.IntVar(&o.port, "port", 0, "Override listen port")
	flags.StringVar(&o.profile, "profile", "", "Developer profile to apply")
	flags.StringVar(&o.profile, "as", "", "Alias for --profile")
	flags.StringVar(&o.initFolder, "init", "", "Create a new site in the folder")
	flags.BoolVar(&o.version, "version", false, "Show version")
	flags.BoolVar(&o.help, "help", false, "Show help")

	if err := flags.Parse(args); err != nil {
		return o, err
	}
	if flags.NArg() > 1 {
		return o, fmt.Errorf("expected at most one site folder, got %d", flags.NArg())
	}
	o.siteDir = flags.Arg(0)
	return o, nil
}

// run is the testable entry point: plainbind [serve] [options] [SITE_FOLDER]
// or plainbind init FOLDER.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 {
		switch args[0] {
		case "init":
			if len(args) != 2 {
				return errors.New("usage: plainbind init FOLDER")
			}
			return runInitCommand(args[1], stdout, stderr)
		case "serve":
			args = args[1:]
		}
	}

	opts, err := parseServeFlags(args)
	switch {
	case errors.Is(err, flag.ErrHelp):
		printUsage(stdout)
		return nil
	case err != nil:
		printUsage(stderr)
		return err
	case opts.help:
		printUsage(stdout)
		return nil
	case opts.version:
		fmt.Fprintf(stdout, "plainbind version %s (%s)\n", Version, Commit)
		return nil
	case opts.initFolder != "":
		return runInitCommand(opts.initFolder, stdout, stderr)
	}

	cfg, configFile, err := loadConfig(opts.configPath, opts.siteDir, getenv)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg, configFile, stdout, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

// apply layers the profile and flag overrides onto cfg and validates the
// result.
func (o serveOptions) apply(cfg *config.Config) error {
	if o.profile != "" {
		if err := config.ApplyDeveloper(cfg, o.profile); err != nil {
			return fmt.Errorf("applying profile %q: %w", o.profile, err)
		}
	}
	if o.dev {
		cfg.Server.Dev = true
	}
	if o.quiet || cfg.Logging.Quiet {
		cfg.Logging.Level = "error"
	}
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// loadConfig picks the configuration to serve with. A site folder without
// --config is served with defaults. Otherwise the config file is searched
// for, and the current folder is served when none exists.
func loadConfig(configPath, siteDir string, getenv func(string) string) (*config.Config, string, error) {
	if siteDir != "" && configPath == "" {
		if info, err := os.Stat(siteDir); err != nil || !info.IsDir() {
			return nil, "", fmt.Errorf("site folder %q does not exist", siteDir)
		}
		cfg, err := config.ForSite(siteDir)
		return cfg, "", err
	}

	cfg, configFile, err := config.LoadWithPath(configPath, getenv)
	if errors.Is(err, config.ErrNoConfig) && configPath == "" {
		cfg, err := config.ForSite(".")
		return cfg, "", err
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if siteDir != "" {
		if cfg.Site, err = filepath.Abs(siteDir); err != nil {
			return nil, "", err
		}
	}
	return cfg, configFile, nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `plainbind - serve HTML pages bound to JSON data

Usage:
  plainbind [serve] [options] [SITE_FOLDER]
  plainbind init FOLDER

Options:
  --config PATH      Config file (default: searched for, see below)
  --dev              Development mode: localhost, live reload, /__/logs
  --quiet            No request logs (log level error)
  --port PORT        Listen on PORT
  --profile NAME     Apply a developer profile from the config
  -as NAME           Same as --profile
  --init FOLDER      Same as plainbind init FOLDER
  --version          Show version
  --help             Show this help

Config file search:
  --config, then $PLAINBIND_CONFIG, then ./plainbind.yaml, then
  ~/.config/plainbind/plainbind.yaml. With none found, SITE_FOLDER (or
  the current folder) is served with default settings.

Examples:
  plainbind --dev                 Serve the configured site on localhost:8080
  plainbind --dev ./public        Serve ./public without a config file
  plainbind --config site.yaml    Use a specific config file
  plainbind init mysite           Create a new site in ./mysite
`)
}
