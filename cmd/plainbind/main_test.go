package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) string { return "" }

func TestRunVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	if err := run(context.Background(), []string{"--version"}, stdout, stderr, noEnv); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "plainbind version") {
		t.Errorf("expected version output, got %q", stdout.String())
	}
}

func TestRunHelp(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		t.Run(arg, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			if err := run(context.Background(), []string{arg}, stdout, &bytes.Buffer{}, noEnv); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			output := stdout.String()
			for _, want := range []string{"plainbind - serve HTML pages", "--config", "--dev", "PLAINBIND_CONFIG"} {
				if !strings.Contains(output, want) {
					t.Errorf("expected %q in help", want)
				}
			}
		})
	}
}

func TestRunInvalidFlag(t *testing.T) {
	stderr := &bytes.Buffer{}
	if err := run(context.Background(), []string{"--invalid-flag"}, &bytes.Buffer{}, stderr, noEnv); err == nil {
		t.Error("expected error for invalid flag")
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Error("usage should be printed on a bad flag")
	}
}

func TestRunTooManyArgs(t *testing.T) {
	err := run(context.Background(), []string{"a", "b"}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil || !strings.Contains(err.Error(), "at most one site folder") {
		t.Errorf("expected argument error, got %v", err)
	}
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	stdout := &bytes.Buffer{}
	if err := run(context.Background(), []string{"--init", dir}, stdout, &bytes.Buffer{}, noEnv); err != nil {
		t.Fatal(err)
	}
	assertFileExists(t, filepath.Join(dir, "plainbind.yaml"))
}

func TestRunInitSubcommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	if err := run(context.Background(), []string{"init", dir}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv); err != nil {
		t.Fatal(err)
	}
	assertFileExists(t, filepath.Join(dir, "site", "index.html"))

	if err := run(context.Background(), []string{"init"}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv); err == nil {
		t.Error("expected usage error without a folder")
	}
}

func TestRunServeSubcommandFlags(t *testing.T) {
	stdout := &bytes.Buffer{}
	if err := run(context.Background(), []string{"serve", "--version"}, stdout, &bytes.Buffer{}, noEnv); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "plainbind version") {
		t.Errorf("serve should accept server flags, got %q", stdout.String())
	}
}

func TestRunMissingConfig(t *testing.T) {
	err := run(context.Background(), []string{"--config", "/nonexistent/plainbind.yaml"}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plainbind.yaml")
	os.WriteFile(path, []byte("render:\n  locale: not_a_locale!!\n"), 0644)

	err := run(context.Background(), []string{"--config", path}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil || !strings.Contains(err.Error(), "config validation") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRunUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plainbind.yaml")
	os.WriteFile(path, []byte("developers:\n  alice:\n    port: 3001\n"), 0644)

	err := run(context.Background(), []string{"--config", path, "--profile", "bob"}, &bytes.Buffer{}, &bytes.Buffer{}, noEnv)
	if err == nil || !strings.Contains(err.Error(), "available: alice") {
		t.Errorf("expected profile error, got %v", err)
	}
}

func TestLoadConfig_SiteFolder(t *testing.T) {
	dir := t.TempDir()

	cfg, configFile, err := loadConfig("", dir, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if configFile != "" {
		t.Errorf("no config file expected, got %q", configFile)
	}
	if cfg.Site != dir {
		t.Errorf("site = %q, want %q", cfg.Site, dir)
	}

	if _, _, err := loadConfig("", filepath.Join(dir, "missing"), noEnv); err == nil {
		t.Error("expected error for a missing site folder")
	}
}

func TestLoadConfig_NoConfigServesCurrentFolder(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	cfg, configFile, err := loadConfig("", "", noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if configFile != "" {
		t.Errorf("config file = %q", configFile)
	}
	wd, _ := os.Getwd()
	if cfg.Site != wd {
		t.Errorf("site = %q, want %q", cfg.Site, wd)
	}
}

func TestLoadConfig_ConfigWithSiteOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plainbind.yaml")
	os.WriteFile(path, []byte("server:\n  port: 9000\nsite: ./pages\n"), 0644)
	other := t.TempDir()

	cfg, configFile, err := loadConfig(path, other, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if configFile != path {
		t.Errorf("config file = %q", configFile)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Site != other {
		t.Errorf("site = %q, want %q", cfg.Site, other)
	}

	cfg, _, err = loadConfig(path, "", noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Site != filepath.Join(dir, "pages") {
		t.Errorf("site = %q", cfg.Site)
	}
}
