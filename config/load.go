package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when no explicit path was given and no config file
// exists in any of the default locations.
var ErrNoConfig = errors.New("no config file found")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// This is useful when the caller needs to know the actual config file location.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.BaseDir = baseDir
	cfg.Site = resolvePath(baseDir, cfg.Site)
	if cfg.Dev.LogDatabase != "" {
		cfg.Dev.LogDatabase = resolvePath(baseDir, cfg.Dev.LogDatabase)
	}

	if err := validateBasic(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// ForSite returns the default configuration serving dir. It is used when
// the server is started on a folder without a config file.
func ForSite(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site path: %w", err)
	}
	cfg := Defaults()
	cfg.BaseDir = abs
	cfg.Site = abs
	return cfg, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate performs full configuration validation including render settings.
// Call this after applying CLI overrides (like --dev).
func Validate(cfg *Config) error {
	if err := validateBasic(cfg); err != nil {
		return err
	}
	return validateRender(cfg)
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
// These are problems that won't prevent the server from starting but likely indicate
// a misconfiguration.
func Warnings(cfg *Config) []string {
	var warnings []string

	if info, err := os.Stat(cfg.Site); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("site directory %q does not exist - the server will return 404 for all requests", cfg.Site))
	}

	if cfg.Server.Dev && cfg.Render.CacheTTL > 0 {
		warnings = append(warnings, "render.cache_ttl is ignored in dev mode")
	}

	if !cfg.Server.Dev && strings.HasPrefix(cfg.Data.Remote, "http://") {
		warnings = append(warnings, "data.remote uses plain HTTP in production mode")
	}

	if cfg.Data.Remote != "" && cfg.Data.CacheTTL == 0 {
		warnings = append(warnings, "data.cache_ttl is 0 - every page view fetches remote data")
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > PLAINBIND_CONFIG env > ./plainbind.yaml > ~/.config/plainbind/plainbind.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("PLAINBIND_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("PLAINBIND_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("plainbind.yaml"); err == nil {
		return "plainbind.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "plainbind", "plainbind.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("%w (tried PLAINBIND_CONFIG, plainbind.yaml, ~/.config/plainbind/plainbind.yaml)", ErrNoConfig)
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// validateBasic checks the structural settings that do not depend on CLI
// overrides.
func validateBasic(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}

	if cfg.Site == "" {
		errs = append(errs, "site is required")
	}

	if cfg.Data.ScriptID == "" {
		errs = append(errs, "data.script_id must not be empty")
	}
	if cfg.Data.Index == "" || strings.Contains(cfg.Data.Index, "/") {
		errs = append(errs, fmt.Sprintf("invalid data.index: %q (must be a file name)", cfg.Data.Index))
	}
	if cfg.Data.Remote != "" {
		u, err := url.Parse(cfg.Data.Remote)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid data.remote: %q (must be an http or https URL)", cfg.Data.Remote))
		}
	}
	if cfg.Data.Timeout < 0 {
		errs = append(errs, "data.timeout must not be negative")
	}
	if cfg.Data.CacheTTL < 0 {
		errs = append(errs, "data.cache_ttl must not be negative")
	}
	if cfg.Render.CacheTTL < 0 {
		errs = append(errs, "render.cache_ttl must not be negative")
	}

	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validCompression[cfg.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Compression.Level))
	}

	if _, err := ParseSize(cfg.Dev.LogMaxSize); err != nil {
		errs = append(errs, fmt.Sprintf("dev.log_max_size: %v", err))
	}
	if cfg.Dev.LogTruncatePct < 1 || cfg.Dev.LogTruncatePct > 100 {
		errs = append(errs, fmt.Sprintf("invalid dev.log_truncate_pct: %d (must be 1-100)", cfg.Dev.LogTruncatePct))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateRender checks the locale and time zone used by the formatters.
func validateRender(cfg *Config) error {
	var errs []string

	if _, err := language.Parse(cfg.Render.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid render.locale: %q", cfg.Render.Locale))
	}
	if _, err := time.LoadLocation(cfg.Render.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid render.timezone: %q", cfg.Render.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Locale returns the parsed render locale, falling back to American English.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(c.Render.Locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// Location returns the render time zone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Render.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseSize parses a size string like "10MB", "1GB", "500KB" to bytes.
// Supports: B, KB, MB, GB (case insensitive).
// Returns 0 for empty string.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	// Longest suffix first so "B" does not match "MB"
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			var num int64
			if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			return num * sf.mult, nil
		}
	}

	var num int64
	if _, err := fmt.Sscanf(s, "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num, nil
}

// ApplyDeveloper applies a named developer profile to the configuration.
// Only non-zero values in the developer config override the base config.
// Returns an error if the profile name doesn't exist.
func ApplyDeveloper(cfg *Config, profileName string) error {
	if cfg.Developers == nil {
		return fmt.Errorf("no developer profiles defined in config")
	}

	dev, ok := cfg.Developers[profileName]
	if !ok {
		var names []string
		for name := range cfg.Developers {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown developer profile %q (available: %s)", profileName, strings.Join(names, ", "))
	}

	if dev.Port != 0 {
		cfg.Server.Port = dev.Port
	}
	if dev.Site != "" {
		cfg.Site = resolvePath(cfg.BaseDir, dev.Site)
	}
	if dev.Remote != "" {
		cfg.Data.Remote = dev.Remote
	}
	if dev.Logging.Level != "" {
		cfg.Logging.Level = dev.Logging.Level
	}
	if dev.Logging.Format != "" {
		cfg.Logging.Format = dev.Logging.Format
	}
	if dev.Logging.Output != "" {
		cfg.Logging.Output = dev.Logging.Output
	}
	if dev.Logging.Engine != "" {
		cfg.Logging.Engine = dev.Logging.Engine
	}
	if dev.Logging.Quiet {
		cfg.Logging.Quiet = true
	}

	return nil
}
