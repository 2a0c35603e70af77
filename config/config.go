package config

import "time"

// Config represents the complete PlainBind server configuration
type Config struct {
	BaseDir     string                     `yaml:"-"` // Directory containing config file, for resolving relative paths
	Server      ServerConfig               `yaml:"server"`
	Site        string                     `yaml:"site"` // Directory of pages and static files (default: "./site")
	Data        DataConfig                 `yaml:"data"`
	Render      RenderConfig               `yaml:"render"`
	Compression CompressionConfig          `yaml:"compression"`
	Dev         DevConfig                  `yaml:"dev"`
	Logging     LoggingConfig              `yaml:"logging"`
	Developers  map[string]DeveloperConfig `yaml:"developers"` // Named developer profiles for per-developer overrides
}

// DeveloperConfig holds per-developer overrides
// All fields are optional - only non-zero values override the base config
type DeveloperConfig struct {
	Port    int           `yaml:"port"`    // Override server.port
	Site    string        `yaml:"site"`    // Override site directory
	Remote  string        `yaml:"remote"`  // Override data.remote
	Logging LoggingConfig `yaml:"logging"` // Override logging settings
}

// ServerConfig holds server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Dev  bool   `yaml:"-"` // Set via CLI flag, not config
}

// DataConfig controls where page data comes from when a page has no inline
// data script.
type DataConfig struct {
	ScriptID string            `yaml:"script_id"` // id of the inline JSON script (default: "plainbind-data")
	Index    string            `yaml:"index"`     // Document name for directory URLs (default: "index.html")
	Remote   string            `yaml:"remote"`    // Base URL for <page>.json when no sidecar file exists
	Timeout  time.Duration     `yaml:"timeout"`   // Remote fetch timeout (default: 10s)
	CacheTTL time.Duration     `yaml:"cache_ttl"` // Remote response cache lifetime, 0 disables (default: 1m)
	Headers  map[string]string `yaml:"headers"`   // Extra request headers for remote fetches
}

// RenderConfig controls formatting and the rendered page cache
type RenderConfig struct {
	Locale   string        `yaml:"locale"`    // BCP 47 tag for number/percent/longdate (default: "en-US")
	Timezone string        `yaml:"timezone"`  // IANA zone for date formatters (default: "Local")
	CacheTTL time.Duration `yaml:"cache_ttl"` // Rendered page cache lifetime, 0 disables (default: 0)
}

// CompressionConfig holds response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// DevConfig holds development mode settings
type DevConfig struct {
	LogDatabase    string `yaml:"log_database"`     // Path to dev log database file (default: auto-generated)
	LogMaxSize     string `yaml:"log_max_size"`     // Maximum log database size (default: "10MB")
	LogTruncatePct int    `yaml:"log_truncate_pct"` // Percentage to delete when truncating (default: 25)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
	Engine string `yaml:"engine"` // where binding errors go: stderr, stdout, file path, or "none"
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "",
			Port: 8080,
		},
		Site: "./site",
		Data: DataConfig{
			ScriptID: "plainbind-data",
			Index:    "index.html",
			Timeout:  10 * time.Second,
			CacheTTL: time.Minute,
		},
		Render: RenderConfig{
			Locale:   "en-US",
			Timezone: "Local",
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Dev: DevConfig{
			LogMaxSize:     "10MB",
			LogTruncatePct: 25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			Engine: "stderr",
		},
	}
}
