// Package config provides reading and writing of vela configuration.
// Supports both global (~/.vela/config.yaml) and local (.vela/config.yaml).
// Reading: uses local if it exists, otherwise global. Environment variables
// with the VELA_ prefix override file values.
// Writing: defaults to global, use --local for local.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.vela/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is directory-specific config in .vela/config.yaml
	ScopeLocal
)

// EnvPrefix is the prefix of environment overrides (VELA_DATA_DIR, ...).
const EnvPrefix = "VELA"

// Extensions holds plugin loading options.
type Extensions struct {
	Dir      string   `yaml:"dir,omitempty"`
	Disabled []string `yaml:"disabled,omitempty"`
	Watch    *bool    `yaml:"watch,omitempty"`
}

// Search holds aggregator tuning.
type Search struct {
	CacheTTL       *time.Duration `yaml:"cache_ttl,omitempty"`
	MaxResults     *int           `yaml:"max_results,omitempty"`
	DefaultResults *int           `yaml:"default_results,omitempty"`
}

// Apps holds application discovery options.
type Apps struct {
	Dirs []string `yaml:"dirs,omitempty"`
}

// Metrics holds runtime metrics options.
type Metrics struct {
	Interval *time.Duration `yaml:"interval,omitempty"`
}

// HTTP holds the HTTP API options.
type HTTP struct {
	Addr string `yaml:"addr,omitempty"`
}

// Log holds diagnostic logging options.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults applied when not configured.
const (
	DefaultCacheTTL        = 30 * time.Second
	DefaultMaxResults      = 100
	DefaultDefaultResults  = 10
	DefaultMetricsInterval = time.Minute
	DefaultHTTPAddr        = "127.0.0.1:7878"
	DefaultLogLevel        = "info"
)

// Validation bounds for configuration values.
const (
	MinCacheTTL        = time.Millisecond
	MaxCacheTTL        = time.Hour
	MinMaxResults      = 1
	MaxMaxResults      = 10000
	MinDefaultResults  = 1
	MaxDefaultResults  = 100
	MinMetricsInterval = time.Second
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config contains configuration for vela.
type Config struct {
	Extensions Extensions `yaml:"extensions,omitempty"`
	Search     Search     `yaml:"search,omitempty"`
	Apps       Apps       `yaml:"apps,omitempty"`
	Metrics    Metrics    `yaml:"metrics,omitempty"`
	HTTP       HTTP       `yaml:"http,omitempty"`
	Log        Log        `yaml:"log,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
	// dataDir is set from VELA_DATA_DIR and never written to disk
	dataDir string
}

// env mirrors the supported environment overrides.
type env struct {
	ExtensionsDir string        `envconfig:"EXTENSIONS_DIR"`
	DataDir       string        `envconfig:"DATA_DIR"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL"`
	LogLevel      string        `envconfig:"LOG_LEVEL"`
}

// ApplyEnv overlays VELA_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if e.ExtensionsDir != "" {
		c.Extensions.Dir = e.ExtensionsDir
	}
	if e.DataDir != "" {
		c.dataDir = e.DataDir
	}
	if e.CacheTTL != 0 {
		c.Search.CacheTTL = &e.CacheTTL
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	return c.Validate()
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Search.CacheTTL != nil {
		v := *c.Search.CacheTTL
		if v < MinCacheTTL || v > MaxCacheTTL {
			return fmt.Errorf("%w: search.cache_ttl must be between %s and %s, got %s",
				ErrInvalidValue, MinCacheTTL, MaxCacheTTL, v)
		}
	}
	if c.Search.MaxResults != nil {
		v := *c.Search.MaxResults
		if v < MinMaxResults || v > MaxMaxResults {
			return fmt.Errorf("%w: search.max_results must be between %d and %d, got %d",
				ErrInvalidValue, MinMaxResults, MaxMaxResults, v)
		}
	}
	if c.Search.DefaultResults != nil {
		v := *c.Search.DefaultResults
		if v < MinDefaultResults || v > MaxDefaultResults {
			return fmt.Errorf("%w: search.default_results must be between %d and %d, got %d",
				ErrInvalidValue, MinDefaultResults, MaxDefaultResults, v)
		}
	}
	if c.Metrics.Interval != nil && *c.Metrics.Interval < MinMetricsInterval {
		return fmt.Errorf("%w: metrics.interval must be at least %s, got %s",
			ErrInvalidValue, MinMetricsInterval, *c.Metrics.Interval)
	}
	if c.Log.Level != "" && !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("%w: log.level must be one of %v, got %q", ErrInvalidValue, logLevels, c.Log.Level)
	}
	return nil
}

// DataDir returns the directory holding the database, audit log and
// plugins (defaults to ~/.vela).
func (c *Config) DataDir() string {
	if c.dataDir != "" {
		return c.dataDir
	}
	if d := os.Getenv(EnvPrefix + "_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vela"
	}
	return filepath.Join(home, ".vela")
}

// SetDataDir overrides the data directory for this process.
func (c *Config) SetDataDir(dir string) {
	c.dataDir = dir
}

// DBPath returns the path of the launcher database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir(), "vela.db")
}

// ExtensionsDir returns the filesystem plugin directory (defaults to
// <data dir>/extensions).
func (c *Config) ExtensionsDir() string {
	if c.Extensions.Dir != "" {
		return c.Extensions.Dir
	}
	return filepath.Join(c.DataDir(), "extensions")
}

// Watch returns whether the plugin directory is watched (defaults to false).
func (c *Config) Watch() bool {
	if c.Extensions.Watch == nil {
		return false
	}
	return *c.Extensions.Watch
}

// Disabled reports whether id is disabled by configuration.
func (c *Config) Disabled(id string) bool {
	return slices.Contains(c.Extensions.Disabled, id)
}

// CacheTTL returns the search cache lifetime (defaults to 30s).
func (c *Config) CacheTTL() time.Duration {
	if c.Search.CacheTTL == nil {
		return DefaultCacheTTL
	}
	return *c.Search.CacheTTL
}

// MaxResults returns the ranked result cap (defaults to 100).
func (c *Config) MaxResults() int {
	if c.Search.MaxResults == nil {
		return DefaultMaxResults
	}
	return *c.Search.MaxResults
}

// DefaultResults returns the empty-query list cap (defaults to 10).
func (c *Config) DefaultResults() int {
	if c.Search.DefaultResults == nil {
		return DefaultDefaultResults
	}
	return *c.Search.DefaultResults
}

// AppDirs returns the directories scanned for applications. Without
// configuration the platform's usual locations are used.
func (c *Config) AppDirs() []string {
	if len(c.Apps.Dirs) > 0 {
		return c.Apps.Dirs
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Applications", "/System/Applications", filepath.Join(home, "Applications")}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramData"), `Microsoft\Windows\Start Menu\Programs`),
			filepath.Join(os.Getenv("APPDATA"), `Microsoft\Windows\Start Menu\Programs`),
		}
	default:
		return []string{"/usr/share/applications", filepath.Join(home, ".local", "share", "applications")}
	}
}

// MetricsInterval returns how often runtime metrics are logged (defaults to 1m).
func (c *Config) MetricsInterval() time.Duration {
	if c.Metrics.Interval == nil {
		return DefaultMetricsInterval
	}
	return *c.Metrics.Interval
}

// HTTPAddr returns the HTTP listen address.
func (c *Config) HTTPAddr() string {
	if c.HTTP.Addr == "" {
		return DefaultHTTPAddr
	}
	return c.HTTP.Addr
}

// LogLevel returns the diagnostic log level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LocalPath returns the path to the local config file.
func LocalPath() string {
	return filepath.Join(".vela", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.vela/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vela", "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
// Environment overrides are applied on top.
func Load() (*Config, error) {
	scope := ScopeGlobal
	if _, err := os.Stat(LocalPath()); err == nil {
		scope = ScopeLocal
	}
	cfg, err := LoadScope(scope)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	return LoadFile(pathForScope(scope), scope)
}

// LoadFile reads configuration from path. A missing file yields an empty
// config that will be saved to path.
func LoadFile(path string, scope Scope) (*Config, error) {
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Path returns the file this config is saved to.
func (c *Config) Path() string {
	if c.path != "" {
		return c.path
	}
	return pathForScope(c.scope)
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// saveToPath writes configuration to a specific filesystem path.
// Creates parent directories as needed with mode 0755.
func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// pathForScope returns the filesystem path for a given scope.
func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
