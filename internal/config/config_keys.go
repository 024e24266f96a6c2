// config_keys.go provides key-value access to configuration settings.
//
// Separated from config.go to isolate the key enumeration and string-based
// get/set logic. This separation allows config.go to focus on YAML structure
// and loading, while this file handles the MCP and CLI interface where config
// is accessed by string keys (e.g., "search.cache_ttl").
//
// Design: Pointers are used for optional fields so we can distinguish between
// "not set" (nil) and "explicitly set to zero/false". This enables proper
// defaulting - we only apply defaults when the user hasn't set a value.
// List values (extensions.disabled, apps.dirs) are comma-separated.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"extensions.dir", "extensions.disabled", "extensions.watch",
		"search.cache_ttl", "search.max_results", "search.default_results",
		"apps.dirs",
		"metrics.interval",
		"http.addr",
		"log.level",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "extensions.dir":
		return c.ExtensionsDir(), nil
	case "extensions.disabled":
		return strings.Join(c.Extensions.Disabled, ","), nil
	case "extensions.watch":
		return strconv.FormatBool(c.Watch()), nil
	case "search.cache_ttl":
		return c.CacheTTL().String(), nil
	case "search.max_results":
		return strconv.Itoa(c.MaxResults()), nil
	case "search.default_results":
		return strconv.Itoa(c.DefaultResults()), nil
	case "apps.dirs":
		return strings.Join(c.AppDirs(), ","), nil
	case "metrics.interval":
		return c.MetricsInterval().String(), nil
	case "http.addr":
		return c.HTTPAddr(), nil
	case "log.level":
		if c.Log.Level == "" {
			return DefaultLogLevel, nil
		}
		return c.Log.Level, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set sets the value of a configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "extensions.dir":
		c.Extensions.Dir = value
	case "extensions.disabled":
		c.Extensions.Disabled = splitList(value)
	case "extensions.watch":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Extensions.Watch = &b
	case "search.cache_ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: search.cache_ttl must be a duration such as 30s", ErrInvalidValue)
		}
		c.Search.CacheTTL = &d
	case "search.max_results":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: search.max_results must be a positive integer", ErrInvalidValue)
		}
		c.Search.MaxResults = &n
	case "search.default_results":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: search.default_results must be a positive integer", ErrInvalidValue)
		}
		c.Search.DefaultResults = &n
	case "apps.dirs":
		c.Apps.Dirs = splitList(value)
	case "metrics.interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: metrics.interval must be a duration such as 1m", ErrInvalidValue)
		}
		c.Metrics.Interval = &d
	case "http.addr":
		c.HTTP.Addr = value
	case "log.level":
		c.Log.Level = strings.ToLower(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return c.Validate()
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	m := make(map[string]string, len(ValidKeys()))
	for _, k := range ValidKeys() {
		v, _ := c.Get(k)
		m[k] = v
	}
	return m
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "extensions.dir":
		return c.Extensions.Dir != ""
	case "extensions.disabled":
		return len(c.Extensions.Disabled) > 0
	case "extensions.watch":
		return c.Extensions.Watch != nil
	case "search.cache_ttl":
		return c.Search.CacheTTL != nil
	case "search.max_results":
		return c.Search.MaxResults != nil
	case "search.default_results":
		return c.Search.DefaultResults != nil
	case "apps.dirs":
		return len(c.Apps.Dirs) > 0
	case "metrics.interval":
		return c.Metrics.Interval != nil
	case "http.addr":
		return c.HTTP.Addr != ""
	case "log.level":
		return c.Log.Level != ""
	default:
		return false
	}
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
