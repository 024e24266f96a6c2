// Package store persists launcher state: usage statistics, plugin enabled
// state and the external search index. Implementations handle the actual
// database operations while consumers depend only on the interfaces in
// interfaces.go.
package store

import (
	"time"
)

// Usage scopes. Applications and plugins keep separate counters so an
// application and a plugin with the same name never share statistics.
const (
	ScopeApps       = "app"
	ScopeExtensions = "ext"
)

// Index categories.
const (
	CategoryCommand     = "command"
	CategoryApplication = "application"
)

// UsageEntry is one usage counter.
type UsageEntry struct {
	Name     string    `json:"name"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// PluginState is a stored enabled flag.
type PluginState struct {
	ID        string `json:"id"`
	Enabled   bool   `json:"enabled"`
	UpdatedAt int64  `json:"updated_at"` // unix ms
}

// IndexItem is one entry in the external search index. Commands are keyed by
// their command object id, applications by their app id.
type IndexItem struct {
	ObjectID  string `json:"object_id"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	Extension string `json:"extension,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Type      string `json:"type,omitempty"`
	Path      string `json:"path,omitempty"`
}

// msToTime converts a stored unix millisecond timestamp. Zero stays zero.
func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
