// Package version provides build version information for vela.
// Release builds set the variables via ldflags:
//
//	go build -ldflags="-X github.com/jpl-au/vela/internal/version.Version=v1.0.0 \
//	  -X github.com/jpl-au/vela/internal/version.GitCommit=abc123 \
//	  -X github.com/jpl-au/vela/internal/version.BuildTime=2026-01-15T10:30:00Z"
//
// Plain "go build" and "go install" leave them unset; the commit and time
// then come from the VCS stamp the toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build information. Set via ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info holds structured version information.
type Info struct {
	BuildTag  string   `json:"build_tag"`
	BuildTime string   `json:"build_time"`
	GitCommit string   `json:"git_commit"`
	Modified  bool     `json:"modified,omitempty"` // built from a dirty tree
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Schema    int      `json:"schema,omitempty"` // last applied database migration
	Plugins   []string `json:"plugins"`          // built-in plugin ids
}

// Get returns the build information together with the built-in plugin ids
// and the database schema version (zero if unknown).
func Get(plugins []string, schema int) Info {
	i := Info{
		BuildTag:  Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + " " + runtime.GOARCH,
		Schema:    schema,
		Plugins:   plugins,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		i.fromVCS(bi.Settings)
	}
	return i
}

// fromVCS fills fields the ldflags left unset.
func (i *Info) fromVCS(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "unknown" && s.Value != "" {
				i.GitCommit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if i.BuildTime == "unknown" && s.Value != "" {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// String formats the information for display.
func (i Info) String() string {
	var b strings.Builder
	row := func(k, v string) { fmt.Fprintf(&b, "%-13s %s\n", k+":", v) }

	row("Build Tag", i.BuildTag)
	row("Build Time", i.BuildTime)
	commit := i.GitCommit
	if i.Modified {
		commit += " (modified)"
	}
	row("Git Commit", commit)
	row("Go Version", i.GoVersion)
	row("Platform", i.Platform)
	if i.Schema > 0 {
		row("Schema", fmt.Sprint(i.Schema))
	}
	if len(i.Plugins) > 0 {
		row("Plugins", strings.Join(i.Plugins, ", "))
	}
	return b.String()
}

// Short returns just the version string (e.g., "v1.0.0" or "dev").
func Short() string {
	return Version
}
