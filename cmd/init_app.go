/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// init_app.go handles launcher initialisation and plugin command
// registration.
//
// Separated from root.go to isolate the initialisation logic that loads
// config, opens the database and starts every enabled plugin.
//
// Design: Built-in plugins register during init() but the launcher isn't
// built until first command execution. Commands contributed by plugins are
// registered up front from fresh factory instances and run without the
// launcher, so they work before any data directory exists. The app is
// created once and shared by every command.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/config"
)

// noAppCommands lists commands that bypass launcher initialisation. Plugin
// commands are added by registerExtensions.
var noAppCommands = map[string]bool{
	"config":     true,
	"version":    true,
	"help":       true,
	"completion": true,
	"log":        true,
}

// serverCommands log at the configured level. Everything else stays quiet
// unless -v is given, so plugin loading doesn't clutter output.
var serverCommands = map[string]bool{
	"serve": true,
	"http":  true,
}

// Global launcher instance, created during initialisation.
var (
	theApp  *app.App
	appOnce sync.Once
	appErr  error
)

// loadConfig reads configuration and applies --dir.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if d := Dir(); d != "" {
		cfg.SetDataDir(d)
	}
	return cfg, nil
}

// initApp builds the launcher core.
//
// Why sync.Once: opening the database and loading plugins is expensive and
// every component must share one registry set, so there is exactly one app
// per process.
func initApp(ctx context.Context, name string) error {
	appOnce.Do(func() {
		cfg, err := loadConfig()
		if err != nil {
			appErr = err
			return
		}

		level := cfg.LogLevel()
		if !serverCommands[name] && level < slog.LevelWarn {
			level = slog.LevelWarn
		}
		level = diagnosticLevel(level)
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		if ctx == nil {
			ctx = context.Background()
		}
		theApp, appErr = app.New(ctx, app.Options{Config: cfg, Logger: logger})
	})
	return appErr
}

// App returns the launcher built for the running command. It is nil for
// commands in noAppCommands.
func App() *app.App {
	return theApp
}

func closeApp() error {
	if theApp == nil {
		return nil
	}
	err := theApp.Close()
	theApp = nil
	return err
}

var extensionsOnce sync.Once

// registerExtensions adds the CLI commands of every built-in plugin.
// Called once before Execute runs.
func registerExtensions() {
	extensionsOnce.Do(func() {
		for _, b := range extension.Builtins() {
			p, ok := b.Factory().(extension.CLIProvider)
			if !ok {
				continue
			}
			for _, c := range p.CLICommands() {
				if hasCommand(c.Name()) {
					fmt.Fprintf(os.Stderr, "warning: plugin %s: command %q already exists\n", b.ID, c.Name())
					continue
				}
				rootCmd.AddCommand(c)
				noAppCommands[c.Name()] = true
			}
		}
	})
}

func hasCommand(name string) bool {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
