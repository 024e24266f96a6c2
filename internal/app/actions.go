// actions.go registers the built-in actions that exist regardless of which
// plugins are loaded.

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/providers/apps"
)

func (a *App) registerActions() error {
	builtins := []action.Action{
		{
			ID:          action.SettingsID,
			Label:       "Open Settings",
			Icon:        "settings",
			Description: "Open the configuration file in the default editor",
			Context:     action.Global,
			Execute:     a.openSettings,
		},
		{
			ID:          action.ResetSearchID,
			Label:       "Reset Search Index",
			Icon:        "refresh",
			Description: "Rebuild the search index and clear cached results",
			Context:     action.Core,
			Execute:     a.resetSearch,
		},
	}
	for _, b := range builtins {
		if err := a.Actions.RegisterBuiltin(b); err != nil {
			return fmt.Errorf("register %s: %w", b.ID, err)
		}
	}
	return nil
}

// openSettings creates the config file if needed and opens it.
func (a *App) openSettings(ctx context.Context) error {
	path := a.Config.Path()
	if path == "" {
		return fmt.Errorf("no configuration file path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := a.Config.Save(); err != nil {
			return err
		}
	}
	return a.opener.Open(ctx, apps.App{Name: "Settings", Path: path})
}

func (a *App) resetSearch(ctx context.Context) error {
	err := a.Search.ResetIndex(ctx)
	log.Event("index:reset", "reset").Write(err)
	if err != nil {
		return err
	}
	a.Logger.Info("search index reset")
	return nil
}
