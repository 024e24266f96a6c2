// index.go reconciles the external search index with the command registry.
//
// Separated from the load sequence because the index is also rebuilt on
// demand by the reset-search action. Applications are indexed by their
// provider; this file only owns the command rows.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/log"
	"github.com/jpl-au/vela/internal/store"
	"golang.org/x/sync/errgroup"
)

// indexWorkers bounds concurrent index writes.
const indexWorkers = 4

// SyncIndex removes index rows for commands that no longer exist and
// upserts every registered command. It reports how many rows were written
// and removed. A failed row is reported in the joined error after every
// other row has been attempted.
func (m *Manager) SyncIndex(ctx context.Context) (indexed, removed int, err error) {
	if m.deps.Store == nil {
		return 0, 0, nil
	}
	defer func() {
		log.Event("index:sync", "sync").Detail("indexed", indexed).Detail("removed", removed).Write(err)
	}()

	commands := m.deps.Commands.Commands()
	current := make(map[string]bool, len(commands))
	for _, c := range commands {
		current[c.ObjectID] = true
	}

	existing, err := m.deps.Store.IndexedIDs(ctx, command.Prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("list indexed commands: %w", err)
	}

	var (
		nIndexed, nRemoved atomic.Int64
		mu                 sync.Mutex
		errs               []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	// Workers never return errors: one bad row must not cancel the rest.
	var g errgroup.Group
	g.SetLimit(indexWorkers)

	for _, id := range existing {
		if current[id] {
			continue
		}
		g.Go(func() error {
			err := m.deps.Store.Delete(ctx, id)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				record(fmt.Errorf("remove %s from index: %w", id, err))
				return nil
			}
			nRemoved.Add(1)
			return nil
		})
	}
	for _, c := range commands {
		item := itemFor(c)
		g.Go(func() error {
			wrote, err := m.deps.Store.Index(ctx, item)
			if err != nil {
				record(fmt.Errorf("index %s: %w", item.ObjectID, err))
				return nil
			}
			if wrote {
				nIndexed.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()
	indexed, removed = int(nIndexed.Load()), int(nRemoved.Load())
	if err = errors.Join(errs...); err != nil {
		return indexed, removed, err
	}

	m.logger.Debug("search index synced", "indexed", indexed, "removed", removed)
	m.emit(ctx, extension.IndexEvent{Indexed: indexed, Removed: removed})
	return indexed, removed, nil
}

// ResetIndex wipes the external index and rebuilds the command rows.
func (m *Manager) ResetIndex(ctx context.Context) error {
	if m.deps.Store == nil {
		return nil
	}
	if err := m.deps.Store.Reset(ctx); err != nil {
		return err
	}
	_, _, err := m.SyncIndex(ctx)
	return err
}

func itemFor(c command.Command) store.IndexItem {
	return store.IndexItem{
		ObjectID:  c.ObjectID,
		Category:  store.CategoryCommand,
		Name:      c.Name,
		Extension: c.PluginID,
		Keyword:   strings.TrimSpace(c.Trigger),
		Type:      c.ResultType,
	}
}
