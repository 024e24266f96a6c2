package log

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempDB points the logger at a database under t.TempDir().
func useTempDB(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	orig := dbPathFunc
	dbPathFunc = func() string {
		return filepath.Join(tmpDir, "log", "test.db")
	}
	t.Cleanup(func() {
		Close()
		dbPathFunc = orig
	})
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", DBPath())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLogger(t *testing.T) {
	useTempDB(t)

	t.Run("open and close", func(t *testing.T) {
		require.NoError(t, Open())
		defer Close()
		assert.FileExists(t, DBPath())
	})

	t.Run("log entry", func(t *testing.T) {
		require.NoError(t, Open())
		defer Close()
		SetSession("/home/user/.vela")

		Log(Entry{
			Source:  "command:execute",
			Action:  "execute",
			Plugin:  "calculator",
			Target:  "cmd_calculator_evaluate",
			Success: true,
		})

		var source, plugin, target, session string
		var success int
		err := openDB(t).QueryRow("SELECT source, plugin, target, session, success FROM log ORDER BY id DESC LIMIT 1").
			Scan(&source, &plugin, &target, &session, &success)
		require.NoError(t, err)
		assert.Equal(t, "command:execute", source)
		assert.Equal(t, "calculator", plugin)
		assert.Equal(t, "cmd_calculator_evaluate", target)
		assert.Equal(t, hash("/home/user/.vela"), session)
		assert.Equal(t, 1, success)
	})

	t.Run("log without logger is noop", func(t *testing.T) {
		Close()
		Log(Entry{Source: "test:cmd", Action: "test", Success: true})
	})

	t.Run("open is idempotent", func(t *testing.T) {
		require.NoError(t, Open())
		require.NoError(t, Open())
		Close()
	})
}

func TestBuilder(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())

	Event("nav:push", "push").
		Plugin("greeting").
		Target("greeting/form").
		Detail("depth", 1).
		Write(nil)

	Event("command:execute", "execute").
		Target("cmd_docs_open").
		Write(errors.New("boom"))

	db := openDB(t)

	var target, detail string
	var success int
	err := db.QueryRow("SELECT target, detail, success FROM log WHERE source = 'nav:push'").
		Scan(&target, &detail, &success)
	require.NoError(t, err)
	assert.Equal(t, "greeting/form", target)
	assert.Contains(t, detail, `"depth":1`)
	assert.Equal(t, 1, success)

	var errMsg string
	var plugin sql.NullString
	err = db.QueryRow("SELECT error, plugin, success FROM log WHERE source = 'command:execute'").
		Scan(&errMsg, &plugin, &success)
	require.NoError(t, err)
	assert.Equal(t, "boom", errMsg)
	assert.False(t, plugin.Valid, "empty plugin is stored as NULL")
	assert.Equal(t, 0, success)
}

func TestHash(t *testing.T) {
	h1 := hash("/home/user/.vela")
	h2 := hash("/home/user/.vela")
	h3 := hash("/home/other/.vela")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16, "BLAKE2b-64 should produce 16 hex chars")
}

func TestDBPath(t *testing.T) {
	orig := dbPathFunc
	dbPathFunc = defaultDBPath
	defer func() { dbPathFunc = orig }()

	t.Setenv("VELA_DATA_DIR", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".vela", "log", "vela-log.db"), DBPath())

	t.Setenv("VELA_DATA_DIR", "/srv/vela")
	assert.Equal(t, filepath.Join("/srv/vela", "log", "vela-log.db"), DBPath())

	SetDir("/opt/vela")
	defer SetDir("")
	assert.Equal(t, filepath.Join("/opt/vela", "log", "vela-log.db"), DBPath())
}

func TestQuery(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())
	ctx := context.Background()

	Event("plugin:disable", "disable").Plugin("calculator").Write(nil)
	Event("plugin:enable", "enable").Plugin("calculator").Write(errors.New("load failed"))
	Event("nav:push", "push").Plugin("greeting").Target("greeting/form").Detail("depth", 1).Write(nil)

	t.Run("newest first", func(t *testing.T) {
		all, err := Query(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "nav:push", all[0].Source)
		assert.Equal(t, "plugin:disable", all[2].Source)
		assert.Equal(t, "greeting/form", all[0].Target)
		assert.EqualValues(t, 1, all[0].Detail["depth"])
		assert.False(t, all[0].Start.After(all[0].End))
	})

	t.Run("source prefix", func(t *testing.T) {
		got, err := Query(ctx, Filter{Source: "plugin:"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("failed only", func(t *testing.T) {
		got, err := Query(ctx, Filter{Failed: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "load failed", got[0].Error)
		assert.False(t, got[0].Success)
	})

	t.Run("plugin and limit", func(t *testing.T) {
		got, err := Query(ctx, Filter{Plugin: "calculator", Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "plugin:enable", got[0].Source)
	})

	t.Run("count ignores limit", func(t *testing.T) {
		n, err := Count(ctx, Filter{Plugin: "calculator", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("future since matches nothing", func(t *testing.T) {
		got, err := Query(ctx, Filter{Since: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPrune(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	Log(Entry{Source: "cli:search", Action: "select", Start: old, End: old, Success: true})
	Event("cli:search", "select").Write(nil)

	cutoff := time.Now().Add(-24 * time.Hour)
	n, err := Count(ctx, Filter{Before: cutoff})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pruned, err := Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	left, err := Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestClosed(t *testing.T) {
	Close()
	ctx := context.Background()

	_, err := Query(ctx, Filter{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = Count(ctx, Filter{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = Prune(ctx, time.Now())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSchemaUpgrade(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())
	Close()
	require.NoError(t, Open(), "reopening an up to date log")

	var version int
	var dirty bool
	require.NoError(t, openDB(t).QueryRow("SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty))
	assert.Equal(t, 1, version)
	assert.False(t, dirty)
}
