// scan.go finds installed applications.
//
// Separated from provider.go because scanning is slow, platform-specific
// and runs only on refresh, while the provider answers every keystroke from
// the cached list.
//
// Design: three shapes are recognised. Freedesktop .desktop entries, macOS
// .app bundles (not descended into) and plain executables or Windows
// shortcuts. Directories are walked concurrently with fastwalk, so the
// callback only collects and the list is sorted afterwards.
package apps

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"golang.org/x/crypto/blake2b"
)

// IDPrefix starts every application object id.
const IDPrefix = "app_"

// Kinds of application entries.
const (
	KindDesktop    = "desktop"
	KindBundle     = "bundle"
	KindExecutable = "executable"
	KindShortcut   = "shortcut"
)

// App is one launchable application.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Exec string `json:"exec,omitempty"`
	Icon string `json:"icon,omitempty"`
	Kind string `json:"kind"`
}

// AppID derives the stable object id of the application at path.
func AppID(path string) string {
	sum := blake2b.Sum256([]byte(path))
	return IDPrefix + hex.EncodeToString(sum[:8])
}

// Scan walks dirs and returns every application found, sorted by name.
// Missing directories are skipped; the first other walk error is returned
// alongside whatever was found.
func Scan(ctx context.Context, dirs []string) ([]App, error) {
	var (
		mu    sync.Mutex
		found = make(map[string]App)
		first error
	)
	add := func(a App) {
		mu.Lock()
		defer mu.Unlock()
		if _, dup := found[a.Path]; !dup {
			found[a.Path] = a
		}
	}

	conf := fastwalk.Config{Follow: false}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasSuffix(d.Name(), ".app") {
					add(bundle(p))
					return fs.SkipDir
				}
				return nil
			}
			if a, ok := entry(p, d); ok {
				add(a)
			}
			return nil
		})
		if err != nil && first == nil {
			first = err
		}
	}

	out := make([]App, 0, len(found))
	for _, a := range found {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out, first
}

func bundle(p string) App {
	return App{
		ID:   AppID(p),
		Name: strings.TrimSuffix(filepath.Base(p), ".app"),
		Path: p,
		Kind: KindBundle,
	}
}

// entry classifies a non-directory.
func entry(p string, d fs.DirEntry) (App, bool) {
	name := d.Name()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".desktop":
		return desktop(p)
	case ".lnk", ".exe":
		return App{
			ID:   AppID(p),
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: p,
			Kind: KindShortcut,
		}, true
	}
	if !d.Type().IsRegular() {
		return App{}, false
	}
	info, err := d.Info()
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		return App{}, false
	}
	return App{ID: AppID(p), Name: name, Path: p, Exec: p, Kind: KindExecutable}, true
}

// desktop reads the [Desktop Entry] group of a freedesktop entry. Hidden
// entries and entries without a name are ignored.
func desktop(p string) (App, bool) {
	f, err := os.Open(p)
	if err != nil {
		return App{}, false
	}
	defer f.Close()

	a := App{ID: AppID(p), Path: p, Kind: KindDesktop}
	inEntry := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			a.Name = strings.TrimSpace(value)
		case "Exec":
			a.Exec = strings.TrimSpace(value)
		case "Icon":
			a.Icon = strings.TrimSpace(value)
		case "NoDisplay", "Hidden":
			if strings.EqualFold(strings.TrimSpace(value), "true") {
				return App{}, false
			}
		case "Type":
			if strings.TrimSpace(value) != "Application" {
				return App{}, false
			}
		}
	}
	if a.Name == "" {
		return App{}, false
	}
	return a, true
}
