// Package install copies a plugin directory into the extensions directory.
//
// The source is read through os.Root, so symlinks and ".." entries can never
// reach files outside it. Files are first copied to a hidden staging
// directory next to the destination and then renamed into place, which means
// a loader running concurrently sees either the old plugin or the new one,
// never a half-copied tree.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/progress"
	"github.com/jpl-au/vela/internal/validate"
)

// manifestNames are tried in order; the first one found is used.
var manifestNames = []string{"manifest.yaml", "manifest.yml", "manifest.json"}

var (
	// ErrNoManifest is returned when the source directory has no manifest.
	ErrNoManifest = errors.New("no manifest.yaml, manifest.yml or manifest.json")
	// ErrExists is returned when the plugin is already installed and
	// Force is not set.
	ErrExists = errors.New("plugin already installed")
	// ErrBuiltIn is returned for a manifest that reuses a built-in id.
	ErrBuiltIn = errors.New("plugin id is reserved by a built-in plugin")
)

// Options configures an install.
type Options struct {
	Force  bool // Replace an installed plugin with the same id
	Hidden bool // Copy hidden files and directories
	DryRun bool // Show what would be copied without copying
}

// Result describes what was, or would be, installed.
type Result struct {
	ID       string   `json:"id"`
	Version  string   `json:"version,omitempty"`
	Dir      string   `json:"dir"`
	Files    []string `json:"files"`
	Replaced bool     `json:"replaced,omitempty"`
	DryRun   bool     `json:"dry_run,omitempty"`
}

// Run installs the plugin in src under extDir/<id>, where id comes from
// the plugin's manifest.
func Run(ctx context.Context, w io.Writer, src, extDir string, opts Options) (Result, error) {
	var result Result

	root, err := os.OpenRoot(src)
	if err != nil {
		return result, fmt.Errorf("open plugin source: %w", err)
	}
	defer root.Close()

	m, err := readManifest(root)
	if err != nil {
		return result, fmt.Errorf("%s: %w", src, err)
	}
	if err := validate.PluginID(m.ID); err != nil {
		return result, err
	}
	if extension.IsBuiltin(m.ID) {
		return result, fmt.Errorf("%w: %s", ErrBuiltIn, m.ID)
	}

	dest := filepath.Join(extDir, m.ID)
	result.ID, result.Version, result.Dir = m.ID, m.Version, dest

	if _, err := os.Stat(dest); err == nil {
		if !opts.Force {
			return result, fmt.Errorf("%w: %s (use --force to replace)", ErrExists, m.ID)
		}
		result.Replaced = true
	}

	files, err := scanRoot(root, "", opts.Hidden)
	if err != nil {
		return result, fmt.Errorf("scanning %s: %w", src, err)
	}
	result.Files = files

	if opts.DryRun {
		result.DryRun = true
		for _, rel := range files {
			fmt.Fprintf(w, "Would install: %s -> %s\n", filepath.Join(src, rel), filepath.Join(dest, rel))
		}
		return result, nil
	}

	err = progress.While("Installing "+m.ID, func() error {
		return copyInto(ctx, root, files, extDir, dest)
	})
	if err != nil {
		return result, err
	}
	fmt.Fprintf(w, "Installed %s (%d file(s)) -> %s\n", m.ID, len(files), dest)
	return result, nil
}

func readManifest(root *os.Root) (extension.Manifest, error) {
	for _, name := range manifestNames {
		data, err := root.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return extension.Manifest{}, err
		}
		return extension.ParseManifest(data)
	}
	return extension.Manifest{}, ErrNoManifest
}

// copyInto stages files under extDir and renames the staging directory to
// dest, replacing whatever was there.
func copyInto(ctx context.Context, root *os.Root, files []string, extDir, dest string) error {
	if err := os.MkdirAll(extDir, 0755); err != nil {
		return fmt.Errorf("create extensions directory: %w", err)
	}
	staging, err := os.MkdirTemp(extDir, ".install-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	out, err := os.OpenRoot(staging)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := root.ReadFile(rel)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if d := filepath.Dir(rel); d != "." {
			if err := out.MkdirAll(d, 0755); err != nil {
				return err
			}
		}
		if err := out.WriteFile(rel, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
	}

	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("remove previous install: %w", err)
	}
	return os.Rename(staging, dest)
}

// scanRoot recursively lists the regular files within an os.Root as paths
// relative to it.
func scanRoot(root *os.Root, dir string, includeHidden bool) ([]string, error) {
	path := dir
	if path == "" {
		path = "."
	}

	f, err := root.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		rel := name
		if dir != "" {
			rel = filepath.Join(dir, name)
		}

		switch {
		case entry.IsDir():
			sub, err := scanRoot(root, rel, includeHidden)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		case entry.Type().IsRegular():
			files = append(files, rel)
		}
	}
	return files, nil
}
