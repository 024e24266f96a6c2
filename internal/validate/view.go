// view.go implements view path validation and normalisation.
//
// Separated from plugin.go because a view path is hierarchical: the first
// segment is a plugin id and the rest names a view inside that plugin.

package validate

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// MaxViewPath bounds the length of a view path.
const MaxViewPath = 256

// ViewPath validates a view path and returns the normalised form.
//
// Validation rules:
//   - Backslashes become forward slashes, leading and trailing slashes
//     are dropped and the path is cleaned ("/greeting//form/" -> "greeting/form")
//   - The plugin segment must pass PluginID
//   - A non-empty view name is required after the plugin segment
//   - ".." segments are rejected ("greeting/../x")
//   - Null bytes and paths over MaxViewPath are rejected
func ViewPath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: null byte", ErrInvalidView)
	}
	if len(p) > MaxViewPath {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidView, MaxViewPath)
	}

	p = strings.ReplaceAll(p, `\`, "/")
	if slices.Contains(strings.Split(p, "/"), "..") {
		return "", fmt.Errorf("%w: %q climbs out of its plugin", ErrInvalidView, p)
	}
	p = strings.Trim(path.Clean("/"+p), "/")

	id, view, ok := strings.Cut(p, "/")
	if !ok || view == "" {
		return "", fmt.Errorf("%w: %q is not plugin/view", ErrInvalidView, p)
	}
	if err := PluginID(id); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidView, err)
	}
	return p, nil
}
