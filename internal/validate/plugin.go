// plugin.go implements plugin id validation.
//
// Design: the id doubles as the plugin's directory name, and uninstall
// removes that directory. Anything that could resolve outside the
// extensions directory is rejected. The stricter naming rules for new
// plugins live with the manifest.

package validate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PluginID validates a plugin id.
//
// Validation rules:
//   - Empty, "." and ids containing ".." rejected
//   - Path separators of either platform rejected
//   - Null bytes rejected
func PluginID(id string) error {
	switch {
	case id == "" || id == ".":
		return fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: null byte", ErrInvalidPluginID)
	case strings.Contains(id, ".."), strings.ContainsAny(id, `/\`), filepath.Base(id) != id:
		return fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	}
	return nil
}
