// Package all imports every built-in vela plugin.
// Import this package to register them with the extension registry.
package all

import (
	// Built-in plugins - each registers itself via init()
	_ "github.com/jpl-au/vela/extension/calculator"
	_ "github.com/jpl-au/vela/extension/docs"
	_ "github.com/jpl-au/vela/extension/greeting"
)
