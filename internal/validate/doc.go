// Package validate provides input validation for vela's identifiers.
//
// This package enforces safety rules at the boundary between outside input
// (CLI arguments, MCP tool calls, HTTP requests) and the plugin manager.
// Each validation function returns nil (or the cleaned value) on success
// or a descriptive error on failure.
//
// # Validation Functions
//
// PluginID checks that a plugin id is usable as a directory name under the
// extensions directory.
// ViewPath cleans and checks a "plugin/view" path.
//
// # Error Handling
//
// All validation errors wrap one of the sentinel errors defined in errors.go
// (ErrInvalidPluginID, ErrInvalidView). Use errors.Is() for type-safe
// error checking:
//
//	if errors.Is(err, validate.ErrInvalidView) {
//	    // handle invalid view path
//	}
package validate
