// flags.go defines constants for all CLI flag names.
//
// Using constants instead of string literals prevents typos and enables
// compile-time checking when flag names are used in both Flags().Type()
// definitions and GetType() calls. Built-in plugins that add CLI commands
// use the same constants.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "no-watch" -> FlagNoWatch).

package extension

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagAll    = "all"     // Include disabled plugins / hidden actions
	FlagCopy   = "copy"    // Copy the result to the clipboard
	FlagDryRun = "dry-run" // Preview without changing anything
	FlagFailed = "failed"  // Only failed operations
	FlagForce  = "force"   // Replace existing
	FlagLocal  = "local"   // Use local scope
	FlagLong   = "long"    // Long listing with extra columns
	FlagRaw    = "raw"     // Raw output without formatting
	FlagWatch  = "watch"   // Watch the extensions directory

	// String flags

	FlagAddr      = "addr"       // Listen address
	FlagArg       = "arg"        // Command argument (key=value)
	FlagContext   = "context"    // Action context
	FlagOlderThan = "older-than" // Duration filter (e.g., 30d)
	FlagPick      = "pick"       // Result to activate (id or position)
	FlagPlugin    = "plugin"     // Plugin id filter
	FlagScope     = "scope"      // Usage scope (app or ext)
	FlagSince     = "since"      // Duration window (e.g., 2h, 7d)
	FlagSource    = "source"     // Audit source prefix (e.g., plugin:)

	// Integer flags

	FlagLimit = "limit" // Limit number of results
)
