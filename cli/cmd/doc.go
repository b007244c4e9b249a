// Package cmd implements the nim subcommands: render, serve, fmt, init,
// repl and version.
//
// Commands receive their engine, I/O streams and parsed command line through
// the context; see [WithEngine], [WithStreams] and [WithContext].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file written by init.
	ConfigIdentifier = "config"
)
