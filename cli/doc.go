// Package cli contains the command line interface for nim.
//
// # Usage
//
//	nim [flags] [render] FILE...        render templates to stdout
//	nim serve --root site --addr :8080  serve a directory over HTTP
//	nim fmt {tree,json,yaml,msgpack} FILE
//	nim repl                            interactive session
//	nim init                            write the current flags to config.yaml
//	nim version
//
// # Configuration Files
//
// Flag defaults are read from the user configuration directory, for example
// ~/.config/nim/. The files config.json, config.toml, config.yml and
// config.yaml are resolved in that order, later files taking precedence;
// command-line flags override them all. Nested tables flatten to hyphenated
// flag names, so these are equivalent:
//
//	log-level: debug
//
//	log:
//	  level: debug
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, kitchen, none, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// Engine tracing (cache hits, render timing) is logged at trace level.
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
// Flags:
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/nim/pprof)
package cli
