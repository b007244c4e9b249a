// Package profile provides optional runtime profiling for nim.
//
// Profiling is compiled in only with the pprof build tag:
//
//	go build -tags pprof .
//	nim --pprof-mode cpu render index.nim
//
// Without the tag every [Config] starts a no-op and [Modes] is empty, so
// callers never need to check how the binary was built.
//
// Profiles are written by [github.com/pkg/profile] to the configured
// directory, named after their mode (cpu.pprof, mem.pprof, ...), and can be
// inspected with go tool pprof. A pprof build also registers the
// net/http/pprof handlers, which nim serve exposes under /debug/pprof/.
package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`
