package cmd

import (
	"context"
	"os"

	"fortio.org/safecast"
	"golang.org/x/term"

	"github.com/raumaankidwai/nim/cli/cmd/repl"
	"github.com/raumaankidwai/nim/log"
	"github.com/raumaankidwai/nim/pkg"
)

// Repl starts an interactive session.
type Repl struct {
	NoHistory bool `help:"Do not load or save input history."`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	fd, err := safecast.Conv[int](os.Stdin.Fd())
	if err != nil || !term.IsTerminal(fd) {
		return repl.ErrNoTerminal
	}

	dir := cacheDir(ctx)
	if r.NoHistory {
		dir = ""
	}

	session := engineFrom(ctx).NewSession("<repl>")

	return repl.Run(ctx, session, dir, log.Default())
}

// cacheDir returns the cache directory configured for the command line, or
// the default one.
func cacheDir(ctx context.Context) string {
	if ktx := kongContextFrom(ctx); ktx != nil {
		if dir, ok := ktx.Model.Vars()[CacheIdentifier]; ok {
			return dir
		}
	}

	return pkg.CacheDir()
}
