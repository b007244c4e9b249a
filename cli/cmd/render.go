package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/raumaankidwai/nim/lang"
	"github.com/raumaankidwai/nim/log"
)

// Render renders templates and writes the results to stdout in argument
// order.
type Render struct {
	Color string `default:"auto" enum:"auto,always,never" help:"Colorize diagnostics (${enum})."`
	Jobs  int    `default:"0"                             help:"Maximum concurrent renders (0 for one per CPU)." short:"j"`

	Files []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin." name:"file" type:"existingfile"`
}

// rendered is the outcome of rendering one file.
type rendered struct {
	id     string
	source string
	output string
	err    error
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	engine := engineFrom(ctx)
	streams := streamsFrom(ctx)

	results := make([]rendered, len(r.Files))

	var g errgroup.Group

	g.SetLimit(jobs(r.Jobs))

	for i, file := range r.Files {
		g.Go(func() error {
			res := &results[i]
			res.id = fileID(file)

			res.source, res.err = readSource(ctx, file)
			if res.err != nil {
				return res.err
			}

			res.output, res.err = engine.Render(ctx, res.source, res.id)

			return res.err
		})
	}

	// Every result is inspected below, so the first error is not needed.
	_ = g.Wait()

	color := useColor(r.Color, streams.Stderr)
	failed := 0

	for _, res := range results {
		if res.err != nil {
			failed++

			log.DebugContext(ctx, "render failed",
				slog.String("file", res.id),
				slog.Any("error", res.err))

			if werr := lang.Report(streams.Stderr, res.err, res.source,
				lang.ReportOptions{Color: color}); werr != nil {
				return werr
			}

			continue
		}

		if _, werr := io.WriteString(streams.Stdout, res.output); werr != nil {
			return werr
		}
	}

	if failed > 0 {
		return ErrRender.With(
			slog.Int("failed", failed),
			slog.Int("total", len(results)),
		)
	}

	return nil
}

// jobs returns the concurrency limit for n requested jobs.
func jobs(n int) int {
	if n > 0 {
		return n
	}

	return runtime.GOMAXPROCS(0)
}

// useColor resolves a --color mode for diagnostics written to w.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	fd, err := safecast.Conv[int](f.Fd())
	if err != nil {
		return false
	}

	return term.IsTerminal(fd)
}
