package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/klauspost/readahead"

	"github.com/raumaankidwai/nim/lang"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type engineKey struct{}

// WithEngine returns a new context.Context carrying the engine used by
// commands to compile and render templates.
func WithEngine(ctx context.Context, engine *lang.Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, engine)
}

// engineFrom returns the engine stored by [WithEngine], or a default engine.
func engineFrom(ctx context.Context) *lang.Engine {
	if e, ok := ctx.Value(engineKey{}).(*lang.Engine); ok && e != nil {
		return e
	}

	return lang.New()
}

// Streams are the standard I/O streams of a command.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type streamsKey struct{}

// WithStreams returns a new context.Context whose commands use the given
// streams. Nil members fall back to the process streams.
func WithStreams(ctx context.Context, s Streams) context.Context {
	return context.WithValue(ctx, streamsKey{}, s)
}

func streamsFrom(ctx context.Context) Streams {
	s, _ := ctx.Value(streamsKey{}).(Streams)

	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}

	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}

	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}

	return s
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// stdinID is the file identifier used in diagnostics for stdin.
const stdinID = "<stdin>"

// fileID returns the identifier used in diagnostics for source.
func fileID(source string) string {
	if source == stdinSource {
		return stdinID
	}

	return filepath.Clean(source)
}

// readSource reads the whole template named by source, which is a file path
// or "-" for stdin.
func readSource(ctx context.Context, source string) (string, error) {
	var r io.Reader

	fail := ErrReadSource.With(slog.String("file", fileID(source)))

	if source == stdinSource {
		r = streamsFrom(ctx).Stdin
	} else {
		file, err := os.Open(source)
		if err != nil {
			return "", fail.Wrap(err)
		}
		defer file.Close()

		r = file
	}

	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", fail.Wrap(err)
	}

	return string(data), nil
}
