package lang

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/raumaankidwai/nim/log"
)

// Code region delimiters.
const (
	RegionOpen  = "<!--{"
	RegionClose = "}-->"
)

// Region is one compiled code region.
type Region struct {
	// Source is the trimmed text between the delimiters.
	Source     string
	Statements []Statement
	// Offset is the absolute offset of Source in the document.
	Offset int
}

// Document is a compiled template: len(Plain) == len(Regions)+1, and the
// rendered output is Plain[0] + region 0 + Plain[1] + ... + Plain[k].
//
// A Document is immutable once compiled and may be rendered concurrently,
// each time with its own Environment.
type Document struct {
	FileID  string
	Plain   []string
	Regions []Region
}

// Segment splits source into its plain segments and the raw, trimmed text
// of its code regions.
func Segment(source string) ([]string, []Region, error) {
	plain := make([]string, 0, 2)
	regions := make([]Region, 0, 1)

	rest := 0

	for {
		i := strings.Index(source[rest:], RegionOpen)
		if i < 0 {
			plain = append(plain, source[rest:])

			return plain, regions, nil
		}

		open := rest + i
		plain = append(plain, source[rest:open])

		start := open + len(RegionOpen)

		j := strings.Index(source[start:], RegionClose)
		if j < 0 {
			return nil, nil, ErrStructure.
				Describef("unterminated code region").
				At(open)
		}

		end := start + j
		body := source[start:end]
		lead := strings.TrimLeftFunc(body, unicode.IsSpace)

		regions = append(regions, Region{
			Source: strings.TrimRightFunc(lead, unicode.IsSpace),
			Offset: start + len(body) - len(lead),
		})

		rest = end + len(RegionClose)
	}
}

// Compile segments source and parses each of its code regions.
func Compile(source, fileID string) (*Document, error) {
	plain, regions, err := Segment(source)
	if err != nil {
		return nil, locate(err, fileID)
	}

	for i := range regions {
		regions[i].Statements, err = Parse(regions[i].Source, regions[i].Offset)
		if err != nil {
			return nil, locate(err, fileID)
		}
	}

	return &Document{FileID: fileID, Plain: plain, Regions: regions}, nil
}

// Render evaluates every region of d in env and splices the emitted text
// between the plain segments. On failure no output is returned.
func (d *Document) Render(
	ctx context.Context,
	env *Environment,
	logger log.Logger,
) (string, error) {
	var sb strings.Builder

	sb.WriteString(d.Plain[0])

	for i, r := range d.Regions {
		res, err := Eval(ctx, env, r.Statements, logger)
		if err != nil {
			return "", locate(err, d.FileID)
		}

		sb.WriteString(res.Emitted)
		sb.WriteString(d.Plain[i+1])
	}

	return sb.String(), nil
}

// Engine renders documents. It holds no per-render state: every render gets
// a fresh Environment, so one Engine may serve any number of concurrent
// renders.
type Engine struct {
	logger   log.Logger
	clock    Clock
	builtins []*FunctionDef
	nocache  bool
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger used for engine tracing.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the time source of the epoch builtin.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithBuiltin registers an additional builtin function, replacing any
// default builtin of the same name.
func WithBuiltin(name string, arity int, fn BuiltinFunc) Option {
	return func(e *Engine) {
		e.builtins = append(e.builtins, NewBuiltin(name, arity, fn))
	}
}

// WithCache controls whether compiled documents are cached (the default).
func WithCache(enable bool) Option {
	return func(e *Engine) { e.nocache = !enable }
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := new(Engine)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewEnvironment returns a fresh environment holding the engine's builtins
// and no variables.
func (e *Engine) NewEnvironment() *Environment {
	return NewEnvironment(append(Builtins(e.clock), e.builtins...)...)
}

// Compile returns the compiled form of source, from the cache if enabled.
func (e *Engine) Compile(
	ctx context.Context,
	source, fileID string,
) (*Document, error) {
	if e.nocache {
		return Compile(source, fileID)
	}

	return compileCached(ctx, source, fileID, e.logger)
}

// Render compiles and renders source in a fresh environment.
func (e *Engine) Render(
	ctx context.Context,
	source, fileID string,
) (string, error) {
	start := time.Now()

	doc, err := e.Compile(ctx, source, fileID)
	if err != nil {
		e.logger.TraceContext(ctx, "compile failed",
			slog.String("file", fileID),
			slog.Any("error", err))

		return "", err
	}

	out, err := doc.Render(ctx, e.NewEnvironment(), e.logger)
	if err != nil {
		e.logger.TraceContext(ctx, "render failed",
			slog.String("file", fileID),
			slog.Any("error", err))

		return "", err
	}

	e.logger.TraceContext(ctx, "render complete",
		slog.String("file", fileID),
		slog.Int("regions", len(doc.Regions)),
		slog.Int("source_bytes", len(source)),
		slog.Int("output_bytes", len(out)),
		slog.Duration("elapsed", time.Since(start)))

	return out, nil
}

var defaultEngine = sync.OnceValue(func() *Engine { return New() })

// Render renders source with the default engine.
func Render(source, fileID string) (string, error) {
	return defaultEngine().Render(context.Background(), source, fileID)
}
