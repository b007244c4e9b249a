package cmd

import (
	"context"
	"log/slog"

	"github.com/raumaankidwai/nim/lang"
)

// Fmt compiles a template without evaluating it and dumps the result in the
// chosen format.
type Fmt struct {
	Tree    Tree    `cmd:"" default:"withargs" help:"Dump as an indented tree (default)."`
	JSON    JSON    `cmd:""                    help:"Dump as JSON."`
	YAML    YAML    `cmd:""                    help:"Dump as YAML."`
	Msgpack Msgpack `cmd:""                    help:"Dump as MessagePack."`
}

// template is the positional source argument shared by the fmt commands.
type template struct {
	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source" type:"existingfile"`
}

// compile reads and compiles the template. Compile errors are reported to
// stderr and returned wrapped in [ErrFormat].
func (t template) compile(ctx context.Context, format string) (*lang.Document, error) {
	id := fileID(t.Source)

	src, err := readSource(ctx, t.Source)
	if err != nil {
		return nil, err
	}

	doc, err := engineFrom(ctx).Compile(ctx, src, id)
	if err != nil {
		streams := streamsFrom(ctx)
		_ = lang.Report(streams.Stderr, err, src, lang.ReportOptions{
			Color: useColor("auto", streams.Stderr),
		})

		return nil, ErrFormat.
			With(slog.String("file", id), slog.String("format", format)).
			Wrap(err)
	}

	return doc, nil
}

// Tree dumps the compiled template as an indented tree.
type Tree struct {
	template

	Indent int `default:"2" help:"Indent width." short:"i"`
}

// Run executes the tree command.
func (f *Tree) Run(ctx context.Context) error {
	doc, err := f.compile(ctx, "tree")
	if err != nil {
		return err
	}

	return doc.Print(streamsFrom(ctx).Stdout, f.Indent)
}

// JSON dumps the compiled template as JSON.
type JSON struct {
	template

	Indent int `default:"2" help:"Indent width for JSON output (0 for compact)." short:"i"`
}

// Run executes the json command.
func (f *JSON) Run(ctx context.Context) error {
	doc, err := f.compile(ctx, "json")
	if err != nil {
		return err
	}

	return doc.FormatJSON(ctx, streamsFrom(ctx).Stdout, f.Indent)
}

// YAML dumps the compiled template as YAML.
type YAML struct {
	template

	Indent int `default:"2" help:"Indent width for YAML output." short:"i"`
}

// Run executes the yaml command.
func (f *YAML) Run(ctx context.Context) error {
	doc, err := f.compile(ctx, "yaml")
	if err != nil {
		return err
	}

	return doc.FormatYAML(ctx, streamsFrom(ctx).Stdout, f.Indent)
}

// Msgpack dumps the compiled template as MessagePack.
type Msgpack struct {
	template
}

// Run executes the msgpack command.
func (f *Msgpack) Run(ctx context.Context) error {
	doc, err := f.compile(ctx, "msgpack")
	if err != nil {
		return err
	}

	return doc.FormatMsgpack(ctx, streamsFrom(ctx).Stdout)
}
