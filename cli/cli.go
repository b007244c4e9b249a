package cli

import (
	"context"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/raumaankidwai/nim/cli/cmd"
	"github.com/raumaankidwai/nim/lang"
	"github.com/raumaankidwai/nim/log"
	"github.com/raumaankidwai/nim/pkg"
)

// CLI is the top-level command-line interface for nim.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	NoCache bool `help:"Compile templates on every render instead of caching them."`

	Render  cmd.Render  `cmd:"" default:"withargs" help:"Render templates to standard output"`
	Serve   cmd.Serve   `cmd:""                    help:"Serve a directory of templates over HTTP"`
	Fmt     cmd.Fmt     `cmd:""                    help:"Dump the compiled form of a template"`
	Repl    cmd.Repl    `cmd:""                    help:"Start an interactive session"`
	Init    cmd.Init    `cmd:""                    help:"Initialize configuration file"`
	Version cmd.Version `cmd:""                    help:"Print version information"`
}

// Run executes the nim CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	vars := kong.Vars{
		cmd.ConfigIdentifier: configPath(baseConfig + ".yaml"),
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Apply logger flags before parsing, regardless of their position.
	cli.Log.scan(args)

	options := []kong.Option{
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		vars,
	}

	for _, file := range configFiles {
		options = append(options,
			kong.Configuration(file.load, configPath(baseConfig+file.ext)))
	}

	parser, err := kong.New(&cli, options...)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Finalize logger configuration with all parsed values, including those
	// resolved from configuration files.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	engine := lang.New(
		lang.WithLogger(log.Default()),
		lang.WithCache(!cli.NoCache),
	)

	// Stuff additional context values for use by commands. The context
	// provider bound above returns the updated ctx.
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, engine)

	log.TraceContext(ctx, "run",
		slog.String("command", ktx.Command()),
		slog.Bool("cache", !cli.NoCache))

	return ktx.Run(ctx)
}
