// Package log provides leveled structured logging on top of [log/slog].
//
// A [Logger] is made once with functional options and derived with
// [Logger.Wrap] (new options) or [Logger.With] (extra attributes):
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"))
//
//	logger = logger.With(slog.String("file", "index.nim"))
//	logger.Info("render complete", slog.Int("regions", 3))
//
// Every method takes [slog.Attr] values rather than loose key/value pairs,
// and each level has a context-aware variant. Methods without a context use
// [DefaultContextProvider].
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-call engine
// tracing. [ParseLevel] accepts the level names and slog's offset syntax.
//
// # Output
//
// [FormatJSON] and [FormatText] select the slog handlers. With
// [WithPretty] a colorized handler renders the same records for a
// terminal; colors are disabled automatically when the output is not one.
//
// The zero Logger discards everything, so types can hold one without
// requiring callers to configure logging.
package log
