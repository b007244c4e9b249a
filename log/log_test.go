package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("invalid JSON %q: %v", b, err)
	}

	return m
}

func TestLogger_Make_Defaults(t *testing.T) {
	t.Parallel()

	logger := Make(nil)

	if logger.Level() != LevelInfo {
		t.Errorf("level = %v, want info", logger.Level())
	}

	if logger.Format() != FormatJSON {
		t.Errorf("format = %v, want json", logger.Format())
	}

	if logger.caller || !logger.pretty {
		t.Errorf("caller = %v, pretty = %v", logger.caller, logger.pretty)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		log    func(Logger, string, ...slog.Attr)
		min    Level
		logged bool
	}{
		{"trace at trace", Logger.Trace, LevelTrace, true},
		{"trace at debug", Logger.Trace, LevelDebug, false},
		{"debug at debug", Logger.Debug, LevelDebug, true},
		{"debug at info", Logger.Debug, LevelInfo, false},
		{"info at info", Logger.Info, LevelInfo, true},
		{"warn at error", Logger.Warn, LevelError, false},
		{"error at warn", Logger.Error, LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := Make(&buf, WithLevel(tt.min), WithPretty(false))
			tt.log(logger, "message")

			if got := buf.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v: %s", got, tt.logged, buf.String())
			}
		})
	}
}

func TestLogger_TraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithLevel(LevelTrace), WithPretty(false)).
		TraceContext(context.Background(), "deep")

	if m := decode(t, buf.Bytes()); m["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", m["level"])
	}
}

func TestLogger_Formats(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		Make(&buf, WithFormat(FormatJSON), WithPretty(false)).
			Info("hello", slog.String("key", "value"), slog.Int("n", 3))

		m := decode(t, buf.Bytes())
		if m["msg"] != "hello" || m["key"] != "value" || m["n"] != float64(3) {
			t.Errorf("record = %v", m)
		}
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		Make(&buf, WithFormat(FormatText), WithPretty(false)).
			Info("hello", slog.String("key", "value"))

		if out := buf.String(); !strings.Contains(out, "msg=hello") ||
			!strings.Contains(out, "key=value") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestLogger_Pretty(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		Make(&buf, WithFormat(FormatText), WithTimeLayout("none")).
			With(slog.String("file", "a.nim")).
			Warn("slow render", slog.Int("ms", 250), slog.Bool("cached", false))

		out := buf.String()
		for _, want := range []string{"WARN", "slow render", "file=", "a.nim", "ms=", "250", "false"} {
			if !strings.Contains(out, want) {
				t.Errorf("output %q missing %q", out, want)
			}
		}

		if strings.Count(out, "\n") != 1 {
			t.Errorf("text record spans lines: %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		Make(&buf, WithFormat(FormatJSON), WithTimeLayout("none")).
			Info("done", slog.String("file", "a.nim"))

		out := buf.String()
		if !strings.HasPrefix(out, "{\n") || !strings.HasSuffix(out, "}\n") {
			t.Errorf("output is not an indented object: %q", out)
		}

		if !strings.Contains(out, `"done"`) || !strings.Contains(out, `"a.nim"`) {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := Make(&buf, WithFormat(FormatText), WithTimeLayout("none"))
		slog.New(logger.Handler().WithGroup("req")).Info("x", slog.String("id", "7"))

		if !strings.Contains(buf.String(), "req.id=") {
			t.Errorf("group not applied: %q", buf.String())
		}
	})
}

func TestLogger_Caller(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithCaller(true), WithPretty(false)).Info("here")

	m := decode(t, buf.Bytes())

	src, ok := m["source"].(map[string]any)
	if !ok {
		t.Fatalf("no source in %v", m)
	}

	if file, _ := src["file"].(string); !strings.HasSuffix(file, "log_test.go") {
		t.Errorf("source file = %v, want log_test.go", src["file"])
	}

	buf.Reset()
	Make(&buf, WithPretty(false)).Info("here")

	if _, ok := decode(t, buf.Bytes())["source"]; ok {
		t.Error("source included when disabled")
	}
}

func TestLogger_WrapAndWith(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer

	base := Make(&first, WithPretty(false)).With(slog.String("component", "engine"))
	wrapped := base.Wrap(WithOutput(&second), WithLevel(LevelDebug))

	if base.Level() != LevelInfo || wrapped.Level() != LevelDebug {
		t.Errorf("levels = %v, %v", base.Level(), wrapped.Level())
	}

	base.Debug("hidden")
	wrapped.Debug("shown")

	if first.Len() != 0 {
		t.Errorf("base logged below its level: %s", first.String())
	}

	if m := decode(t, second.Bytes()); m["msg"] != "shown" {
		t.Errorf("wrapped record = %v", m)
	}

	base.Info("tagged")

	if m := decode(t, first.Bytes()); m["component"] != "engine" {
		t.Errorf("With attribute missing: %v", m)
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	t.Parallel()

	var logger Logger

	logger.Info("ignored")
	logger.ErrorContext(context.Background(), "ignored")

	if logger.With(slog.Int("a", 1)).Logger != nil {
		t.Error("With on zero logger allocated a handler")
	}

	if logger.Level() != DefaultLevel || logger.Format() != DefaultFormat {
		t.Error("zero logger does not report defaults")
	}

	if logger.Enabled(context.Background(), LevelError) {
		t.Error("zero logger reports enabled")
	}
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()

	var (
		buf bytes.Buffer
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	logger := Make(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	}), WithFormat(FormatText), WithTimeLayout("none"))

	for range 20 {
		wg.Go(func() { logger.Info("line") })
	}

	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Errorf("got %d lines, want 20", n)
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func BenchmarkLogger_Info(b *testing.B) {
	logger := Make(nil, WithPretty(false))

	for b.Loop() {
		logger.Info("benchmark", slog.Int("n", 1))
	}
}

func BenchmarkLogger_Pretty(b *testing.B) {
	logger := Make(nil, WithFormat(FormatText))

	for b.Loop() {
		logger.Info("benchmark", slog.Int("n", 1))
	}
}

func BenchmarkLogger_Disabled(b *testing.B) {
	logger := Make(nil, WithLevel(LevelError))

	for b.Loop() {
		logger.TraceContext(context.Background(), "benchmark", slog.Int("n", 1))
	}
}
