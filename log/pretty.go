package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	keyColor   = color.New(color.FgHiBlack)
	textColor  = color.New(color.FgCyan)
	numColor   = color.New(color.FgYellow)
	trueColor  = color.New(color.FgGreen)
	falseColor = color.New(color.FgRed)
	timeColor  = color.New(color.FgBlue)
	msgColor   = color.New(color.Bold)
)

func levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed, color.Bold)
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow, color.Bold)
	case l >= slog.LevelInfo:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgMagenta)
	}
}

// prettyHandler writes colorized records for humans. Colors follow
// [color.NoColor], so output to a file or pipe stays plain.
type prettyHandler struct {
	cfg    config
	opts   *slog.HandlerOptions
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func newPrettyHandler(cfg config) *prettyHandler {
	return &prettyHandler{cfg: cfg, opts: cfg.handlerOptions(), mu: new(sync.Mutex)}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Concat(h.attrs, h.qualify(attrs))

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

// qualify prefixes attribute keys with the open groups.
func (h *prettyHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}

	prefix := strings.Join(h.groups, ".") + "."
	out := make([]slog.Attr, len(attrs))

	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}

	return out
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs()+4)

	if !r.Time.IsZero() {
		if ts := h.cfg.formatTime(r.Time); ts != "" {
			attrs = append(attrs, slog.String(slog.TimeKey, ts))
		}
	}

	attrs = append(attrs, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			attrs = append(attrs, slog.String(slog.SourceKey,
				src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	attrs = append(attrs, slog.String(slog.MessageKey, r.Message))
	attrs = append(attrs, h.attrs...)

	var own []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)

		return true
	})

	attrs = append(attrs, h.qualify(own)...)

	var buf bytes.Buffer

	if h.cfg.format == FormatJSON {
		writeJSON(&buf, attrs)
	} else {
		writeText(&buf, attrs)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.cfg.output.Write(buf.Bytes())

	return err
}

func writeText(buf *bytes.Buffer, attrs []slog.Attr) {
	for i, a := range attrs {
		if i > 0 {
			buf.WriteByte(' ')
		}

		switch a.Key {
		case slog.LevelKey:
			l, _ := a.Value.Any().(slog.Level)
			levelColor(l).Fprintf(buf, "%-5s", strings.ToUpper(Level(l).String()))

			continue

		case slog.MessageKey:
			msgColor.Fprint(buf, a.Value.String())

			continue
		}

		keyColor.Fprint(buf, a.Key+"=")
		writeValue(buf, a.Value.Resolve(), false)
	}

	buf.WriteByte('\n')
}

func writeJSON(buf *bytes.Buffer, attrs []slog.Attr) {
	buf.WriteString("{\n")

	for i, a := range attrs {
		if i > 0 {
			buf.WriteString(",\n")
		}

		buf.WriteString("  ")
		keyColor.Fprint(buf, strconv.Quote(a.Key))
		buf.WriteString(": ")

		if l, ok := a.Value.Any().(slog.Level); ok && a.Key == slog.LevelKey {
			levelColor(l).Fprint(buf, strconv.Quote(strings.ToUpper(Level(l).String())))

			continue
		}

		writeValue(buf, a.Value.Resolve(), true)
	}

	buf.WriteString("\n}\n")
}

func writeValue(buf *bytes.Buffer, v slog.Value, quote bool) {
	str := func(s string) string {
		if quote {
			return strconv.Quote(s)
		}

		return s
	}

	switch v.Kind() {
	case slog.KindString:
		textColor.Fprint(buf, str(v.String()))

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		numColor.Fprint(buf, v.String())

	case slog.KindBool:
		if v.Bool() {
			trueColor.Fprint(buf, "true")
		} else {
			falseColor.Fprint(buf, "false")
		}

	case slog.KindDuration:
		numColor.Fprint(buf, str(v.Duration().String()))

	case slog.KindTime:
		timeColor.Fprint(buf, str(v.Time().String()))

	case slog.KindGroup:
		group := v.Group()
		fields := make([]string, len(group))

		for i, a := range group {
			fields[i] = fmt.Sprintf("%s=%s", a.Key, a.Value.Resolve())
		}

		textColor.Fprint(buf, str("{"+strings.Join(fields, " ")+"}"))

	default:
		if quote {
			if b, err := json.Marshal(v.Any()); err == nil {
				textColor.Fprint(buf, string(b))

				return
			}
		}

		textColor.Fprint(buf, str(fmt.Sprint(v.Any())))
	}
}
