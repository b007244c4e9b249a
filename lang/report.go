package lang

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// ReportOptions controls the presentation of [Report].
type ReportOptions struct {
	// Color enables ANSI colors regardless of the terminal type.
	Color bool
}

// Location is a human-oriented position in a document.
type Location struct {
	// Text is the full source line containing the position, without its
	// line terminator.
	Text string
	// Line and Column are 1-based; Column counts runes.
	Line   int
	Column int
	// Prefix is the byte length of Text before the position.
	Prefix int
}

// Locate converts a byte offset of source into a line and column.
// Offsets past the end of source are clamped.
func Locate(source string, offset int) Location {
	offset = max(0, min(offset, len(source)))

	start := strings.LastIndexByte(source[:offset], '\n') + 1

	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}

	return Location{
		Text:   strings.TrimSuffix(source[start:end], "\r"),
		Line:   strings.Count(source[:start], "\n") + 1,
		Column: utf8.RuneCountInString(source[start:offset]) + 1,
		Prefix: offset - start,
	}
}

// Report writes a diagnostic for err, pointing into source when err carries
// an offset:
//
//	index.nim:3:7: reference error: undefined function foo
//	   3 | <!--{ foo(); }-->
//	     |       ^
func Report(w io.Writer, err error, source string, opts ReportOptions) error {
	paint := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}

		return c
	}

	var (
		bold   = paint(color.Bold)
		red    = paint(color.FgRed, color.Bold)
		gutter = paint(color.FgCyan)
		caret  = paint(color.FgGreen, color.Bold)
	)

	var ee *Error
	if !errors.As(err, &ee) {
		_, werr := red.Fprintf(w, "error: %v\n", err)

		return werr
	}

	head := ee.FileID()
	if head == "" {
		head = "<input>"
	}

	var loc Location
	if ee.Offset() >= 0 {
		loc = Locate(source, ee.Offset())
		head += ":" + strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.Column)
	}

	msg := ee.Message()
	if d := ee.Detail(); d != "" {
		msg += ": " + d
	}

	if cause := ee.Unwrap(); cause != nil {
		msg += ": " + cause.Error()
	}

	var sb strings.Builder

	sb.WriteString(bold.Sprint(head+":") + " " + red.Sprint(msg) + "\n")

	if ee.Offset() >= 0 {
		num := strconv.Itoa(loc.Line)
		blank := strings.Repeat(" ", len(num))

		sb.WriteString(gutter.Sprintf(" %s | ", num) + loc.Text + "\n")
		sb.WriteString(gutter.Sprintf(" %s | ", blank) +
			padding(loc.Text[:loc.Prefix]) + caret.Sprint("^") + "\n")
	}

	_, werr := fmt.Fprint(w, sb.String())

	return werr
}

// padding returns blank space occupying the same display cells as s.
// Tabs are kept so that the caret aligns under any tab width.
func padding(s string) string {
	var sb strings.Builder

	for _, r := range s {
		if r == '\t' {
			sb.WriteRune('\t')

			continue
		}

		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}

	return sb.String()
}
