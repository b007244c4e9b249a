package lang

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, src string) string {
	t.Helper()

	out, err := New(WithCache(false)).Render(context.Background(), src, "test.nim")
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}

	return out
}

func renderErr(t *testing.T, src string, want error) *Error {
	t.Helper()

	out, err := New(WithCache(false)).Render(context.Background(), src, "test.nim")
	if !errors.Is(err, want) {
		t.Fatalf("render %q: expected %v, got %v (output %q)", src, want, err, out)
	}

	if out != "" {
		t.Errorf("render %q: partial output %q on failure", src, out)
	}

	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %T", err)
	}

	if ee.FileID() != "test.nim" {
		t.Errorf("file = %q, want test.nim", ee.FileID())
	}

	return ee
}

func TestRender_Properties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "splices output between plain segments",
			input: `<p>Hi</p><!--{ print("World"); }--><p>Bye</p>`,
			want:  "<p>Hi</p>World<p>Bye</p>",
		},
		{
			name:  "variables and arithmetic",
			input: `<!--{ $x = 2; $y = 3; print($x + $y); }-->`,
			want:  "5",
		},
		{
			name:  "only the first truthy branch fires",
			input: `<!--{ if true { print("A"); } elseif true { print("B"); } else { print("C"); } }-->`,
			want:  "A",
		},
		{
			name:  "user-defined function",
			input: `<!--{ def "double" $n { $n + $n; }; $d = double(5); print($d); }-->`,
			want:  "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := render(t, tt.input); got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_NoRegions(t *testing.T) {
	t.Parallel()

	docs := []string{
		"",
		"<html><body>plain</body></html>",
		"<!-- an ordinary comment -->",
		"<!-{ almost } -->",
		"braces { and } and <!-- { spaced } -->",
		"unicode ✓ 日本語",
	}

	for _, doc := range docs {
		if got := render(t, doc); got != doc {
			t.Errorf("render(%q) = %q", doc, got)
		}
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	t.Run("undefined function", func(t *testing.T) {
		t.Parallel()

		ee := renderErr(t, `<!--{ foo(); }-->`, ErrReference)
		if ee.Detail() != "undefined function foo" {
			t.Errorf("detail = %q", ee.Detail())
		}

		if ee.Offset() != 6 {
			t.Errorf("offset = %d, want 6", ee.Offset())
		}
	})

	t.Run("arity", func(t *testing.T) {
		t.Parallel()

		ee := renderErr(t, `<!--{ print(); }-->`, ErrArity)
		if ee.Detail() != "print expects 1 argument(s), got 0" {
			t.Errorf("detail = %q", ee.Detail())
		}
	})

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"undefined variable", `<!--{ print($nope); }-->`, ErrReference},
		{"lex", `<!--{ print(@); }-->`, ErrLex},
		{"missing terminator", `<!--{ print(1) }-->`, ErrStructure},
		{"unbalanced block", `<!--{ { print(1); }-->`, ErrStructure},
		{"unterminated region", `a <!--{ print(1);`, ErrStructure},
		{"expected operator", `<!--{ 1 2; }-->`, ErrExpectedOperator},
		{"type mismatch", `<!--{ true - 1; }-->`, ErrTypeMismatch},
		{"ordered bools", `<!--{ true < false; }-->`, ErrTypeMismatch},
		{"dangling elseif", `<!--{ elseif true { 1; } }-->`, ErrDanglingElseif},
		{"dangling else", `<!--{ else { 1; } }-->`, ErrDanglingElse},
		{"else after closed chain", `<!--{ if true { 1; }; 2; else { 3; } }-->`, ErrDanglingElse},
		{"operator chain", `<!--{ 1 + 2 + 3; }-->`, ErrUnexpectedToken},
		{"missing operand", `<!--{ 1 +; }-->`, ErrUnexpectedToken},
		{"extra else token", `<!--{ if false {} else { 1; } 2; }-->`, ErrUnexpectedToken},
		{"if without body", `<!--{ if true; }-->`, ErrUnexpectedToken},
		{"def without name", `<!--{ def $a { 1; }; }-->`, ErrUnexpectedToken},
		{"non-value argument", `<!--{ print() +; }-->`, ErrUnexpectedToken},
		{"error in later region", `<!--{ 1; }--> ok <!--{ nope(); }-->`, ErrReference},
		{"user function arity", `<!--{ def "f" $a $b { 1; }; f(1); }-->`, ErrArity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			renderErr(t, tt.input, tt.want)
		})
	}
}

func TestRender_Idempotent(t *testing.T) {
	t.Parallel()

	src := `<ul><!--{ for { $i = 1; } { $i < 4; } { $i = $i + 1; } { print(("<li>" + $i) + "</li>"); } }--></ul>`
	engine := New()

	first, err := engine.Render(context.Background(), src, "list.nim")
	if err != nil {
		t.Fatalf("first render: %v", err)
	}

	second, err := engine.Render(context.Background(), src, "list.nim")
	if err != nil {
		t.Fatalf("second render: %v", err)
	}

	if first != second {
		t.Errorf("renders differ: %q vs %q", first, second)
	}

	if want := "<ul><li>1</li><li>2</li><li>3</li></ul>"; first != want {
		t.Errorf("render = %q, want %q", first, want)
	}
}

func TestRender_NoLeakBetweenRenders(t *testing.T) {
	t.Parallel()

	engine := New()
	ctx := context.Background()

	if _, err := engine.Render(ctx, `<!--{ $secret = 1; def "f" { 1; }; }-->`, "a.nim"); err != nil {
		t.Fatalf("render: %v", err)
	}

	if _, err := engine.Render(ctx, `<!--{ print($secret); }-->`, "b.nim"); !errors.Is(err, ErrReference) {
		t.Errorf("variable leaked between renders: %v", err)
	}

	if _, err := engine.Render(ctx, `<!--{ f(); }-->`, "c.nim"); !errors.Is(err, ErrReference) {
		t.Errorf("function leaked between renders: %v", err)
	}
}

func TestRender_RegionsShareEnvironment(t *testing.T) {
	t.Parallel()

	got := render(t, `<!--{ $name = "nim"; }--><h1><!--{ print($name); }--></h1>`)
	if want := "<h1>nim</h1>"; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRender_Concurrent(t *testing.T) {
	t.Parallel()

	engine := New()
	src := `<!--{ $n = 0; for { $i = 0; } { $i < 50; } { $i = $i + 1; } { print("."); }; }-->`
	want := strings.Repeat(".", 50)

	errs := make(chan error, 16)

	for range 16 {
		go func() {
			out, err := engine.Render(context.Background(), src, "dots.nim")
			if err == nil && out != want {
				err = errors.New("unexpected output " + out)
			}

			errs <- err
		}()
	}

	for range 16 {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

func TestRender_Builtins(t *testing.T) {
	t.Parallel()

	fixed := time.UnixMilli(1700000000123)

	engine := New(
		WithCache(false),
		WithClock(func() time.Time { return fixed }),
		WithBuiltin("upper", 1, func(_ context.Context, args []Value) (string, Value, error) {
			return "", String(strings.ToUpper(args[0].Text())), nil
		}),
		WithBuiltin("fail", 0, func(context.Context, []Value) (string, Value, error) {
			return "", Value{}, errors.New("boom")
		}),
	)

	out, err := engine.Render(context.Background(), `<!--{ print(epoch()); print(upper("x")); }-->`, "b.nim")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := "1700000000123X"; out != want {
		t.Errorf("render = %q, want %q", out, want)
	}

	_, err = engine.Render(context.Background(), `<!--{ fail(); }-->`, "b.nim")
	if !errors.Is(err, ErrBuiltin) {
		t.Fatalf("expected ErrBuiltin, got %v", err)
	}

	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry cause", err)
	}
}

func TestRender_EpochDefaultClock(t *testing.T) {
	t.Parallel()

	before := time.Now().UnixMilli()
	out := render(t, `<!--{ print(epoch()); }-->`)
	after := time.Now().UnixMilli()

	toks, err := Scan(out, 0)
	if err != nil || len(toks) != 1 {
		t.Fatalf("epoch output %q is not a number", out)
	}

	ms := int64(toks[0].Value.Float())
	if ms < before || ms > after {
		t.Errorf("epoch %d outside [%d, %d]", ms, before, after)
	}
}

func TestSegment(t *testing.T) {
	t.Parallel()

	src := "a<!--{  1;\n }-->b<!--{}-->c"

	plain, regions, err := Segment(src)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}

	if len(plain) != len(regions)+1 {
		t.Fatalf("%d plain segments for %d regions", len(plain), len(regions))
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if plain[i] != want[i] {
			t.Errorf("plain[%d] = %q, want %q", i, plain[i], want[i])
		}
	}

	if regions[0].Source != "1;" || regions[0].Offset != 8 {
		t.Errorf("region 0 = %q at %d", regions[0].Source, regions[0].Offset)
	}

	if regions[1].Source != "" {
		t.Errorf("region 1 = %q, want empty", regions[1].Source)
	}

	if src[regions[0].Offset:regions[0].Offset+2] != "1;" {
		t.Error("region offset does not point at its source")
	}
}

func TestCompile_ErrorOffsetsAreAbsolute(t *testing.T) {
	t.Parallel()

	src := "<h1>title</h1>\n<!--{ $x = 1;\n  print($x) @ }-->"

	_, err := Compile(src, "abs.nim")

	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %v", err)
	}

	if got := src[ee.Offset()]; got != '@' {
		t.Errorf("offset %d points at %q, want '@'", ee.Offset(), got)
	}
}

func TestRenderPackageFunction(t *testing.T) {
	t.Parallel()

	out, err := Render(`x<!--{ print(1 + 1); }-->y`, "pkg.nim")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if out != "x2y" {
		t.Errorf("render = %q, want x2y", out)
	}
}
