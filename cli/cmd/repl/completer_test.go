package repl

import (
	"slices"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/raumaankidwai/nim/lang"
)

func TestWordBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "pri", 3, "pri", 0, 3},
		{"variable", "print($x", 8, "$x", 6, 8},
		{"after_plus", "$a + $b", 7, "$b", 5, 7},
		{"after_assign", "x=y", 3, "y", 2, 3},
		{"after_brace", "if {$a;} {pr", 12, "pr", 10, 12},
		{"after_semicolon", "$a;wh", 5, "wh", 3, 5},
		{"command", ":he", 3, ":he", 0, 3},
		{"empty_at_boundary", "$a + ", 5, "", 5, 5},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"cursor_past_end", "ab", 10, "ab", 0, 2},
		{"negative_cursor", "ab", -1, "ab", 0, 2},
		{"in_string", `print("he`, 9, "he", 7, 9},
		{"multibyte", "é + $ü", 8, "$ü", 5, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// testEnvironment returns an environment with a few variables and a user
// function defined.
func testEnvironment(t *testing.T) *lang.Environment {
	t.Helper()

	s := lang.New().NewSession("test")

	_, err := s.Exec(t.Context(), `$count = 1; $color = "red"; def "compute" $a $b { print($a + $b); }`)
	if err != nil {
		t.Fatal(err)
	}

	return s.Environment()
}

func strs(matches fuzzy.Matches) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}

	return out
}

func TestComplete(t *testing.T) {
	t.Parallel()

	env := testEnvironment(t)

	tests := []struct {
		name    string
		input   string
		cursor  int
		want    []string // must be among the matches
		exclude []string
		none    bool
	}{
		{name: "variables", input: "$co", cursor: 3, want: []string{"$count", "$color"}, exclude: []string{"compute"}},
		{name: "builtin", input: "pri", cursor: 3, want: []string{"print"}},
		{name: "user function", input: "$x + comp", cursor: 9, want: []string{"compute"}, exclude: []string{"$count"}},
		{name: "keyword", input: "whi", cursor: 3, want: []string{"while"}},
		{name: "command", input: ":he", cursor: 3, want: []string{":help"}},
		{name: "command not at start", input: "x :he", cursor: 5, none: true},
		{name: "empty word", input: "$a + ", cursor: 5, none: true},
		{name: "bare dollar", input: "$", cursor: 1, none: true},
		{name: "bare colon", input: ":", cursor: 1, none: true},
		{name: "no match", input: "zzz", cursor: 3, none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matches, _, _ := complete(env, tt.input, tt.cursor)
			got := strs(matches)

			if tt.none {
				if len(got) != 0 {
					t.Errorf("complete(%q) = %q, want none", tt.input, got)
				}

				return
			}

			for _, w := range tt.want {
				if !slices.Contains(got, w) {
					t.Errorf("complete(%q) = %q, missing %q", tt.input, got, w)
				}
			}

			for _, x := range tt.exclude {
				if slices.Contains(got, x) {
					t.Errorf("complete(%q) = %q, unexpected %q", tt.input, got, x)
				}
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	env := testEnvironment(t)

	if got := candidates(env, ":"); len(got) != len(commands) || got[0] != ":help" {
		t.Errorf("command candidates = %q", got)
	}

	vars := candidates(env, "$")
	slices.Sort(vars)

	if !slices.Equal(vars, []string{"$color", "$count"}) {
		t.Errorf("variable candidates = %q", vars)
	}

	other := candidates(env, "x")
	for _, want := range append(lang.Keywords(), "print", "epoch", "compute") {
		if !slices.Contains(other, want) {
			t.Errorf("candidates missing %q", want)
		}
	}
}

func TestIsFunction(t *testing.T) {
	t.Parallel()

	env := testEnvironment(t)

	for name, want := range map[string]bool{"print": true, "compute": true, "while": false, "$count": false} {
		if got := isFunction(env, name); got != want {
			t.Errorf("isFunction(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRenderCandidateBar(t *testing.T) {
	t.Parallel()

	env := testEnvironment(t)
	matches := fuzzy.Find("e", candidates(env, "e"))

	if len(matches) < 3 {
		t.Fatalf("too few matches: %q", strs(matches))
	}

	if bar := renderCandidateBar(env, nil, 0, false, 80); bar != "" {
		t.Errorf("bar without matches = %q", bar)
	}

	if bar := renderCandidateBar(env, matches, 0, false, 0); bar != "" {
		t.Errorf("bar without width = %q", bar)
	}

	wide := renderCandidateBar(env, matches, 1, true, 200)
	if lipgloss.Width(wide) == 0 {
		t.Fatal("empty bar")
	}

	narrow := renderCandidateBar(env, matches, 0, false, 12)
	if w := lipgloss.Width(narrow); w > lipgloss.Width(wide) {
		t.Errorf("narrow bar wider than wide bar: %d", w)
	}
}

func BenchmarkComplete(b *testing.B) {
	s := lang.New().NewSession("bench")

	for i := range 100 {
		_, _ = s.Exec(b.Context(), "$var"+string(rune('a'+i%26))+" = 1")
	}

	env := s.Environment()

	for b.Loop() {
		complete(env, "print($va", 9)
	}
}
