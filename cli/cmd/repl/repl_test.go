package repl

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/raumaankidwai/nim/lang"
	"github.com/raumaankidwai/nim/log"
)

func testModel(t *testing.T, history ...string) model {
	t.Helper()

	h := NewHistory("")
	for _, line := range history {
		if err := h.Add(line); err != nil {
			t.Fatal(err)
		}
	}

	session := lang.New().NewSession("<repl>")

	return newModel(t.Context(), session, h, log.Logger{})
}

func TestModel_run(t *testing.T) {
	t.Parallel()

	m := testModel(t)

	out := m.run("$x = 6 * 7")
	if out.err != "" || out.value.String() != "42" || out.emitted != "" {
		t.Errorf("assignment = %+v", out)
	}

	out = m.run(`print("hi")`)
	if out.emitted != "hi" || out.value.String() != `"hi"` {
		t.Errorf("print = %+v", out)
	}

	out = m.run("$x = 1; nope()")
	if !strings.Contains(out.err, "undefined function nope") {
		t.Errorf("error = %q", out.err)
	}

	// The failed line left the bindings alone.
	if out = m.run("$x"); out.value.String() != "42" {
		t.Errorf("$x after error = %+v", out)
	}

	lines := m.run(`print("a"); 1`).lines()
	if len(lines) != 2 || !strings.Contains(lines[0], "a") || !strings.Contains(lines[1], "1") {
		t.Errorf("lines = %q", lines)
	}
}

func TestModel_command(t *testing.T) {
	t.Parallel()

	m := testModel(t)

	if out := m.run(":vars"); !strings.Contains(out.info, "no variables") {
		t.Errorf(":vars on empty = %q", out.info)
	}

	m.run(`$name = "nim"; def "add" $a $b { $a + $b; }`)

	tests := []struct {
		input string
		check func(outcome) bool
	}{
		{":quit", func(o outcome) bool { return o.quit }},
		{":q", func(o outcome) bool { return o.quit }},
		{":exit", func(o outcome) bool { return o.quit }},
		{":clear", func(o outcome) bool { return o.clear }},
		{":help", func(o outcome) bool { return strings.Contains(o.info, ":vars") }},
		{": h ", func(o outcome) bool { return strings.Contains(o.info, ":help") }},
		{":vars", func(o outcome) bool { return strings.Contains(o.info, `$name = "nim"`) }},
		{":funcs", func(o outcome) bool {
			return strings.Contains(o.info, "add($a, $b)") &&
				strings.Contains(o.info, "print()") &&
				strings.Contains(o.info, "builtin/1")
		}},
		{":bogus", func(o outcome) bool { return strings.Contains(o.err, "unknown command :bogus") }},
	}

	for _, tt := range tests {
		if out := m.run(tt.input); !tt.check(out) {
			t.Errorf("%s = %+v", tt.input, out)
		}
	}

	m.run(":reset")

	if out := m.run(":vars"); !strings.Contains(out.info, "no variables") {
		t.Errorf(":vars after reset = %q", out.info)
	}

	if out := m.run("add(1, 2)"); !strings.Contains(out.err, "undefined function add") {
		t.Errorf("add after reset = %+v", out)
	}
}

func TestModel_executeInput(t *testing.T) {
	t.Parallel()

	m := testModel(t)

	m.input.SetValue("  $y = 1  ")

	m, cmd := m.executeInput()
	if cmd == nil {
		t.Fatal("no command returned")
	}

	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	if got := m.history.Entries(); len(got) != 1 || got[0] != "$y = 1" {
		t.Errorf("history = %q", got)
	}

	if m.historyIdx != 1 {
		t.Errorf("historyIdx = %d, want 1", m.historyIdx)
	}

	m.input.SetValue(":q")

	m, _ = m.executeInput()
	if !m.quitting || m.View() != "" {
		t.Error("quit did not stop the model")
	}

	m = testModel(t)

	if _, cmd := m.executeInput(); cmd != nil {
		t.Error("empty input produced a command")
	}
}

func typeRunes(m model, s string) model {
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})

	return m
}

func TestModel_completion(t *testing.T) {
	t.Parallel()

	m := typeRunes(testModel(t), "pri")

	if len(m.matches) != 1 || m.matches[0].Str != "print" {
		t.Fatalf("matches = %q", strs(m.matches))
	}

	// A single candidate completes immediately.
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.input.Value(); got != "print" {
		t.Errorf("tab = %q, want print", got)
	}

	m = typeRunes(testModel(t), "$a + e")
	if len(m.matches) < 2 {
		t.Fatalf("matches = %q", strs(m.matches))
	}

	first := m.matches[0].Str
	last := m.matches[len(m.matches)-1].Str

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.input.Value(); got != "$a + "+first || !m.tabActive {
		t.Errorf("tab = %q, want %q", got, "$a + "+first)
	}

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyShiftTab})

	if got := m.input.Value(); got != "$a + "+last {
		t.Errorf("shift-tab = %q, want %q", got, "$a + "+last)
	}

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.input.Value(); got != "$a + e" || m.tabActive {
		t.Errorf("esc = %q, want %q", got, "$a + e")
	}
}

func TestModel_historyMove(t *testing.T) {
	t.Parallel()

	m := testModel(t, "one", "two")

	steps := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyUp, "two"},
		{tea.KeyUp, "one"},
		{tea.KeyUp, "one"},
		{tea.KeyDown, "two"},
		{tea.KeyDown, ""},
	}

	for i, step := range steps {
		m, _ = m.handleKey(tea.KeyMsg{Type: step.key})

		if got := m.input.Value(); got != step.want {
			t.Errorf("step %d: input = %q, want %q", i, got, step.want)
		}
	}

	if m.historyIdx != m.history.Len() {
		t.Errorf("historyIdx = %d, want %d", m.historyIdx, m.history.Len())
	}
}

func TestModel_quitKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD} {
		m, cmd := testModel(t).handleKey(tea.KeyMsg{Type: key})
		if !m.quitting || cmd == nil {
			t.Errorf("%v on empty input did not quit", key)
		}
	}

	m := typeRunes(testModel(t), "$x")

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
	if m.quitting || m.input.Value() != "" {
		t.Errorf("ctrl+c with input: quitting %v, input %q", m.quitting, m.input.Value())
	}
}

func TestModel_View(t *testing.T) {
	t.Parallel()

	m := testModel(t, "old")

	if v := m.View(); !strings.Contains(v, "nim>") || !strings.Contains(v, ":help") {
		t.Errorf("idle view = %q", v)
	}

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyUp})
	if v := m.View(); !strings.Contains(v, "/1") {
		t.Errorf("history view = %q", v)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if w := next.(model).width; w != 40 {
		t.Errorf("width = %d, want 40", w)
	}
}

func TestSignature(t *testing.T) {
	t.Parallel()

	env := testEnvironment(t)

	f, ok := env.Function("compute")
	if !ok {
		t.Fatal("compute not defined")
	}

	if got := signature(f); got != "compute($a, $b)" {
		t.Errorf("signature = %q", got)
	}

	p, _ := env.Function("print")
	if got := signature(p); !strings.HasPrefix(got, "print() ") || !strings.Contains(got, "builtin/1") {
		t.Errorf("builtin signature = %q", got)
	}
}
