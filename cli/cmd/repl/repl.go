package repl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/raumaankidwai/nim/lang"
	"github.com/raumaankidwai/nim/log"
)

const prompt = "nim> "

func helpMessage() string {
	return `Commands:

  :help     Print this help
  :vars     List variables
  :funcs    List functions
  :reset    Discard all variables and functions
  :clear    Clear screen
  :quit     Exit REPL

Usage:
  Type statements to execute them; a missing final ';' is supplied
  Printed text and the value of the last statement are shown
  Bindings persist between lines; a failing line changes nothing
  Press Tab / Shift-Tab to cycle through completions
  Use Up/Down arrows for history navigation
  Press Ctrl+C on empty line or Ctrl+D to exit`
}

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	emittedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

// formatCommand formats the echo line with prompt and input styled.
func formatCommand(input string) string {
	return promptStyle.Render(prompt) + inputStyle.Render(input)
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	session      *lang.Session
	logger       log.Logger
	history      *History
	historyIdx   int
	matches      fuzzy.Matches // current fuzzy match results
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began
	width        int           // terminal width for ellipsization
	quitting     bool
}

// Run starts the REPL over session. History is kept in cacheDir.
func Run(
	ctx context.Context,
	session *lang.Session,
	cacheDir string,
	logger log.Logger,
	opts ...tea.ProgramOption,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(ctx, "repl start", slog.String("cache_dir", cacheDir))

	var historyPath string
	if cacheDir != "" {
		historyPath = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(historyPath)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", historyPath),
			slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()))

	m := newModel(ctx, session, history, logger)

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	session *lang.Session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    session,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(1, msg.Width-lipgloss.Width(prompt)-2)

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(m.input.Value()) == "":
		b.WriteString(hintStyle.Render("Type statements, or :help for commands"))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(
			m.session.Environment(), m.matches, m.suggIdx, m.tabActive, m.width,
		))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()))

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			// Lock in the current candidate without executing.
			m.tabActive = false
			refreshMatches(&m)

			return m, nil
		}

		return m.executeInput()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyMove(-1), nil

	case tea.KeyDown:
		return m.historyMove(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m)
		}

		return m, nil
	}

	if m.tabActive && msg.Type == tea.KeySpace {
		m.tabActive = false
	}

	var cmd tea.Cmd

	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m)

	return m, cmd
}

// cycle moves the completion selection by step, starting a tab cycle when
// none is active. A single candidate is completed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + n) % n
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word boundaries in the input with
// the given replacement text and repositions the cursor.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	newCursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(newCursor)

	m.wordEnd = newCursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
func refreshMatches(m *model) {
	if m.tabActive {
		return
	}

	m.matches, m.wordStart, m.wordEnd = complete(
		m.session.Environment(), m.input.Value(), m.input.Position(),
	)
	m.suggIdx = -1
}

// historyMove steps through history; moving past the newest entry clears
// the input.
func (m model) historyMove(step int) model {
	idx := m.historyIdx + step
	if idx < 0 {
		return m
	}

	m.tabActive = false

	line, err := m.history.Line(idx)
	if err != nil {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
	} else {
		m.historyIdx = idx
		m.input.SetValue(line)
		m.input.SetCursor(len(line))
	}

	refreshMatches(&m)

	return m
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Add(input); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not save history",
			slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	out := m.run(input)

	cmds := []tea.Cmd{tea.Println(formatCommand(input))}

	switch {
	case out.quit:
		m.quitting = true

		return m, tea.Sequence(append(cmds, tea.Quit)...)

	case out.clear:
		return m, tea.ClearScreen
	}

	for _, line := range out.lines() {
		cmds = append(cmds, tea.Println(line))
	}

	return m, tea.Sequence(cmds...)
}

// outcome is what one line of input produced.
type outcome struct {
	emitted string
	value   lang.Value
	info    string
	err     string
	quit    bool
	clear   bool
}

// lines returns the styled lines to print for o.
func (o outcome) lines() []string {
	var lines []string

	if o.emitted != "" {
		lines = append(lines, emittedStyle.Render(o.emitted))
	}

	if !o.value.IsNone() {
		lines = append(lines, resultStyle.Render("⇒ "+o.value.String())+
			" "+hintStyle.Render(o.value.Type().String()))
	}

	if o.info != "" {
		lines = append(lines, o.info)
	}

	if o.err != "" {
		lines = append(lines, errorStyle.Render(o.err))
	}

	return lines
}

// run executes one line of input: a command or a statement sequence.
func (m model) run(input string) outcome {
	ctx := m.ctxFunc()

	if name, ok := strings.CutPrefix(input, commandPrefix); ok {
		m.logger.TraceContext(ctx, "repl command", slog.String("command", name))

		return m.command(strings.TrimSpace(name))
	}

	m.logger.TraceContext(ctx, "repl exec", slog.String("input", input))

	res, err := m.session.Exec(ctx, input)
	if err != nil {
		var report bytes.Buffer

		_ = lang.Report(&report, err, input, lang.ReportOptions{})

		return outcome{err: strings.TrimRight(report.String(), "\n")}
	}

	return outcome{emitted: res.Emitted, value: res.Value}
}

func (m model) command(name string) outcome {
	switch name {
	case "q", "quit", "exit":
		return outcome{quit: true}

	case "h", "help":
		return outcome{info: helpMessage()}

	case "v", "vars":
		return outcome{info: m.listVariables()}

	case "f", "funcs":
		return outcome{info: m.listFunctions()}

	case "r", "reset":
		m.session.Reset()

		return outcome{info: hintStyle.Render("environment reset")}

	case "c", "clear":
		return outcome{clear: true}

	default:
		return outcome{err: "unknown command " + commandPrefix + name + " (try :help)"}
	}
}

func (m model) listVariables() string {
	var b strings.Builder

	for name, v := range m.session.Environment().Variables() {
		fmt.Fprintf(&b, "  $%s = %s %s\n", name, v, hintStyle.Render(v.Type().String()))
	}

	if b.Len() == 0 {
		return hintStyle.Render("no variables")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m model) listFunctions() string {
	var b strings.Builder

	for f := range m.session.Environment().Functions() {
		fmt.Fprintf(&b, "  %s\n", signature(f))
	}

	return strings.TrimRight(b.String(), "\n")
}

// signature describes a function for listings: user functions show their
// parameters, builtins their arity.
func signature(f *lang.FunctionDef) string {
	if f.IsBuiltin() {
		return f.Name + "() " + hintStyle.Render("builtin/"+strconv.Itoa(f.Arity))
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = "$" + p
	}

	return f.Name + "(" + strings.Join(params, ", ") + ")"
}
