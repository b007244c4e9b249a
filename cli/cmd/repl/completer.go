package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/raumaankidwai/nim/lang"
)

// commandPrefix introduces a REPL command such as ":help".
const commandPrefix = ":"

// commands are the available REPL commands, without the prefix.
var commands = []string{"help", "vars", "funcs", "reset", "clear", "quit"}

// isWordBoundary reports whether r delimits words for completion. '$' is
// not a boundary so that variable references complete as a whole.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n',
		'(', ')', '{', '}', ',', ';',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!', '"', '\'':
		return true
	}

	return false
}

// wordBounds returns the word at the cursor position and its byte
// boundaries within input. Returns an empty word when the cursor sits on a
// boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = max(0, min(cursor, len(input)))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// candidates returns the completion candidates for word: commands when the
// word is a command, variables when it is a reference, and keywords and
// functions otherwise.
func candidates(env *lang.Environment, word string) []string {
	switch {
	case strings.HasPrefix(word, commandPrefix):
		out := make([]string, len(commands))
		for i, c := range commands {
			out[i] = commandPrefix + c
		}

		return out

	case strings.HasPrefix(word, "$"):
		var out []string
		for name := range env.Variables() {
			out = append(out, "$"+name)
		}

		return out
	}

	out := slices.Clone(lang.Keywords())
	for f := range env.Functions() {
		out = append(out, f.Name)
	}

	return out
}

// complete returns the fuzzy matches for the word at the cursor, ranked
// best first, with the word boundaries. An empty word has no matches.
func complete(
	env *lang.Environment,
	input string,
	cursor int,
) (matches fuzzy.Matches, start, end int) {
	word, start, end := wordBounds(input, cursor)
	if word == "" || word == "$" || word == commandPrefix {
		return nil, start, end
	}

	// Commands are only meaningful at the start of the line.
	if strings.HasPrefix(word, commandPrefix) && start != 0 {
		return nil, start, end
	}

	return fuzzy.Find(word, candidates(env, word)), start, end
}

// isFunction reports whether name is a function of env.
func isFunction(env *lang.Environment, name string) bool {
	_, ok := env.Function(name)

	return ok
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. The selected candidate (when tabbing)
// uses the selected style.
func renderCandidateBar(
	env *lang.Environment,
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		selected := tabActive && i == suggIdx
		rendered := renderCandidate(match, selected, isFunction(env, match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Functions are displayed with a "()" suffix.
func renderCandidate(match fuzzy.Match, selected, function bool) string {
	baseStyle := suggestionStyle
	highlightStyle := matchStyle

	if selected {
		baseStyle = selectedStyle
		highlightStyle = selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if function {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}
