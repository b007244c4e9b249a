package lang

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanner turns the text of one code region into a flat token stream.
// Offsets are reported relative to the enclosing document.
type scanner struct {
	src  string
	pos  int
	base int
}

// Scan tokenizes a code region whose first byte sits at offset base of its
// document. Comments are dropped.
func Scan(src string, base int) ([]Token, error) {
	s := &scanner{src: src, base: base}

	toks := make([]Token, 0, len(src)/4)

	s.skipSpace()

	for !s.eof() {
		tok, ok, err := s.next()
		if err != nil {
			return nil, err
		}

		if ok {
			toks = append(toks, tok)
		}

		s.skipSpace()
	}

	return toks, nil
}

// next scans one token. It reports ok=false for comments.
func (s *scanner) next() (tok Token, ok bool, err error) {
	start := s.pos
	tok.Pos = s.base + start

	ch := s.src[s.pos]

	switch {
	case ch == '#':
		s.skipLine()

		return tok, false, nil

	case ch == '$':
		return s.scanVariable()

	case isDigit(ch):
		return s.scanNumber()

	case ch == '"' || ch == '\'':
		return s.scanString(ch)

	case isIdentStart(ch):
		return s.scanIdentifier()
	}

	s.pos++

	switch ch {
	case '{':
		tok.Kind = KindBraceOpen
	case '}':
		tok.Kind = KindBraceClose
	case '(':
		tok.Kind = KindParenOpen
	case ')':
		tok.Kind = KindParenClose
	case ',':
		tok.Kind = KindComma
	case ';':
		tok.Kind = KindStatementEnd
	case '+':
		tok.Kind = KindPlus
	case '-':
		tok.Kind = KindMinus
	case '*':
		tok.Kind = KindTimes
	case '/':
		tok.Kind = KindDivide
	case '=':
		tok.Kind = s.extend('=', KindEquals, KindEquality)
	case '%':
		tok.Kind = s.extend('/', KindModulo, KindIntDivide)
	case '>':
		tok.Kind = s.extend('=', KindGreaterThan, KindGreaterEq)
	case '<':
		tok.Kind = s.extend('=', KindLessThan, KindLessEq)
	default:
		r, _ := utf8.DecodeRuneInString(s.src[start:])

		return tok, false, ErrLex.
			Describef("invalid character %q", r).
			At(tok.Pos)
	}

	return tok, true, nil
}

// extend consumes next if it is the current byte, selecting long over short.
func (s *scanner) extend(next byte, short, long Kind) Kind {
	if s.peek() == next {
		s.pos++

		return long
	}

	return short
}

func (s *scanner) scanVariable() (Token, bool, error) {
	tok := Token{Pos: s.base + s.pos}

	s.pos++ // skip '$'

	name := s.span(isIdentPart)
	if name == "" {
		return tok, false, ErrLex.
			Describef("expected variable identifier").
			At(tok.Pos)
	}

	tok.Name = name
	tok.Kind = KindVariableGet

	// Look past whitespace without consuming it.
	i := s.pos
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}

	if i < len(s.src) && s.src[i] == '=' &&
		(i+1 >= len(s.src) || s.src[i+1] != '=') {
		tok.Kind = KindVariableSet
	}

	return tok, true, nil
}

func (s *scanner) scanNumber() (Token, bool, error) {
	start := s.pos
	tok := Token{Kind: KindNumber, Pos: s.base + start}

	if s.src[s.pos] == '0' && s.pos+1 < len(s.src) {
		follow := s.src[s.pos+1]

		if radix := radixOf(follow); radix != 0 {
			s.pos += 2

			digits := s.span(func(c byte) bool { return digitValue(c) < radix })
			if digits == "" {
				return tok, false, ErrLex.
					Describef("expected base-%d digits", radix).
					At(tok.Pos)
			}

			if s.span(isIdentPart) != "" {
				return tok, false, ErrLex.
					Describef("invalid number literal %q", s.src[start:s.pos]).
					At(tok.Pos)
			}

			n, err := strconv.ParseUint(digits, radix, 64)
			if err != nil {
				return tok, false, ErrLex.
					Describef("invalid number literal %q", s.src[start:s.pos]).
					At(tok.Pos).
					Wrap(err)
			}

			tok.Value = Number(float64(n))

			return tok, true, nil
		}

		if isLetter(follow) {
			return tok, false, ErrLex.
				Describef("expected numerical radix").
				At(tok.Pos).
				With(slog.String("radix", string(follow)))
		}
	}

	s.span(isDigit)

	if s.peek() == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]) {
		s.pos++
		s.span(isDigit)
	}

	text := s.src[start:s.pos]

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return tok, false, ErrLex.
			Describef("invalid number literal %q", text).
			At(tok.Pos).
			Wrap(err)
	}

	tok.Value = Number(f)

	return tok, true, nil
}

func (s *scanner) scanString(quote byte) (Token, bool, error) {
	tok := Token{Kind: KindString, Pos: s.base + s.pos}

	s.pos++ // skip opening quote

	var sb strings.Builder

	for !s.eof() {
		ch := s.src[s.pos]
		s.pos++

		switch ch {
		case '\\':
			if s.eof() {
				return tok, false, ErrLex.Describef("unterminated string").At(tok.Pos)
			}

			sb.WriteByte(s.src[s.pos])
			s.pos++

		case quote:
			tok.Value = String(sb.String())

			return tok, true, nil

		default:
			sb.WriteByte(ch)
		}
	}

	return tok, false, ErrLex.Describef("unterminated string").At(tok.Pos)
}

func (s *scanner) scanIdentifier() (Token, bool, error) {
	tok := Token{Pos: s.base + s.pos}

	name := s.span(isIdentPart)

	if kw, ok := keywords[name]; ok {
		tok.Kind = KindKeyword
		tok.Keyword = kw
		tok.Name = name

		return tok, true, nil
	}

	switch {
	case name == "true" || name == "false":
		tok.Kind = KindBool
		tok.Value = Bool(name == "true")

	case strings.HasPrefix(s.src[s.pos:], "()"):
		s.pos += 2
		tok.Kind = KindFunctionCall
		tok.Name = name

	case s.peek() == '(':
		// The argument list is scanned as a parenthesized group.
		tok.Kind = KindFunctionCall
		tok.Name = name

	default:
		return tok, false, ErrLex.
			Describef("invalid identifier %q", name).
			At(tok.Pos)
	}

	return tok, true, nil
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}

	return s.src[s.pos]
}

// span consumes the longest run of bytes satisfying fn and returns it.
func (s *scanner) span(fn func(byte) bool) string {
	start := s.pos
	for !s.eof() && fn(s.src[s.pos]) {
		s.pos++
	}

	return s.src[start:s.pos]
}

func (s *scanner) skipSpace() {
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) skipLine() {
	for !s.eof() && s.src[s.pos] != '\n' {
		s.pos++
	}

	if !s.eof() {
		s.pos++ // skip '\n'
	}
}

// Character classification

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' ||
		c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }

func isIdentStart(c byte) bool { return isLetter(c) || c == '_' }

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func radixOf(c byte) int {
	switch c {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	default:
		return 0
	}
}

// digitValue returns the numeric value of a hex digit, or 99 otherwise.
func digitValue(c byte) int {
	switch {
	case isDigit(c):
		return int(c - '0')
	case (c|0x20) >= 'a' && (c|0x20) <= 'f':
		return int((c|0x20)-'a') + 10
	default:
		return 99
	}
}
