package lang

// Kind identifies the lexical or structural class of a [Token].
type Kind int

const (
	KindComment      Kind = iota // comment
	KindBraceOpen                // {
	KindBraceClose               // }
	KindParenOpen                // (
	KindParenClose               // )
	KindComma                    // ,
	KindStatementEnd             // ;
	KindEquals                   // =
	KindEquality                 // ==
	KindPlus                     // +
	KindMinus                    // -
	KindTimes                    // *
	KindDivide                   // /
	KindModulo                   // %
	KindIntDivide                // %/
	KindGreaterThan              // >
	KindGreaterEq                // >=
	KindLessThan                 // <
	KindLessEq                   // <=
	KindVariableSet              // variable assignment
	KindVariableGet              // variable reference
	KindNumber                   // number literal
	KindString                   // string literal
	KindBool                     // bool literal
	KindFunctionCall             // function call
	KindKeyword                  // keyword
	KindBlock                    // block
	KindGroup                    // group
)

var kindNames = [...]string{
	KindComment:      "comment",
	KindBraceOpen:    "{",
	KindBraceClose:   "}",
	KindParenOpen:    "(",
	KindParenClose:   ")",
	KindComma:        ",",
	KindStatementEnd: ";",
	KindEquals:       "=",
	KindEquality:     "==",
	KindPlus:         "+",
	KindMinus:        "-",
	KindTimes:        "*",
	KindDivide:       "/",
	KindModulo:       "%",
	KindIntDivide:    "%/",
	KindGreaterThan:  ">",
	KindGreaterEq:    ">=",
	KindLessThan:     "<",
	KindLessEq:       "<=",
	KindVariableSet:  "variable assignment",
	KindVariableGet:  "variable reference",
	KindNumber:       "number literal",
	KindString:       "string literal",
	KindBool:         "bool literal",
	KindFunctionCall: "function call",
	KindKeyword:      "keyword",
	KindBlock:        "block",
	KindGroup:        "group",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}

	return kindNames[k]
}

// IsOperator reports whether k is a binary operator.
func (k Kind) IsOperator() bool {
	return k >= KindEquality && k <= KindLessEq
}

// IsLiteral reports whether k carries a scalar [Value].
func (k Kind) IsLiteral() bool {
	return k == KindNumber || k == KindString || k == KindBool
}

// Keyword identifies a control keyword.
type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordIf
	KeywordElseIf
	KeywordElse
	KeywordDef
	KeywordFor
	KeywordWhile
)

var keywords = map[string]Keyword{
	"if":     KeywordIf,
	"elseif": KeywordElseIf,
	"else":   KeywordElse,
	"def":    KeywordDef,
	"for":    KeywordFor,
	"while":  KeywordWhile,
}

func (k Keyword) String() string {
	switch k {
	case KeywordIf:
		return "if"
	case KeywordElseIf:
		return "elseif"
	case KeywordElse:
		return "else"
	case KeywordDef:
		return "def"
	case KeywordFor:
		return "for"
	case KeywordWhile:
		return "while"
	default:
		return ""
	}
}

// Keywords returns the control keywords in declaration order.
func Keywords() []string {
	return []string{"if", "elseif", "else", "def", "for", "while"}
}

// Slot records how a Block operand is evaluated by the statement that
// contains it.
type Slot int

const (
	// SlotEager blocks are grouped expressions, evaluated before dispatch.
	SlotEager Slot = iota
	// SlotGuarded blocks are control-flow bodies, evaluated by their construct.
	SlotGuarded
)

func (s Slot) String() string {
	if s == SlotGuarded {
		return "guarded"
	}

	return "eager"
}

// Token is one lexical unit of a code region, or a structured Block or Group
// built from a balanced span of tokens.
type Token struct {
	// Value holds the scalar of a literal token.
	Value Value
	// Name holds the identifier of a variable, function call or keyword.
	Name string
	// Inner holds the flat contents of a Block or Group until it is split.
	Inner []Token
	// Body holds the statements of a Block, or the argument expressions of
	// a Group, once split.
	Body []Statement
	// Pos is the absolute byte offset of the token in its document.
	Pos     int
	Kind    Kind
	Keyword Keyword
	Slot    Slot
}

// Statement is an ordered sequence of tokens; its first token selects the
// grammar production.
type Statement []Token

// Pos returns the offset of the first token in s, or -1 if s is empty.
func (s Statement) Pos() int {
	if len(s) == 0 {
		return -1
	}

	return s[0].Pos
}

func literal(v Value, pos int) Token {
	tok := Token{Value: v, Pos: pos}

	switch v.Type() {
	case TypeNumber:
		tok.Kind = KindNumber
	case TypeBool:
		tok.Kind = KindBool
	default:
		tok.Kind = KindString
	}

	return tok
}
