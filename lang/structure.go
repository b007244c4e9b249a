package lang

// Parse runs the scanner, structurer and splitter over one code region.
func Parse(src string, base int) ([]Statement, error) {
	toks, err := Scan(src, base)
	if err != nil {
		return nil, err
	}

	toks, err = Structure(toks)
	if err != nil {
		return nil, err
	}

	return Split(toks)
}

// Structure folds each balanced brace span into a Block token and each
// balanced parenthesis span into a Group token. The folded contents stay
// flat in [Token.Inner]; all other tokens keep their order.
func Structure(toks []Token) ([]Token, error) {
	out, _, err := structure(toks, 0, nil)

	return out, err
}

func structure(toks []Token, i int, open *Token) ([]Token, int, error) {
	out := make([]Token, 0, len(toks)-i)

	for i < len(toks) {
		tok := toks[i]

		switch tok.Kind {
		case KindBraceOpen, KindParenOpen:
			inner, next, err := structure(toks, i+1, &tok)
			if err != nil {
				return nil, 0, err
			}

			kind := KindBlock
			if tok.Kind == KindParenOpen {
				kind = KindGroup
			}

			out = append(out, Token{Kind: kind, Inner: inner, Pos: tok.Pos})
			i = next

			continue

		case KindBraceClose, KindParenClose:
			if open == nil || closerOf(open.Kind) != tok.Kind {
				return nil, 0, unbalanced(tok)
			}

			return out, i + 1, nil
		}

		out = append(out, tok)
		i++
	}

	if open != nil {
		return nil, 0, unbalanced(*open)
	}

	return out, i, nil
}

func closerOf(k Kind) Kind {
	if k == KindParenOpen {
		return KindParenClose
	}

	return KindBraceClose
}

func unbalanced(tok Token) error {
	if tok.Kind == KindParenOpen || tok.Kind == KindParenClose {
		return ErrStructure.Describef("unbalanced group").At(tok.Pos)
	}

	return ErrStructure.Describef("unbalanced block").At(tok.Pos)
}

// Split partitions a structured token list into statements on the statement
// terminator, after first splitting the contents of every nested Block and
// Group. Each resulting statement has its Block operands tagged with the
// [Slot] its production assigns them.
//
// A statement led by a control keyword also ends after a Block that is
// followed by another keyword or by the end of the list, so chains such as
// "if c {...} elseif d {...} else {...}" need no terminators.
func Split(toks []Token) ([]Statement, error) {
	stmts := make([]Statement, 0, 4)

	var cur Statement

	for i := range toks {
		tok, err := splitNested(toks[i])
		if err != nil {
			return nil, err
		}

		if tok.Kind == KindStatementEnd {
			stmts = append(stmts, closeStatement(cur))
			cur = nil

			continue
		}

		cur = append(cur, tok)

		if tok.Kind == KindBlock && isControl(cur[0]) &&
			(i+1 == len(toks) || toks[i+1].Kind == KindKeyword) {
			stmts = append(stmts, closeStatement(cur))
			cur = nil
		}
	}

	if len(cur) > 0 {
		return nil, ErrStructure.
			Describef("code block does not end in terminator").
			At(cur[0].Pos)
	}

	return stmts, nil
}

// splitNested returns a copy of tok with any nested contents split.
func splitNested(tok Token) (Token, error) {
	var err error

	switch tok.Kind {
	case KindBlock:
		tok.Body, err = Split(tok.Inner)
		tok.Inner = nil

	case KindGroup:
		tok.Body, err = splitArgs(tok.Inner)
		tok.Inner = nil
	}

	return tok, err
}

// splitArgs partitions the contents of a Group into comma-separated
// argument expressions.
func splitArgs(toks []Token) ([]Statement, error) {
	if len(toks) == 0 {
		return nil, nil
	}

	args := make([]Statement, 0, 2)

	var cur Statement

	for _, t := range toks {
		tok, err := splitNested(t)
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case KindStatementEnd:
			return nil, ErrStructure.
				Describef("unexpected terminator in group").
				At(tok.Pos)

		case KindComma:
			if len(cur) == 0 {
				return nil, ErrStructure.Describef("empty argument").At(tok.Pos)
			}

			args = append(args, closeStatement(cur))
			cur = nil

		default:
			cur = append(cur, tok)
		}
	}

	if len(cur) == 0 {
		return nil, ErrStructure.
			Describef("empty argument").
			At(toks[len(toks)-1].Pos)
	}

	return append(args, closeStatement(cur)), nil
}

func isControl(tok Token) bool {
	return tok.Kind == KindKeyword
}

func closeStatement(stmt Statement) Statement {
	tagSlots(stmt, 0)

	return stmt
}

// tagSlots marks the Block operands that the production led by stmt[at]
// evaluates itself. Every other Block is a grouped expression.
//
//	if     <cond...> {body}
//	elseif <cond...> {body}
//	else   {body}
//	def    "name" $param... {body}
//	for    {init} {cond} {step} {body}
//	while  {cond} {body}
//	$name = <production>
func tagSlots(stmt Statement, at int) {
	if at >= len(stmt) {
		return
	}

	guard := func(i int) {
		if i < len(stmt) && stmt[i].Kind == KindBlock {
			stmt[i].Slot = SlotGuarded
		}
	}

	last := len(stmt) - 1
	head := stmt[at]

	switch head.Kind {
	case KindVariableSet:
		if at+1 < len(stmt) && stmt[at+1].Kind == KindEquals {
			tagSlots(stmt, at+2)
		}

	case KindKeyword:
		switch head.Keyword {
		case KeywordIf, KeywordElseIf, KeywordDef:
			if last > at+1 {
				guard(last)
			}

		case KeywordElse:
			guard(at + 1)

		case KeywordFor:
			for i := at + 1; i <= at+4; i++ {
				guard(i)
			}

		case KeywordWhile:
			guard(at + 1)
			guard(at + 2)
		}
	}
}
