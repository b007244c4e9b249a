package lang

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/raumaankidwai/nim/log"
)

// Result is the outcome of evaluating a statement or a statement sequence.
type Result struct {
	// Emitted is the text produced for the document.
	Emitted string
	// Value is the value of the last non-empty statement.
	Value Value
	// Pos is the offset of the last token evaluated, or -1.
	Pos int
}

// Eval evaluates a statement sequence in env.
func Eval(
	ctx context.Context,
	env *Environment,
	stmts []Statement,
	logger log.Logger,
) (Result, error) {
	e := &evaluator{ctx: ctx, logger: logger}

	return e.evalSequence(env, stmts)
}

type evaluator struct {
	ctx    context.Context
	logger log.Logger
}

// chain is the condition history of one if/elseif/else construct.
type chain struct {
	open  bool
	taken bool
}

func (e *evaluator) evalSequence(
	env *Environment,
	stmts []Statement,
) (Result, error) {
	var (
		ch  chain
		out strings.Builder
	)

	res := Result{Pos: -1}

	for _, stmt := range stmts {
		r, err := e.evalStatement(env, stmt, &ch)
		if err != nil {
			return Result{}, err
		}

		out.WriteString(r.Emitted)

		if len(stmt) > 0 {
			res.Value = r.Value
			res.Pos = r.Pos
		}
	}

	res.Emitted = out.String()

	return res, nil
}

func (e *evaluator) evalStatement(
	env *Environment,
	stmt Statement,
	ch *chain,
) (Result, error) {
	if len(stmt) == 0 {
		return Result{Pos: -1}, nil
	}

	head := stmt[0]

	switch {
	case head.Kind == KindKeyword && head.Keyword == KeywordElseIf:
		if !ch.open {
			return Result{}, ErrDanglingElseif.
				Describef("elseif without preceding if").
				At(head.Pos)
		}

	case head.Kind == KindKeyword && head.Keyword == KeywordElse:
		if !ch.open {
			return Result{}, ErrDanglingElse.
				Describef("else without preceding if").
				At(head.Pos)
		}

	case head.Kind != KindKeyword || head.Keyword != KeywordIf:
		ch.open = false
	}

	var out strings.Builder

	toks, err := e.prepare(env, stmt, &out)
	if err != nil {
		return Result{}, err
	}

	r, err := e.dispatch(env, toks, ch)
	if err != nil {
		return Result{}, err
	}

	out.WriteString(r.Emitted)

	return Result{
		Emitted: out.String(),
		Value:   r.Value,
		Pos:     stmt[len(stmt)-1].Pos,
	}, nil
}

// prepare returns a copy of stmt in which every eager Block and every Group
// is replaced by the literal values it evaluates to, and every variable
// reference is replaced by its bound value. The parameter names of def are
// left unresolved. Text emitted along the way is written to out.
func (e *evaluator) prepare(
	env *Environment,
	stmt Statement,
	out *strings.Builder,
) ([]Token, error) {
	isDef := stmt[0].Kind == KindKeyword && stmt[0].Keyword == KeywordDef

	toks := make([]Token, 0, len(stmt))

	for _, tok := range stmt {
		switch {
		case tok.Kind == KindBlock && tok.Slot == SlotEager:
			r, err := e.evalSequence(env, tok.Body)
			if err != nil {
				return nil, err
			}

			out.WriteString(r.Emitted)
			toks = append(toks, literal(r.Value, tok.Pos))

		case tok.Kind == KindGroup:
			for _, arg := range tok.Body {
				var ch chain

				r, err := e.evalStatement(env, arg, &ch)
				if err != nil {
					return nil, err
				}

				out.WriteString(r.Emitted)
				toks = append(toks, literal(r.Value, arg.Pos()))
			}

		case tok.Kind == KindVariableGet && !isDef:
			v, ok := env.Get(tok.Name)
			if !ok {
				return nil, ErrReference.
					Describef("undefined variable $%s", tok.Name).
					At(tok.Pos).
					With(slog.String("name", tok.Name))
			}

			toks = append(toks, literal(v, tok.Pos))

		default:
			toks = append(toks, tok)
		}
	}

	return toks, nil
}

func (e *evaluator) dispatch(
	env *Environment,
	toks []Token,
	ch *chain,
) (Result, error) {
	// An empty group splices to nothing.
	if len(toks) == 0 {
		return Result{}, nil
	}

	head := toks[0]

	switch head.Kind {
	case KindFunctionCall:
		return e.call(env, head, toks[1:])

	case KindVariableSet:
		return e.assign(env, toks, ch)

	case KindKeyword:
		switch head.Keyword {
		case KeywordIf, KeywordElseIf:
			return e.evalIf(env, toks, ch)

		case KeywordElse:
			return e.evalElse(env, toks, ch)

		case KeywordDef:
			return Result{}, e.define(env, toks)

		case KeywordFor:
			return e.evalFor(env, toks)

		case KeywordWhile:
			return e.evalWhile(env, toks)
		}
	}

	v, err := operand(toks, head.Pos)
	if err != nil {
		return Result{}, err
	}

	return Result{Value: v}, nil
}

// operand evaluates "<value> [<op> <value>]".
func operand(toks []Token, pos int) (Value, error) {
	if len(toks) == 0 {
		return Value{}, ErrUnexpectedToken.
			Describef("unexpected end of statement").
			At(pos)
	}

	left := toks[0]
	if !left.Kind.IsLiteral() {
		return Value{}, unexpected(left)
	}

	if len(toks) == 1 {
		return left.Value, nil
	}

	op := toks[1]
	if !op.Kind.IsOperator() {
		return Value{}, ErrExpectedOperator.
			Describef("expected operator, found %s", op.Kind).
			At(op.Pos)
	}

	if len(toks) == 2 {
		return Value{}, ErrUnexpectedToken.
			Describef("unexpected end of statement").
			At(op.Pos)
	}

	right := toks[2]
	if !right.Kind.IsLiteral() {
		return Value{}, unexpected(right)
	}

	if len(toks) > 3 {
		return Value{}, unexpected(toks[3])
	}

	return apply(op, left.Value, right.Value)
}

func unexpected(tok Token) *Error {
	return ErrUnexpectedToken.
		Describef("unexpected %s", describe(tok)).
		At(tok.Pos)
}

func describe(tok Token) string {
	switch tok.Kind {
	case KindKeyword:
		return "keyword " + tok.Name
	case KindFunctionCall:
		return "call to " + tok.Name
	case KindBlock:
		return "block"
	default:
		if tok.Kind.IsLiteral() {
			return tok.Value.String()
		}

		return "'" + tok.Kind.String() + "'"
	}
}

// apply evaluates a binary operator over two values.
func apply(op Token, l, r Value) (Value, error) {
	mismatch := func() (Value, error) {
		return Value{}, ErrTypeMismatch.
			Describef("cannot apply %s to %s and %s", op.Kind, l.Type(), r.Type()).
			At(op.Pos)
	}

	bothNum := l.Type() == TypeNumber && r.Type() == TypeNumber
	bothStr := l.Type() == TypeString && r.Type() == TypeString

	switch op.Kind {
	case KindPlus:
		if l.Type() == TypeString || r.Type() == TypeString {
			return String(l.Text() + r.Text()), nil
		}

		if bothNum {
			return Number(l.Float() + r.Float()), nil
		}

	case KindEquality:
		return Bool(l.Equal(r)), nil

	case KindGreaterThan, KindGreaterEq, KindLessThan, KindLessEq:
		switch {
		case bothNum:
			return Bool(compare(op.Kind, cmpFloat(l.Float(), r.Float()))), nil
		case bothStr:
			return Bool(compare(op.Kind, strings.Compare(l.Str(), r.Str()))), nil
		}

	default:
		if !bothNum {
			return mismatch()
		}

		a, b := l.Float(), r.Float()

		switch op.Kind {
		case KindMinus:
			return Number(a - b), nil
		case KindTimes:
			return Number(a * b), nil
		case KindDivide:
			return Number(a / b), nil
		case KindModulo:
			return Number(math.Mod(a, b)), nil
		case KindIntDivide:
			return Number(math.Floor(a / b)), nil
		}
	}

	return mismatch()
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	default:
		return 2 // unordered (NaN)
	}
}

func compare(k Kind, c int) bool {
	if c == 2 {
		return false
	}

	switch k {
	case KindGreaterThan:
		return c > 0
	case KindGreaterEq:
		return c >= 0
	case KindLessThan:
		return c < 0
	default:
		return c <= 0
	}
}

func (e *evaluator) call(
	env *Environment,
	head Token,
	args []Token,
) (Result, error) {
	f, ok := env.Function(head.Name)
	if !ok {
		return Result{}, ErrReference.
			Describef("undefined function %s", head.Name).
			At(head.Pos).
			With(slog.String("name", head.Name))
	}

	if len(args) != f.Arity {
		return Result{}, ErrArity.
			Describef("%s expects %d argument(s), got %d",
				head.Name, f.Arity, len(args)).
			At(head.Pos).
			With(
				slog.String("name", head.Name),
				slog.Int("expected", f.Arity),
				slog.Int("got", len(args)),
			)
	}

	vals := make([]Value, len(args))

	for i, arg := range args {
		if !arg.Kind.IsLiteral() {
			return Result{}, unexpected(arg)
		}

		vals[i] = arg.Value
	}

	e.logger.TraceContext(e.ctx, "call",
		slog.String("name", f.Name),
		slog.Bool("builtin", f.IsBuiltin()),
		slog.Int("offset", head.Pos))

	if f.IsBuiltin() {
		text, v, err := f.builtin(e.ctx, vals)
		if err != nil {
			return Result{}, ErrBuiltin.
				Describef("%s", f.Name).
				At(head.Pos).
				Wrap(err)
		}

		return Result{Emitted: text, Value: v}, nil
	}

	child := f.env.Clone()
	for i, name := range f.Params {
		child.Set(name, vals[i])
	}

	return e.evalSequence(child, f.Body)
}

func (e *evaluator) assign(
	env *Environment,
	toks []Token,
	ch *chain,
) (Result, error) {
	head := toks[0]

	if len(toks) < 2 || toks[1].Kind != KindEquals {
		return Result{}, ErrUnexpectedToken.
			Describef("expected '=' after $%s", head.Name).
			At(head.Pos)
	}

	rhs := toks[2:]
	if len(rhs) == 0 {
		return Result{}, ErrUnexpectedToken.
			Describef("unexpected end of statement").
			At(toks[1].Pos)
	}

	if rhs[0].Kind == KindKeyword {
		return Result{}, unexpected(rhs[0])
	}

	r, err := e.dispatch(env, rhs, ch)
	if err != nil {
		return Result{}, err
	}

	env.Set(head.Name, r.Value)

	return r, nil
}

// body returns the guarded Block at toks[i].
func body(toks []Token, i int) (Token, error) {
	if i >= len(toks) {
		last := toks[len(toks)-1]

		return Token{}, ErrUnexpectedToken.
			Describef("expected block after %s", describe(last)).
			At(last.Pos)
	}

	if toks[i].Kind != KindBlock || toks[i].Slot != SlotGuarded {
		return Token{}, ErrUnexpectedToken.
			Describef("expected block, found %s", describe(toks[i])).
			At(toks[i].Pos)
	}

	return toks[i], nil
}

func (e *evaluator) evalIf(
	env *Environment,
	toks []Token,
	ch *chain,
) (Result, error) {
	head := toks[0]

	blk, err := body(toks, len(toks)-1)
	if err != nil || len(toks) < 3 {
		return Result{}, ErrUnexpectedToken.
			Describef("%s expects a condition and a block", head.Name).
			At(head.Pos)
	}

	cond, err := e.condition(env, toks[1:len(toks)-1])
	if err != nil {
		return Result{}, err
	}

	if head.Keyword == KeywordIf {
		*ch = chain{open: true}
	}

	if ch.taken || !cond.Value.Truthy() {
		return Result{Emitted: cond.Emitted}, nil
	}

	ch.taken = true

	r, err := e.evalSequence(env, blk.Body)
	if err != nil {
		return Result{}, err
	}

	r.Emitted = cond.Emitted + r.Emitted

	return r, nil
}

// condition evaluates the condition statement of if and elseif. It is a call
// or an operand; control keywords and assignments are rejected.
func (e *evaluator) condition(env *Environment, toks []Token) (Result, error) {
	if toks[0].Kind == KindKeyword || toks[0].Kind == KindVariableSet {
		return Result{}, unexpected(toks[0])
	}

	var inner chain

	return e.dispatch(env, toks, &inner)
}

func (e *evaluator) evalElse(
	env *Environment,
	toks []Token,
	ch *chain,
) (Result, error) {
	blk, err := body(toks, 1)
	if err != nil {
		return Result{}, err
	}

	if len(toks) > 2 {
		return Result{}, unexpected(toks[2])
	}

	taken := ch.taken
	*ch = chain{}

	if taken {
		return Result{}, nil
	}

	return e.evalSequence(env, blk.Body)
}

func (e *evaluator) define(env *Environment, toks []Token) error {
	head := toks[0]

	if len(toks) < 3 || toks[1].Kind != KindString {
		return ErrUnexpectedToken.
			Describef("def expects a name string, parameters and a block").
			At(head.Pos)
	}

	blk, err := body(toks, len(toks)-1)
	if err != nil {
		return err
	}

	params := make([]string, 0, len(toks)-3)

	for _, tok := range toks[2 : len(toks)-1] {
		if tok.Kind != KindVariableGet {
			return ErrUnexpectedToken.
				Describef("expected parameter variable, found %s", describe(tok)).
				At(tok.Pos)
		}

		params = append(params, tok.Name)
	}

	f := &FunctionDef{
		Name:   toks[1].Value.Str(),
		Params: params,
		Body:   blk.Body,
		Arity:  len(params),
		env:    env,
	}

	env.Define(f)

	e.logger.TraceContext(e.ctx, "define",
		slog.String("name", f.Name),
		slog.Int("arity", f.Arity))

	return nil
}

// loop runs the guarded blocks of a for or while statement in one child
// environment. init and step may be nil.
func (e *evaluator) loop(env *Environment, init, cond, step, blk []Statement) (Result, error) {
	var out strings.Builder

	child := env.Clone()

	run := func(stmts []Statement) (Value, error) {
		r, err := e.evalSequence(child, stmts)
		if err != nil {
			return Value{}, err
		}

		out.WriteString(r.Emitted)

		return r.Value, nil
	}

	if _, err := run(init); err != nil {
		return Result{}, err
	}

	for {
		c, err := run(cond)
		if err != nil {
			return Result{}, err
		}

		if !c.Truthy() {
			break
		}

		if _, err := run(blk); err != nil {
			return Result{}, err
		}

		if _, err := run(step); err != nil {
			return Result{}, err
		}
	}

	return Result{Emitted: out.String()}, nil
}

func (e *evaluator) evalFor(env *Environment, toks []Token) (Result, error) {
	slots := make([]Token, 4)

	for i := range slots {
		blk, err := body(toks, i+1)
		if err != nil {
			return Result{}, err
		}

		slots[i] = blk
	}

	if len(toks) > 5 {
		return Result{}, unexpected(toks[5])
	}

	return e.loop(env, slots[0].Body, slots[1].Body, slots[2].Body, slots[3].Body)
}

func (e *evaluator) evalWhile(env *Environment, toks []Token) (Result, error) {
	cond, err := body(toks, 1)
	if err != nil {
		return Result{}, err
	}

	blk, err := body(toks, 2)
	if err != nil {
		return Result{}, err
	}

	if len(toks) > 3 {
		return Result{}, unexpected(toks[3])
	}

	return e.loop(env, nil, cond.Body, nil, blk.Body)
}
