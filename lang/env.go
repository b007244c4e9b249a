package lang

import (
	"context"
	"iter"
	"maps"
	"slices"
	"time"
)

// BuiltinFunc implements a natively provided function. It receives the
// resolved argument values and returns the text it emits and its result.
type BuiltinFunc func(ctx context.Context, args []Value) (string, Value, error)

// FunctionDef is a callable entry of an [Environment]: either a builtin with
// a fixed arity, or a user-defined function created by def.
type FunctionDef struct {
	builtin BuiltinFunc
	// env is the environment def ran in; each call clones it.
	env    *Environment
	Name   string
	Params []string
	Body   []Statement
	Arity  int
}

// NewBuiltin returns a builtin FunctionDef.
func NewBuiltin(name string, arity int, fn BuiltinFunc) *FunctionDef {
	return &FunctionDef{Name: name, Arity: arity, builtin: fn}
}

// IsBuiltin reports whether f is natively provided.
func (f *FunctionDef) IsBuiltin() bool { return f.builtin != nil }

// Environment holds the variable and function bindings of one evaluation
// scope. It is not safe for concurrent use; each render owns its own.
type Environment struct {
	vars  map[string]Value
	funcs map[string]*FunctionDef
}

// NewEnvironment returns an environment with no variables and the given
// functions defined.
func NewEnvironment(funcs ...*FunctionDef) *Environment {
	env := &Environment{
		vars:  make(map[string]Value),
		funcs: make(map[string]*FunctionDef, len(funcs)),
	}

	for _, f := range funcs {
		env.funcs[f.Name] = f
	}

	return env
}

// Clone returns a snapshot of env. Later changes to either environment are
// not visible in the other.
func (env *Environment) Clone() *Environment {
	return &Environment{
		vars:  maps.Clone(env.vars),
		funcs: maps.Clone(env.funcs),
	}
}

// restore replaces the bindings of env with those of snapshot, keeping the
// identity of env that defined functions refer to.
func (env *Environment) restore(snapshot *Environment) {
	env.vars = snapshot.vars
	env.funcs = snapshot.funcs
}

// Get returns the value bound to a variable.
func (env *Environment) Get(name string) (Value, bool) {
	v, ok := env.vars[name]

	return v, ok
}

// Set binds a variable.
func (env *Environment) Set(name string, v Value) { env.vars[name] = v }

// Function returns the function bound to name.
func (env *Environment) Function(name string) (*FunctionDef, bool) {
	f, ok := env.funcs[name]

	return f, ok
}

// Define binds (or rebinds) a function.
func (env *Environment) Define(f *FunctionDef) { env.funcs[f.Name] = f }

// Variables returns an iterator over variable bindings in name order.
func (env *Environment) Variables() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, name := range slices.Sorted(maps.Keys(env.vars)) {
			if !yield(name, env.vars[name]) {
				return
			}
		}
	}
}

// Functions returns an iterator over function bindings in name order.
func (env *Environment) Functions() iter.Seq[*FunctionDef] {
	return func(yield func(*FunctionDef) bool) {
		for _, name := range slices.Sorted(maps.Keys(env.funcs)) {
			if !yield(env.funcs[name]) {
				return
			}
		}
	}
}

// Clock returns the current time. It is replaceable for tests.
type Clock func() time.Time

// Builtins returns the default builtin functions:
//
//	print(x)  emits the text of x and returns x
//	epoch()   returns the current time in milliseconds since the Unix epoch
func Builtins(clock Clock) []*FunctionDef {
	if clock == nil {
		clock = time.Now
	}

	return []*FunctionDef{
		NewBuiltin("print", 1,
			func(_ context.Context, args []Value) (string, Value, error) {
				return args[0].Text(), args[0], nil
			},
		),
		NewBuiltin("epoch", 0,
			func(context.Context, []Value) (string, Value, error) {
				return "", Number(float64(clock().UnixMilli())), nil
			},
		),
	}
}
