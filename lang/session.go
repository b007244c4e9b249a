package lang

import (
	"context"
	"strings"
)

// Session evaluates successive snippets of code in one persistent
// environment, for interactive use.
type Session struct {
	engine *Engine
	env    *Environment
	fileID string
}

// NewSession returns a session with a fresh environment.
func (e *Engine) NewSession(fileID string) *Session {
	return &Session{engine: e, env: e.NewEnvironment(), fileID: fileID}
}

// Exec evaluates code as a statement sequence. A missing final terminator
// is supplied. Bindings change only if the whole snippet succeeds.
func (s *Session) Exec(ctx context.Context, code string) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Result{Pos: -1}, nil
	}

	if !strings.HasSuffix(code, ";") {
		code += "\n;"
	}

	stmts, err := Parse(code, 0)
	if err != nil {
		return Result{}, locate(err, s.fileID)
	}

	snapshot := s.env.Clone()

	res, err := Eval(ctx, s.env, stmts, s.engine.logger)
	if err != nil {
		s.env.restore(snapshot)

		return Result{}, locate(err, s.fileID)
	}

	return res, nil
}

// Environment returns the session's current bindings.
func (s *Session) Environment() *Environment { return s.env }

// Reset discards all bindings made by the session.
func (s *Session) Reset() { s.env = s.engine.NewEnvironment() }
