package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrorKind classifies a failure of the engine.
type ErrorKind int

const (
	GeneralError ErrorKind = iota
	LexError
	StructureError
	ReferenceError
	ArityMismatch
	ExpectedOperator
	TypeMismatch
	DanglingElseif
	DanglingElse
	UnexpectedToken
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case StructureError:
		return "structure error"
	case ReferenceError:
		return "reference error"
	case ArityMismatch:
		return "arity mismatch"
	case ExpectedOperator:
		return "expected operator"
	case TypeMismatch:
		return "type mismatch"
	case DanglingElseif:
		return "dangling elseif"
	case DanglingElse:
		return "dangling else"
	case UnexpectedToken:
		return "unexpected token"
	default:
		return "error"
	}
}

// Predefined errors (sentinel values).
var (
	ErrLex              = newKindError(LexError)
	ErrStructure        = newKindError(StructureError)
	ErrReference        = newKindError(ReferenceError)
	ErrArity            = newKindError(ArityMismatch)
	ErrExpectedOperator = newKindError(ExpectedOperator)
	ErrTypeMismatch     = newKindError(TypeMismatch)
	ErrDanglingElseif   = newKindError(DanglingElseif)
	ErrDanglingElse     = newKindError(DanglingElse)
	ErrUnexpectedToken  = newKindError(UnexpectedToken)
	ErrReadInput        = NewError("failed to read input")
	ErrBuiltin          = NewError("builtin function failed")
)

// Error represents an engine failure with its source location and optional
// structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	base   *Error // sentinel this error derives from (for errors.Is)
	err    error  // Wrapped error (for errors.Unwrap)
	msg    string
	detail string
	fileID string
	attrs  []slog.Attr // Attributes for structured logging
	offset int
	kind   ErrorKind
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg, offset: -1}
}

func newKindError(kind ErrorKind) *Error {
	return &Error{msg: kind.String(), kind: kind, offset: -1}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err, offset: -1}
}

// Error implements the error interface.
//
// The message has the form "<file>:<offset>: <msg>: <detail>: <cause>",
// where each part is omitted when unset.
func (e *Error) Error() string {
	part := make([]string, 0, 4)

	if loc := e.location(); loc != "" {
		part = append(part, loc)
	}

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.detail != "" {
		part = append(part, e.detail)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

func (e *Error) location() string {
	switch {
	case e.fileID != "" && e.offset >= 0:
		return e.fileID + ":" + strconv.Itoa(e.offset)
	case e.fileID != "":
		return e.fileID
	case e.offset >= 0:
		return "offset " + strconv.Itoa(e.offset)
	default:
		return ""
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || (e.base != nil && e.base == t)
}

// Kind returns the taxonomy class of the error.
func (e *Error) Kind() ErrorKind { return e.kind }

// Message returns the base message of the error.
func (e *Error) Message() string { return e.msg }

// Detail returns the specific description of the failure, if any.
func (e *Error) Detail() string { return e.detail }

// FileID returns the identifier of the document that failed, if known.
func (e *Error) FileID() string { return e.fileID }

// Offset returns the absolute byte offset of the failure in its document,
// or -1 if unknown.
func (e *Error) Offset() int { return e.offset }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+5)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.detail != "" {
		attrs = append(attrs, slog.String("detail", e.detail))
	}

	if e.fileID != "" {
		attrs = append(attrs, slog.String("file", e.fileID))
	}

	if e.offset >= 0 {
		attrs = append(attrs, slog.Int("offset", e.offset))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// derive copies e, recording its sentinel so errors.Is keeps matching.
func (e *Error) derive() *Error {
	c := *e
	if c.base == nil {
		c.base = e
	}

	return &c
}

// Describef returns a copy of e with a formatted detail message.
func (e *Error) Describef(format string, args ...any) *Error {
	c := e.derive()
	c.detail = fmt.Sprintf(format, args...)

	return c
}

// At returns a copy of e located at the given byte offset.
func (e *Error) At(offset int) *Error {
	c := e.derive()
	c.offset = offset

	return c
}

// In returns a copy of e attributed to the given document.
// A location already recorded is kept.
func (e *Error) In(fileID string) *Error {
	if e.fileID != "" {
		return e
	}

	c := e.derive()
	c.fileID = fileID

	return c
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.derive()
	c.err = err

	return c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.derive()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

// locate attributes err to fileID when it is an *Error.
func locate(err error, fileID string) error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.In(fileID)
	}

	return WrapError(err).In(fileID)
}
