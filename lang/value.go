package lang

import (
	"math"
	"strconv"

	"fortio.org/safecast"
)

// Type indicates the type of a [Value].
type Type int

const (
	// TypeNone is the type of the zero Value, produced by statements that
	// yield no value (def, for, a false if without else).
	TypeNone Type = iota

	// TypeNumber represents a numeric value.
	TypeNumber

	// TypeString represents a string value.
	TypeString

	// TypeBool represents a boolean value.
	TypeBool
)

// String returns a string representation of the value type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"

	case TypeNumber:
		return "Number"

	case TypeString:
		return "String"

	case TypeBool:
		return "Bool"

	default:
		return "Unknown"
	}
}

// Value is a scalar produced by evaluation.
// Its type is fixed when it is constructed and never re-derived from text.
type Value struct {
	str  string
	num  float64
	typ  Type
	flag bool
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{typ: TypeNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{typ: TypeString, str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{typ: TypeBool, flag: b} }

// Type returns the type of v.
func (v Value) Type() Type { return v.typ }

// IsNone reports whether v carries no value.
func (v Value) IsNone() bool { return v.typ == TypeNone }

// Float returns the numeric payload of v, or 0 if v is not a number.
func (v Value) Float() float64 { return v.num }

// Str returns the string payload of v, or "" if v is not a string.
func (v Value) Str() string { return v.str }

// Boolean returns the boolean payload of v, or false if v is not a bool.
func (v Value) Boolean() bool { return v.flag }

// Text returns the canonical text form of v, used wherever a value is
// emitted into a document.
func (v Value) Text() string {
	switch v.typ {
	case TypeNumber:
		return formatNumber(v.num)

	case TypeString:
		return v.str

	case TypeBool:
		return strconv.FormatBool(v.flag)

	default:
		return ""
	}
}

// String implements fmt.Stringer. Strings are quoted so that values of
// different types remain distinguishable in diagnostics.
func (v Value) String() string {
	if v.typ == TypeString {
		return strconv.Quote(v.str)
	}

	if v.typ == TypeNone {
		return "none"
	}

	return v.Text()
}

// Truthy reports whether v selects the taken branch of a condition.
func (v Value) Truthy() bool {
	switch v.typ {
	case TypeBool:
		return v.flag

	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)

	case TypeString:
		return v.str != ""

	default:
		return false
	}
}

// Equal reports whether v and w have the same type and payload.
func (v Value) Equal(w Value) bool {
	if v.typ != w.typ {
		return false
	}

	switch v.typ {
	case TypeNumber:
		return v.num == w.num

	case TypeString:
		return v.str == w.str

	case TypeBool:
		return v.flag == w.flag

	default:
		return true
	}
}

// Any returns the payload of v as a plain Go value (float64, string, bool or
// nil), suitable for encoders.
func (v Value) Any() any {
	switch v.typ {
	case TypeNumber:
		return v.num

	case TypeString:
		return v.str

	case TypeBool:
		return v.flag

	default:
		return nil
	}
}

// maxPlainFloat is the magnitude above which numbers switch to exponent form.
const maxPlainFloat = 1e21

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"

	case math.IsInf(f, 1):
		return "Infinity"

	case math.IsInf(f, -1):
		return "-Infinity"
	}

	if i, err := safecast.Convert[int64](f); err == nil {
		return strconv.FormatInt(i, 10)
	}

	if math.Abs(f) >= maxPlainFloat {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
