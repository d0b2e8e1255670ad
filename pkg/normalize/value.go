// Package normalize converts cell values of unknown runtime type into the
// small set of scalar kinds that can be bound as statement parameters.
package normalize

import (
	"database/sql/driver"
	"strconv"
)

// Kind is the tag of a normalized Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return "unknown"
}

// Value is one of Null, Bool, Int, Float or String.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Params maps a column name to its normalized value.
type Params map[string]Value

var _ driver.Valuer = Value{}

func NullValue() Value { return Value{kind: Null} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func IntValue(i int64) Value { return Value{kind: Int, i: i} }

func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

func StringValue(s string) Value { return Value{kind: String, s: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// Bool, Int, Float and Str return the payload for the matching kind and the
// zero value otherwise.
func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Str() string { return v.s }

// Any returns the plain Go scalar for the value: nil, bool, int64, float64
// or string.
func (v Value) Any() any {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	default:
		return nil
	}
}

// Value implements driver.Valuer so a Value can be passed straight to
// database/sql.
func (v Value) Value() (driver.Value, error) {
	return v.Any(), nil
}

// String renders the value for logs and diagnostics. Strings are quoted so
// that an empty string is distinguishable from NULL.
func (v Value) String() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return strconv.Quote(v.s)
	default:
		return "NULL"
	}
}
