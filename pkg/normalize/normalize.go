package normalize

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateTimeFormat is the layout time values are rendered in. It is the
// literal form MySQL accepts for DATE, DATETIME and TIMESTAMP columns.
const DateTimeFormat = "2006-01-02 15:04:05"

var ErrUnrecognizedValueType = errors.New("unrecognized value type")

// UnrecognizedValueTypeError is returned when a value matches none of the
// recognized scalar kinds. It matches ErrUnrecognizedValueType.
type UnrecognizedValueTypeError struct {
	Value    any
	TypeName string
}

func (e *UnrecognizedValueTypeError) Error() string {
	return fmt.Sprintf("value '%v' has unknown type of '%s'", e.Value, e.TypeName)
}

func (e *UnrecognizedValueTypeError) Is(target error) bool {
	return target == ErrUnrecognizedValueType
}

func unrecognized(v any) error {
	return &UnrecognizedValueTypeError{Value: v, TypeName: fmt.Sprintf("%T", v)}
}

// NullableString is implemented by nullable string wrappers that are not
// one of the database/sql types.
type NullableString interface {
	NullableString() (s string, valid bool)
}

// NullableBool is the boolean counterpart of NullableString.
type NullableBool interface {
	NullableBool() (b bool, valid bool)
}

// Normalize converts v into a Value. The checks run in a fixed order:
//
//  1. nullable string wrappers
//  2. nullable boolean wrappers
//  3. missing values (IsMissing)
//  4. native int, float, string and bool values
//  5. the IsInteger and IsFloat predicates
//
// Step 3 must precede step 4: NaN is a float64 and would otherwise be
// passed through as a Float instead of becoming Null.
func Normalize(v any) (Value, error) {
	if s, valid, ok := nullableString(v); ok {
		if !valid {
			return NullValue(), nil
		}
		return StringValue(s), nil
	}
	if b, valid, ok := nullableBool(v); ok {
		if !valid {
			return NullValue(), nil
		}
		return BoolValue(b), nil
	}
	if IsMissing(v) {
		return NullValue(), nil
	}
	switch val := v.(type) {
	case Value:
		return val, nil
	case int:
		return IntValue(int64(val)), nil
	case int8:
		return IntValue(int64(val)), nil
	case int16:
		return IntValue(int64(val)), nil
	case int32:
		return IntValue(int64(val)), nil
	case int64:
		return IntValue(val), nil
	case float32:
		return FloatValue(widenFloat32(val)), nil
	case float64:
		return FloatValue(val), nil
	case string:
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	}
	if i, ok := asInteger(v); ok {
		return IntValue(i), nil
	}
	if f, ok := asFloat(v); ok {
		return FloatValue(f), nil
	}
	switch val := v.(type) {
	case []byte:
		if utf8.Valid(val) {
			return StringValue(string(val)), nil
		}
	case time.Time:
		return StringValue(val.Format(DateTimeFormat)), nil
	case sql.NullTime:
		return StringValue(val.Time.Format(DateTimeFormat)), nil
	}
	if elem, ok := deref(v); ok {
		return Normalize(elem)
	}
	return Value{}, unrecognized(v)
}

// maxPointerDepth bounds how many pointers deref follows, so a pointer
// cycle such as p = &p is unrecognized instead of recursing forever.
const maxPointerDepth = 4

// deref follows non-nil pointers from v and returns the first value that
// is not a pointer.
func deref(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return nil, false
	}
	for range maxPointerDepth {
		if rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, true
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Pointer {
			return rv.Interface(), true
		}
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	return nil, false
}

// NormalizeRow normalizes values into a Params keyed by columns. The first
// value that fails aborts the row; the error names its column.
func NormalizeRow(columns []string, values []any) (Params, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%d values for %d columns", len(values), len(columns))
	}
	params := make(Params, len(columns))
	for n, col := range columns {
		v, err := Normalize(values[n])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		params[col] = v
	}
	return params, nil
}

// IsMissing reports whether v represents a missing value: nil, a nil
// pointer, NaN, or an invalid nullable wrapper.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case Value:
		return val.IsNull()
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case sql.NullInt64:
		return !val.Valid
	case sql.NullInt32:
		return !val.Valid
	case sql.NullInt16:
		return !val.Valid
	case sql.NullByte:
		return !val.Valid
	case sql.NullFloat64:
		return !val.Valid || math.IsNaN(val.Float64)
	case sql.Null[int64]:
		return !val.Valid
	case sql.Null[float64]:
		return !val.Valid || math.IsNaN(val.V)
	case sql.NullTime:
		return !val.Valid
	case decimal.NullDecimal:
		return !val.Valid
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	return false
}

// IsInteger reports whether v is numerically an integer that fits in int64.
// Native signed ints are handled before this predicate is consulted.
func IsInteger(v any) bool {
	_, ok := asInteger(v)
	return ok
}

// IsFloat reports whether v is numerically a non-integral number.
func IsFloat(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func asInteger(v any) (int64, bool) {
	switch val := v.(type) {
	case uint:
		return fromUnsigned(uint64(val))
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return fromUnsigned(val)
	case sql.NullInt64:
		return val.Int64, val.Valid
	case sql.NullInt32:
		return int64(val.Int32), val.Valid
	case sql.NullInt16:
		return int64(val.Int16), val.Valid
	case sql.NullByte:
		return int64(val.Byte), val.Valid
	case sql.Null[int64]:
		return val.V, val.Valid
	case decimal.Decimal:
		return decimalInteger(val)
	case decimal.NullDecimal:
		if !val.Valid {
			return 0, false
		}
		return decimalInteger(val.Decimal)
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case sql.NullFloat64:
		return val.Float64, val.Valid
	case sql.Null[float64]:
		return val.V, val.Valid
	case decimal.Decimal:
		f, _ := val.Float64()
		return f, true
	case decimal.NullDecimal:
		f, _ := val.Decimal.Float64()
		return f, val.Valid
	}
	return 0, false
}

func fromUnsigned(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func decimalInteger(d decimal.Decimal) (int64, bool) {
	if !d.IsInteger() {
		return 0, false
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, false
	}
	return bi.Int64(), true
}

// widenFloat32 converts via the shortest decimal representation so that
// float32(20.2) becomes 20.2 rather than 20.200000762939453.
func widenFloat32(f float32) float64 {
	w, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return w
}

func nullableString(v any) (string, bool, bool) {
	switch val := v.(type) {
	case sql.NullString:
		return val.String, val.Valid, true
	case sql.Null[string]:
		return val.V, val.Valid, true
	case NullableString:
		s, valid := val.NullableString()
		return s, valid, true
	}
	return "", false, false
}

func nullableBool(v any) (bool, bool, bool) {
	switch val := v.(type) {
	case sql.NullBool:
		return val.Bool, val.Valid, true
	case sql.Null[bool]:
		return val.V, val.Valid, true
	case NullableBool:
		b, valid := val.NullableBool()
		return b, valid, true
	}
	return false, false, false
}
