// Package value holds the closed set of values that cross the SQL boundary.
// Every result cell and every bound parameter is a Value.
package value

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// ErrUnsupportedValue is returned by Of for inputs that have no SQL representation.
var ErrUnsupportedValue = errors.New("unsupported value")

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindText
	KindTime
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is a tagged variant. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	t    time.Time
	raw  []byte
}

func Null() Value {
	return Value{}
}

func Int64(i int64) Value {
	return Value{kind: KindInt64, i: i}
}

func Float64(f float64) Value {
	return Value{kind: KindFloat64, f: f}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t}
}

// Bytes copies b so later writes to the caller's slice do not leak into the value.
func Bytes(b []byte) Value {
	if b == nil {
		return Null()
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, raw: cp}
}

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// Of converts a Go value into a Value. Driver values, integer and float kinds
// (including named enum types), pointers and driver.Valuer implementors are accepted.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case int64:
		return Int64(x), nil
	case int:
		return Int64(int64(x)), nil
	case int32:
		return Int64(int64(x)), nil
	case float64:
		return Float64(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	case time.Time:
		return Time(x), nil
	case driver.Valuer:
		return fromValuer(x)
	}
	return fromReflect(reflect.ValueOf(v))
}

// MustOf is Of for values known to be convertible; it panics otherwise.
func MustOf(v any) Value {
	out, err := Of(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromValuer(v driver.Valuer) (Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return Null(), nil
	}
	dv, err := v.Value()
	if err != nil {
		return Null(), fmt.Errorf("driver valuer: %w", err)
	}
	if _, again := dv.(driver.Valuer); again {
		return Null(), fmt.Errorf("%w: nested driver.Valuer %T", ErrUnsupportedValue, dv)
	}
	return Of(dv)
}

func fromReflect(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	if rv.Type().Implements(valuerType) {
		return fromValuer(rv.Interface().(driver.Valuer))
	}
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromReflect(rv.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > 1<<63-1 {
			return Null(), fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupportedValue, u)
		}
		return Int64(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.IsNil() {
				return Null(), nil
			}
			return Bytes(rv.Bytes()), nil
		}
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return Time(rv.Convert(timeType).Interface().(time.Time)), nil
		}
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Type())
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Int64 returns the integer held by v. Floats must be whole and within the
// int64 range. Text and bytes are parsed, since SQL Server returns decimals
// and bigints as text.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt64:
		return v.i, true
	case KindFloat64:
		if v.f != math.Trunc(v.f) || v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, false
		}
		return int64(v.f), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText, KindBytes:
		i, err := strconv.ParseInt(v.text(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat64:
		return v.f, true
	case KindInt64:
		return float64(v.i), true
	case KindText, KindBytes:
		f, err := strconv.ParseFloat(v.text(), 64)
		return f, err == nil
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt64:
		return v.i != 0, true
	case KindText:
		b, err := strconv.ParseBool(v.s)
		return b, err == nil
	}
	return false, false
}

func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindText, KindBytes:
		return v.text(), true
	}
	return "", false
}

func (v Value) Time() (time.Time, bool) {
	if v.kind == KindTime {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) Bytes() ([]byte, bool) {
	switch v.kind {
	case KindBytes:
		return v.raw, true
	case KindText:
		return []byte(v.s), true
	}
	return nil, false
}

func (v Value) text() string {
	if v.kind == KindBytes {
		return string(v.raw)
	}
	return v.s
}

// Any returns the driver representation of v; Null yields nil.
func (v Value) Any() any {
	switch v.kind {
	case KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	case KindBool:
		return v.b
	case KindText:
		return v.s
	case KindTime:
		return v.t
	case KindBytes:
		return v.raw
	}
	return nil
}

// Value implements driver.Valuer so a Value can be passed straight to database/sql.
func (v Value) Value() (driver.Value, error) {
	return v.Any(), nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return v.text()
	}
}

// Equal reports whether both values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return string(v.raw) == string(o.raw)
	}
	return v.Any() == o.Any()
}

// MarshalJSON encodes the payload of v; Null becomes null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}
