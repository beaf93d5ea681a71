package value

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status int

func TestOf(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	name := "alice"
	var nilName *string

	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"nil", nil, KindNull, nil},
		{"int", 42, KindInt64, int64(42)},
		{"int8", int8(-3), KindInt64, int64(-3)},
		{"uint16", uint16(7), KindInt64, int64(7)},
		{"named enum", status(2), KindInt64, int64(2)},
		{"float32", float32(1.5), KindFloat64, float64(1.5)},
		{"bool", true, KindBool, true},
		{"string", "x", KindText, "x"},
		{"bytes", []byte("ab"), KindBytes, []byte("ab")},
		{"time", now, KindTime, now},
		{"pointer", &name, KindText, "alice"},
		{"nil pointer", nilName, KindNull, nil},
		{"null string", sql.NullString{}, KindNull, nil},
		{"valid null int", sql.NullInt64{Int64: 9, Valid: true}, KindInt64, int64(9)},
		{"value passthrough", Text("y"), KindText, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestOfUnsupported(t *testing.T) {
	for _, in := range []any{map[string]int{}, struct{ A int }{}, []int{1}, uint64(1 << 63)} {
		_, err := Of(in)
		assert.ErrorIs(t, err, ErrUnsupportedValue, "%T", in)
	}
}

func TestAccessors(t *testing.T) {
	i, ok := Bytes([]byte("123")).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(123), i)

	f, ok := Text("12.50").Float64()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = Null().Int64()
	assert.False(t, ok)

	i, ok = Float64(42).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)
	for _, f := range []float64{1.9, -0.5, 1e19, -1e19, math.NaN(), math.Inf(1)} {
		_, ok = Float64(f).Int64()
		assert.False(t, ok, "%v", f)
	}

	_, ok = Int64(1).Time()
	assert.False(t, ok)

	s, ok := Bytes([]byte("hi")).Text()
	assert.True(t, ok)
	assert.Equal(t, "hi", s)
}

func TestBytesCopiesInput(t *testing.T) {
	src := []byte("abc")
	v := Bytes(src)
	src[0] = 'z'
	b, _ := v.Bytes()
	assert.Equal(t, "abc", string(b))
}

func TestEqualAndString(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Null().Equal(Value{}))
	assert.True(t, Time(at).Equal(Time(at.In(time.FixedZone("x", 3600)))))
	assert.False(t, Int64(1).Equal(Float64(1)))
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "2.25", Float64(2.25).String())
	assert.Equal(t, "text", KindText.String())
}
