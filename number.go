package megatron

import (
	"math"
	"strconv"
)

// Number is a scalar statistic value.  Integral values keep their integer representation so that
// counters render without a fractional part.
type Number struct {
	i        int64
	f        float64
	integral bool
}

// Int returns an integral Number.
func Int(v int64) Number {
	return Number{i: v, f: float64(v), integral: true}
}

// Float returns a floating point Number.
func Float(v float64) Number {
	return Number{f: v}
}

// NumberOf converts any Go numeric value into a Number.  The second result is false for
// non-numeric values.
func NumberOf(v interface{}) (Number, bool) {
	switch n := v.(type) {
	case Number:
		return n, true
	case int:
		return Int(int64(n)), true
	case int8:
		return Int(int64(n)), true
	case int16:
		return Int(int64(n)), true
	case int32:
		return Int(int64(n)), true
	case int64:
		return Int(n), true
	case uint:
		return unsigned(uint64(n)), true
	case uint8:
		return Int(int64(n)), true
	case uint16:
		return Int(int64(n)), true
	case uint32:
		return Int(int64(n)), true
	case uint64:
		return unsigned(n), true
	case float32:
		return Float(float64(n)), true
	case float64:
		return Float(n), true
	}
	return Number{}, false
}

func unsigned(v uint64) Number {
	if v > math.MaxInt64 {
		return Float(float64(v))
	}
	return Int(int64(v))
}

// IsIntegral reports whether the number holds an integer.
func (n Number) IsIntegral() bool {
	return n.integral
}

// Int64 returns the value truncated to an integer.
func (n Number) Int64() int64 {
	if n.integral {
		return n.i
	}
	return int64(n.f)
}

// Float64 returns the value as a float64.
func (n Number) Float64() float64 {
	return n.f
}

// String renders the number using Go's shortest representation.
func (n Number) String() string {
	if n.integral {
		return strconv.FormatInt(n.i, 10)
	}
	return strconv.FormatFloat(n.f, 'g', -1, 64)
}
