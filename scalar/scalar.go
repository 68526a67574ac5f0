// Package scalar defines the value types stored in scalar sets and the
// order-preserving key mapping shared by the partitioner and device kernels.
//
// # Order keys
//
// Key maps every valid value to a uint64 such that
//
//	a < b  <=>  Key(a) < Key(b)
//	a == b <=> Key(a) == Key(b)
//
// for all non-NaN values of one type. Negative zero is folded onto positive
// zero before mapping, so the two compare equal in key space as they do under
// IEEE-754. NaN has no key; sets never contain it and predicates never match it.
package scalar

import (
	"fmt"
	"math"
	"strconv"
)

// Value is the set of fixed-width scalar types a set may hold.
type Value interface {
	int32 | int64 | uint32 | uint64 | float32 | float64
}

// Kind identifies a concrete Value type on disk and in diagnostics.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Size returns the width of one value in bytes.
func (k Kind) Size() int {
	switch k {
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether k is an IEEE-754 type.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// KindOf returns the Kind of T.
func KindOf[T Value]() Kind {
	var zero T
	switch any(zero).(type) {
	case int32:
		return KindInt32
	case int64:
		return KindInt64
	case uint32:
		return KindUint32
	case uint64:
		return KindUint64
	case float32:
		return KindFloat32
	case float64:
		return KindFloat64
	}
	return KindInvalid
}

// SizeOf returns the width of T in bytes.
func SizeOf[T Value]() int {
	return KindOf[T]().Size()
}

// IsNaN reports whether v is a floating point NaN. Always false for integers.
func IsNaN[T Value](v T) bool {
	return v != v
}

// Canonical folds negative zero onto positive zero. Other values are returned unchanged.
func Canonical[T Value](v T) T {
	if v == 0 {
		return 0
	}
	return v
}

// IsNegZero reports whether v is a floating point negative zero.
func IsNegZero[T Value](v T) bool {
	switch x := any(v).(type) {
	case float32:
		return x == 0 && math.Signbit(float64(x))
	case float64:
		return x == 0 && math.Signbit(x)
	}
	return false
}

const signBit64 = uint64(1) << 63

// Key returns the order key of v. The result is unspecified for NaN.
func Key[T Value](v T) uint64 {
	switch x := any(v).(type) {
	case int32:
		return uint64(int64(x)) ^ signBit64
	case int64:
		return uint64(x) ^ signBit64
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		if x == 0 {
			return uint64(uint32(1) << 31)
		}
		b := math.Float32bits(x)
		if b&(1<<31) != 0 {
			return uint64(^b)
		}
		return uint64(b | 1<<31)
	case float64:
		if x == 0 {
			return signBit64
		}
		b := math.Float64bits(x)
		if b&signBit64 != 0 {
			return ^b
		}
		return b | signBit64
	}
	return 0
}

// FromKey is the inverse of Key.
func FromKey[T Value](k uint64) T {
	var out T
	switch p := any(&out).(type) {
	case *int32:
		*p = int32(int64(k ^ signBit64))
	case *int64:
		*p = int64(k ^ signBit64)
	case *uint32:
		*p = uint32(k)
	case *uint64:
		*p = k
	case *float32:
		b := uint32(k)
		if b&(1<<31) != 0 {
			b &^= 1 << 31
		} else {
			b = ^b
		}
		*p = math.Float32frombits(b)
	case *float64:
		if k&signBit64 != 0 {
			k &^= signBit64
		} else {
			k = ^k
		}
		*p = math.Float64frombits(k)
	}
	return out
}

// AppendKeys appends the order keys of src to dst.
func AppendKeys[T Value](dst []uint64, src []T) []uint64 {
	for _, v := range src {
		dst = append(dst, Key(v))
	}
	return dst
}

// AppendValues appends the values of the keys in src to dst.
func AppendValues[T Value](dst []T, src []uint64) []T {
	for _, k := range src {
		dst = append(dst, FromKey[T](k))
	}
	return dst
}

// KeyBounds returns the smallest and largest order keys a T can produce.
func KeyBounds[T Value]() (lo, hi uint64) {
	switch KindOf[T]() {
	case KindInt32:
		return Key(int32(math.MinInt32)), Key(int32(math.MaxInt32))
	case KindUint32:
		return 0, math.MaxUint32
	case KindFloat32:
		return Key(float32(math.Inf(-1))), Key(float32(math.Inf(1)))
	case KindFloat64:
		return Key(math.Inf(-1)), Key(math.Inf(1))
	default:
		return 0, math.MaxUint64
	}
}

// Parse parses s as a value of type T.
func Parse[T Value](s string) (T, error) {
	var out T
	var err error
	switch p := any(&out).(type) {
	case *int32:
		var v int64
		v, err = strconv.ParseInt(s, 10, 32)
		*p = int32(v)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *uint32:
		var v uint64
		v, err = strconv.ParseUint(s, 10, 32)
		*p = uint32(v)
	case *uint64:
		*p, err = strconv.ParseUint(s, 10, 64)
	case *float32:
		var v float64
		v, err = strconv.ParseFloat(s, 32)
		*p = float32(v)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		return out, fmt.Errorf("scalar: parse %q as %s: %w", s, KindOf[T](), err)
	}
	return out, nil
}

// Format renders v in the form accepted by Parse.
func Format[T Value](v T) string {
	switch x := any(v).(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return ""
}
