package scalar

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	assert.Equal(t, KindInt32, KindOf[int32]())
	assert.Equal(t, KindUint64, KindOf[uint64]())
	assert.Equal(t, KindFloat32, KindOf[float32]())
	assert.Equal(t, 4, SizeOf[float32]())
	assert.Equal(t, 8, SizeOf[int64]())
	assert.True(t, KindFloat64.IsFloat())
	assert.False(t, KindInt64.IsFloat())
	assert.Equal(t, "uint32", KindUint32.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func assertOrderPreserving[T Value](t *testing.T, values []T) {
	t.Helper()
	sorted := append([]T(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if a == b {
			assert.Equal(t, Key(a), Key(b), "%v == %v", a, b)
			continue
		}
		assert.Less(t, Key(a), Key(b), "%v < %v", a, b)
	}
	for _, v := range values {
		assert.Equal(t, Canonical(v), FromKey[T](Key(v)), "round trip %v", v)
	}
}

func TestKey_OrderPreserving(t *testing.T) {
	t.Run("int32", func(t *testing.T) {
		assertOrderPreserving(t, []int32{math.MinInt32, -100, -1, 0, 1, 7, math.MaxInt32})
	})
	t.Run("int64", func(t *testing.T) {
		assertOrderPreserving(t, []int64{math.MinInt64, -1 << 40, -1, 0, 1, math.MaxInt64})
	})
	t.Run("uint32", func(t *testing.T) {
		assertOrderPreserving(t, []uint32{0, 1, 1 << 31, math.MaxUint32})
	})
	t.Run("uint64", func(t *testing.T) {
		assertOrderPreserving(t, []uint64{0, 1, 1 << 63, math.MaxUint64})
	})
	t.Run("float32", func(t *testing.T) {
		assertOrderPreserving(t, []float32{
			float32(math.Inf(-1)), -math.MaxFloat32, -1.5, -math.SmallestNonzeroFloat32,
			0, math.SmallestNonzeroFloat32, 1, 2.25, math.MaxFloat32, float32(math.Inf(1)),
		})
	})
	t.Run("float64", func(t *testing.T) {
		assertOrderPreserving(t, []float64{
			math.Inf(-1), -math.MaxFloat64, -3, -math.SmallestNonzeroFloat64,
			0, math.SmallestNonzeroFloat64, 0.5, math.MaxFloat64, math.Inf(1),
		})
	})
}

func TestKey_NegativeZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	assert.Equal(t, Key(0.0), Key(negZero))
	assert.Equal(t, Key(float32(0)), Key(float32(negZero)))
	assert.False(t, math.Signbit(Canonical(negZero)))
	assert.False(t, math.Signbit(FromKey[float64](Key(negZero))))
	assert.True(t, IsNegZero(negZero))
	assert.True(t, IsNegZero(float32(negZero)))
	assert.False(t, IsNegZero(0.0))
	assert.False(t, IsNegZero(int64(0)))
}

func TestIsNaN(t *testing.T) {
	assert.True(t, IsNaN(math.NaN()))
	assert.True(t, IsNaN(float32(math.NaN())))
	assert.False(t, IsNaN(1.0))
	assert.False(t, IsNaN(int32(0)))
}

func TestKeyBounds(t *testing.T) {
	lo, hi := KeyBounds[int32]()
	assert.Equal(t, Key(int32(math.MinInt32)), lo)
	assert.Equal(t, Key(int32(math.MaxInt32)), hi)
	assert.Equal(t, int32(math.MinInt32), FromKey[int32](lo))

	lo, hi = KeyBounds[float64]()
	assert.True(t, math.IsInf(FromKey[float64](lo), -1))
	assert.True(t, math.IsInf(FromKey[float64](hi), 1))

	lo, hi = KeyBounds[uint64]()
	assert.Equal(t, uint64(0), lo)
	assert.Equal(t, uint64(math.MaxUint64), hi)
}

func TestAppendKeysValues(t *testing.T) {
	in := []int64{-5, 0, 9}
	keys := AppendKeys(nil, in)
	require.Len(t, keys, 3)
	assert.Equal(t, in, AppendValues[int64](nil, keys))
}

func TestParseFormat(t *testing.T) {
	v, err := Parse[int32]("-42")
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v)
	assert.Equal(t, "-42", Format(v))

	f, err := Parse[float64]("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
	assert.Equal(t, "2.5", Format(f))

	_, err = Parse[uint32]("-1")
	assert.Error(t, err)
	_, err = Parse[int32]("4294967296")
	assert.Error(t, err)
	_, err = Parse[float32]("abc")
	assert.Error(t, err)
}
