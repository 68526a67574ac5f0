//go:build gpu && cgo

package gpu

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/scalareval/internal/setops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openOpenCL(t *testing.T) *Device {
	t.Helper()
	dev, err := Open(Config{Kind: KindOpenCL})
	if errors.Is(err, ErrUnavailable) {
		t.Skip("no OpenCL GPU")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestOpenCL_SetOperationsAcrossScanBlocks(t *testing.T) {
	dev := openOpenCL(t)
	rng := rand.New(rand.NewPCG(3, 9))

	for _, n := range []int{1, scanBlock - 1, scanBlock, 5*scanBlock + 17} {
		a := randomKeys(rng, n, uint64(4*n))
		b := randomKeys(rng, n, uint64(4*n))

		s, err := dev.Acquire(context.Background())
		require.NoError(t, err)
		av, err := s.Upload(a)
		require.NoError(t, err)
		bv, err := s.Upload(b)
		require.NoError(t, err)

		for name, tc := range map[string]struct {
			want []uint64
			op   func(View, View) (View, error)
		}{
			"intersect":  {setops.Intersect(nil, a, b), s.Intersect},
			"union":      {setops.Union(nil, a, b), s.Union},
			"difference": {setops.Difference(nil, a, b), s.Difference},
		} {
			v, err := tc.op(av, bv)
			require.NoError(t, err, name)
			got, err := s.Download(v)
			require.NoError(t, err, name)
			assert.Equal(t, nilIfEmpty(tc.want), nilIfEmpty(got), "%s n=%d", name, n)
		}
		s.Close()
	}
}
