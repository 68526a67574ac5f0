package scalareval

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/gpu"
	"github.com/hupe1980/scalareval/internal/resource"
	"github.com/hupe1980/scalareval/scalar"
	"github.com/hupe1980/scalareval/setview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog[T scalar.Value](t *testing.T, sets ...[]T) *setview.Catalog[T] {
	t.Helper()
	c := setview.NewCatalog[T]()
	for _, s := range sets {
		_, err := c.AddValues(s)
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func openDevice(t *testing.T, cfg gpu.Config) *gpu.Device {
	t.Helper()
	dev, err := gpu.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func newEngines[T scalar.Value](t *testing.T, cat *setview.Catalog[T], opts ...Option) map[string]*Engine[T] {
	t.Helper()
	dev := openDevice(t, gpu.Config{WindowSize: 64})

	cpu, err := New(cat, append([]Option{WithWorkers(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cpu.Close() })

	g, err := New(cat, append([]Option{WithBackend(BackendGPU), WithDevice(dev)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	return map[string]*Engine[T]{"cpu": cpu, "gpu": g}
}

func TestEngine_Evaluate(t *testing.T) {
	cat := newCatalog(t,
		[]int64{1, 3, 5, 7, 9, 11},
		[]int64{3, 4, 5, 6, 7},
		[]int64{-10, 0, 100},
	)
	tests := []struct {
		name string
		node *expr.Node[int64]
		want []int64
	}{
		{"leaf", expr.Leaf[int64](2), []int64{-10, 0, 100}},
		{"intersect", expr.Intersect(expr.Leaf[int64](0), expr.Leaf[int64](1)), []int64{3, 5, 7}},
		{"union", expr.Union(expr.Leaf[int64](1), expr.Leaf[int64](2)), []int64{-10, 0, 3, 4, 5, 6, 7, 100}},
		{"difference", expr.Difference(expr.Leaf[int64](0), expr.Leaf[int64](1)), []int64{1, 9, 11}},
		{"range inclusive", expr.Range[int64](0, 3, 9, expr.Inclusive), []int64{3, 5, 7, 9}},
		{"range half open", expr.Range[int64](0, 3, 9, expr.HalfOpen), []int64{3, 5, 7}},
		{"range exclusive", expr.Range[int64](0, 3, 9, expr.Exclusive), []int64{5, 7}},
		{"empty range", expr.Range[int64](0, 4, 4, expr.Inclusive), nil},
		{"nested", expr.Union(
			expr.Difference(expr.Leaf[int64](0), expr.Range[int64](1, 0, 5, expr.Inclusive)),
			expr.Range[int64](2, -100, 0, expr.HalfOpen),
		), []int64{-10, 1, 7, 9, 11}},
	}
	for name, eng := range newEngines(t, cat) {
		for _, chunks := range []int{1, 3, 16} {
			eng.chunks = chunks
			for _, tt := range tests {
				t.Run(name+"/"+tt.name, func(t *testing.T) {
					res, err := eng.Evaluate(context.Background(), tt.node)
					require.NoError(t, err)
					if len(tt.want) == 0 {
						assert.Empty(t, res.Values)
					} else {
						assert.Equal(t, tt.want, res.Values)
					}
					assert.Equal(t, name, res.Stats.Backend)
					assert.LessOrEqual(t, res.Stats.Chunks, chunks)
					assert.Len(t, res.Stats.ChunkTimes, res.Stats.Chunks)
				})
			}
		}
	}
}

func TestEngine_Floats(t *testing.T) {
	negZero := math.Copysign(0, -1)
	cat := newCatalog(t,
		[]float64{math.NaN(), negZero, 1.5, math.Inf(1)},
		[]float64{0, 1.5, math.Inf(-1)},
	)
	for name, eng := range newEngines(t, cat) {
		t.Run(name, func(t *testing.T) {
			res, err := eng.Evaluate(context.Background(), expr.Intersect(expr.Leaf[float64](0), expr.Leaf[float64](1)))
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1.5}, res.Values)
			assert.False(t, math.Signbit(res.Values[0]))

			res, err = eng.Evaluate(context.Background(), expr.Range(0, negZero, math.Inf(1), expr.HalfOpen))
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1.5}, res.Values)

			m, err := eng.MatchAny(context.Background(), []float64{math.NaN()}, nil)
			require.NoError(t, err)
			assert.Zero(t, m.Count)

			m, err = eng.MatchAny(context.Background(), []float64{negZero}, nil)
			require.NoError(t, err)
			assert.Equal(t, []uint32{0, 1}, m.Handles())
		})
	}
}

func TestEngine_EmptyDomain(t *testing.T) {
	cat := newCatalog(t, []uint32{}, []uint32{})
	for name, eng := range newEngines(t, cat) {
		t.Run(name, func(t *testing.T) {
			res, err := eng.Evaluate(context.Background(), expr.Union(expr.Leaf[uint32](0), expr.Leaf[uint32](1)))
			require.NoError(t, err)
			assert.Empty(t, res.Values)
			assert.True(t, res.Stats.EmptyDomain)
			assert.Zero(t, res.Stats.Chunks)
		})
	}
}

func TestEngine_Malformed(t *testing.T) {
	cat := newCatalog(t, []int32{1, 2})
	eng, err := New(cat)
	require.NoError(t, err)
	defer eng.Close()

	for _, n := range []*expr.Node[int32]{
		nil,
		expr.Leaf[int32](5),
		expr.Range[int32](0, 3, 1, expr.Inclusive),
		expr.Union(expr.Leaf[int32](0), nil),
	} {
		_, err := eng.Evaluate(context.Background(), n)
		assert.ErrorIs(t, err, ErrMalformedExpression)
		assert.ErrorIs(t, err, expr.ErrMalformed)
	}

	_, err = eng.MatchAny(context.Background(), []int32{1}, []setview.Handle{7})
	assert.ErrorIs(t, err, ErrMalformedExpression)
}

func TestEngine_MatchAny(t *testing.T) {
	cat := newCatalog(t,
		[]uint64{1, 5, 9},
		[]uint64{2, 4, 6},
		[]uint64{},
		[]uint64{9, 10},
	)
	for name, eng := range newEngines(t, cat) {
		t.Run(name, func(t *testing.T) {
			m, err := eng.MatchAny(context.Background(), []uint64{9, 3}, nil)
			require.NoError(t, err)
			assert.Equal(t, 2, m.Count)
			assert.Equal(t, []uint32{0, 3}, m.Handles())

			m, err = eng.MatchAny(context.Background(), []uint64{4}, []setview.Handle{1, 3})
			require.NoError(t, err)
			assert.Equal(t, []uint32{1}, m.Handles())

			m, err = eng.MatchAny(context.Background(), nil, nil)
			require.NoError(t, err)
			assert.Zero(t, m.Count)
		})
	}
}

func TestEngine_BackendUnavailable(t *testing.T) {
	cat := newCatalog(t, []int64{1})

	_, err := New(cat, WithBackend(BackendGPU))
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	metrics := &BasicMetricsCollector{}
	eng, err := New(cat, WithBackend(BackendGPU), WithCPUFallback(true), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer eng.Close()
	assert.Equal(t, BackendCPU, eng.Backend())
	assert.Equal(t, int64(1), metrics.GetStats().FallbackCount)

	res, err := eng.Evaluate(context.Background(), expr.Leaf[int64](0))
	require.NoError(t, err)
	assert.Equal(t, "cpu", res.Stats.Backend)
	assert.True(t, res.Stats.Fallback)
}

func TestEngine_DeviceExecutionFailed(t *testing.T) {
	cat := newCatalog(t, []int64{1, 2, 3}, []int64{2, 3})
	dev := openDevice(t, gpu.Config{FaultHook: func(op string) error {
		if op == "compact" {
			return errors.New("injected")
		}
		return nil
	}})
	eng, err := New(cat, WithBackend(BackendGPU), WithDevice(dev))
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Evaluate(context.Background(), expr.Intersect(expr.Leaf[int64](0), expr.Leaf[int64](1)))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrDeviceExecutionFailed)
	assert.ErrorIs(t, err, gpu.ErrExecution)
}

func TestEngine_ResourceExhausted(t *testing.T) {
	a := make([]int64, 1000)
	b := make([]int64, 1000)
	for i := range a {
		a[i], b[i] = int64(2*i), int64(2*i+1)
	}
	cat := newCatalog(t, a, b)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
	for name, eng := range newEngines(t, cat, WithResourceController(rc)) {
		t.Run(name, func(t *testing.T) {
			_, err := eng.Evaluate(context.Background(), expr.Union(expr.Leaf[int64](0), expr.Leaf[int64](1)))
			assert.ErrorIs(t, err, ErrResourceExhausted)
			assert.Zero(t, rc.MemoryUsage())
		})
	}

	eng, err := New(cat, WithMemoryLimit(1<<20))
	require.NoError(t, err)
	defer eng.Close()
	res, err := eng.Evaluate(context.Background(), expr.Union(expr.Leaf[int64](0), expr.Leaf[int64](1)))
	require.NoError(t, err)
	assert.Equal(t, 2000, res.Len())
	assert.Positive(t, res.Stats.ReservedBytes)
}

func TestEngine_Cancelled(t *testing.T) {
	cat := newCatalog(t, []int64{1, 2, 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, eng := range newEngines(t, cat) {
		t.Run(name, func(t *testing.T) {
			res, err := eng.Evaluate(ctx, expr.Leaf[int64](0))
			assert.Nil(t, res)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestEngine_Closed(t *testing.T) {
	cat := newCatalog(t, []int64{1})
	eng, err := New(cat)
	require.NoError(t, err)
	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	_, err = eng.Evaluate(context.Background(), expr.Leaf[int64](0))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = eng.MatchAny(context.Background(), []int64{1}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngine_Defaults(t *testing.T) {
	cat := newCatalog(t, []int64{1})
	dev := openDevice(t, gpu.Config{})

	eng, err := New(cat, WithWorkers(3))
	require.NoError(t, err)
	defer eng.Close()
	assert.Equal(t, 3, eng.Chunks())

	g, err := New(cat, WithBackend(BackendGPU), WithDevice(dev))
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, DefaultGPUChunks, g.Chunks())

	g2, err := New(cat, WithBackend(BackendGPU), WithDevice(dev), WithChunks(8))
	require.NoError(t, err)
	defer g2.Close()
	assert.Equal(t, 8, g2.Chunks())

	_, err = New[int64](nil)
	assert.Error(t, err)
}

func TestEngine_Metrics(t *testing.T) {
	cat := newCatalog(t, []int64{1, 2, 3, 4})
	metrics := &BasicMetricsCollector{}
	eng, err := New(cat, WithChunks(2), WithMetricsCollector(metrics), WithLogger(NoopLogger()))
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Evaluate(context.Background(), expr.Leaf[int64](0))
	require.NoError(t, err)
	_, err = eng.Evaluate(context.Background(), expr.Leaf[int64](9))
	require.Error(t, err)
	_, err = eng.MatchAny(context.Background(), []int64{4}, nil)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.EvaluateCount)
	assert.Equal(t, int64(1), stats.EvaluateErrors)
	assert.Equal(t, int64(2), stats.ChunkCount)
	assert.Equal(t, int64(1), stats.MatchAnyCount)
	assert.Equal(t, int64(1), stats.SetsMatched)
}

func TestEngine_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cat := newCatalog(t, []int64{1, 2, 3, 4})
	eng, err := New(cat, WithChunks(2), WithLogger(logger))
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Evaluate(context.Background(), expr.Leaf[int64](0))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "evaluate completed")
	assert.Contains(t, out, "backend=cpu")
	assert.Contains(t, out, "chunks=2")
	assert.Contains(t, out, "results=4")
}
