package metric_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scalareval"
	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/metric"
	"github.com/hupe1980/scalareval/setview"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metric.NewPrometheusCollector(reg, "test")

	c.RecordEvaluate("cpu", 4, time.Millisecond, nil)
	c.RecordEvaluate("cpu", 4, time.Millisecond, errors.New("boom"))
	c.RecordChunk("cpu", time.Microsecond)
	c.RecordChunk("cpu", time.Microsecond)
	c.RecordMatchAny("gpu", 10, 3, time.Millisecond, nil)
	c.RecordMatchAny("gpu", 10, 0, time.Millisecond, errors.New("boom"))
	c.RecordFallback("gpu", "cpu")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 9)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "test_evaluations_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "test_fallbacks_total"))
}

func TestPrometheusCollectorWithEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metric.NewPrometheusCollector(reg, "scalareval")

	cat := setview.NewCatalog[int64]()
	defer cat.Close()
	a, err := cat.AddValues([]int64{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := cat.AddValues([]int64{3, 4, 5})
	require.NoError(t, err)

	eng, err := scalareval.New(cat, scalareval.WithMetricsCollector(c), scalareval.WithChunks(2))
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Evaluate(context.Background(), expr.Intersect(expr.Leaf[int64](a), expr.Leaf[int64](b)))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, res.Values)

	_, err = eng.MatchAny(context.Background(), []int64{5}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "scalareval_evaluations_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "scalareval_match_any_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "scalareval_match_any_sets_matched_total"))
}
