package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistogramCountAndSum(t *testing.T) {
	var h Histogram
	h.Record(100)
	h.Record(200)
	h.Record(300)

	require.Equal(t, uint64(3), h.Count())
	require.Equal(t, uint64(600), h.Sum())
	require.InDelta(t, 200, h.Mean(), 0.001)
}

func TestHistogramPercentileMonotonic(t *testing.T) {
	var h Histogram
	for _, ns := range []uint64{10, 50, 100, 500, 1000, 5000, 10000} {
		h.Record(ns)
	}

	p50 := h.Percentile(50)
	p99 := h.Percentile(99)
	require.LessOrEqual(t, p50, p99)
}

func TestHistogramEmpty(t *testing.T) {
	var h Histogram
	require.Equal(t, uint64(0), h.Count())
	require.Equal(t, uint64(0), h.Percentile(50))
	require.Equal(t, float64(0), h.Mean())
}

func TestMeasureRecordsElapsed(t *testing.T) {
	var h Histogram
	m := StartMeasure(&h)
	m.Done()
	require.Equal(t, uint64(1), h.Count())
}
