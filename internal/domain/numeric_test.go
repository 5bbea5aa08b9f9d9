package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	t.Run("explicit source range", func(t *testing.T) {
		got := Rescale([]float64{0, 0.5, 1}, &Range{0, 1}, Range{10, 20})
		assert.InDeltaSlice(t, []float64{10, 15, 20}, got, 1e-12)
	})

	t.Run("inverted target", func(t *testing.T) {
		got := Rescale([]float64{0, 0.25, 1}, &Range{0, 1}, Range{1, 0})
		assert.InDeltaSlice(t, []float64{1, 0.75, 0}, got, 1e-12)
	})

	t.Run("nil source uses own extrema", func(t *testing.T) {
		got := Rescale([]float64{2, 4, 6}, nil, Range{-0.1, 0})
		assert.InDeltaSlice(t, []float64{-0.1, -0.05, 0}, got, 1e-12)
	})

	t.Run("degenerate source maps to lower target", func(t *testing.T) {
		got := Rescale([]float64{3, 3, 3}, nil, Range{0.02, 0.15})
		assert.Equal(t, []float64{0.02, 0.02, 0.02}, got)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float64{0, 1}
		Rescale(in, nil, Range{5, 6})
		assert.Equal(t, []float64{0, 1}, in)
	})
}

func TestRescale_RoundTrip(t *testing.T) {
	xs := []float64{0, 0.013, 0.27, 0.5, 0.61, 0.999, 1, 0.3333333, 0.42, 0.77, 0.05, 0.9}
	a := Range{0, 1}
	b := Range{0.6, 0.1}

	forward := Rescale(xs, &a, b)
	back := Rescale(forward, &b, a)

	require.Len(t, back, len(xs))
	for i := range xs {
		assert.InDelta(t, xs[i], back[i], 1e-9, "index %d", i)
	}
}

func TestClamp(t *testing.T) {
	got := Clamp([]float64{-1, 0.01, 0.5, 2}, Range{0.02, 1})
	assert.Equal(t, []float64{0.02, 0.02, 0.5, 1}, got)
}

func TestArrayOps(t *testing.T) {
	assert.Equal(t, []float64{4, 6}, AddArrays([]float64{1, 2}, []float64{3, 4, 5}))
	assert.Equal(t, []float64{3, 8}, MultiplyArrays([]float64{1, 2, 7}, []float64{3, 4}))
	assert.Equal(t, []float64{2, 4, 6}, MultiplyArrayBy([]float64{1, 2, 3}, 2))
}

func TestDurationFromVolumes_Monotone(t *testing.T) {
	xs := []float64{0, 0.02, 0.1, 0.25, 0.5, 0.9, 1}
	got := DurationFromVolumes(xs, 0.5)

	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 0.5, got[3], 1e-12)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestSanitize(t *testing.T) {
	t.Run("pads short vectors", func(t *testing.T) {
		got := Sanitize([]float64{0.5, 0.25})
		require.Len(t, got, Months)
		assert.Equal(t, 0.5, got[0])
		assert.Equal(t, 0.25, got[1])
		assert.Equal(t, 0.0, got[11])
	})

	t.Run("truncates long vectors", func(t *testing.T) {
		in := make([]float64, 20)
		for i := range in {
			in[i] = 1
		}
		assert.Len(t, Sanitize(in), Months)
	})

	t.Run("replaces NaN and Inf", func(t *testing.T) {
		got := Sanitize([]float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.3})
		assert.Equal(t, []float64{0, 0, 0, 0.3}, got[:4])
	})
}
