package domain

import "math"

// Range is a closed numeric interval [lo, hi]. Lo may exceed Hi to express
// an inverted mapping.
type Range [2]float64

// Rescale linearly maps every element of xs from the source range to the
// target range. A nil from uses the min and max of xs. A degenerate source
// range (min == max) maps every element to to[0].
func Rescale(xs []float64, from *Range, to Range) []float64 {
	var src Range
	if from != nil {
		src = *from
	} else {
		src = Range{minOf(xs), maxOf(xs)}
	}

	out := make([]float64, len(xs))
	span := src[1] - src[0]
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		for i := range out {
			out[i] = to[0]
		}
		return out
	}
	for i, x := range xs {
		out[i] = to[0] + (x-src[0])/span*(to[1]-to[0])
	}
	return out
}

// Clamp bounds every element of xs to [r[0], r[1]].
func Clamp(xs []float64, r Range) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Min(math.Max(x, r[0]), r[1])
	}
	return out
}

// AddArrays returns the element-wise sum. The result has the length of the
// shorter input.
func AddArrays(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range n {
		out[i] = a[i] + b[i]
	}
	return out
}

// MultiplyArrays returns the element-wise product. The result has the length
// of the shorter input.
func MultiplyArrays(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range n {
		out[i] = a[i] * b[i]
	}
	return out
}

// MultiplyArrayBy scales every element by k.
func MultiplyArrayBy(xs []float64, k float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * k
	}
	return out
}

// DurationFromVolumes maps a normalized volume vector to relative note
// durations: x^exponent for non-negative x, 0 otherwise. The mapping is
// monotone, so louder notes sustain longer.
func DurationFromVolumes(xs []float64, exponent float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x > 0 {
			out[i] = math.Pow(x, exponent)
		}
	}
	return out
}

// Sanitize returns a copy of xs with exactly Months elements: missing
// trailing values and NaN/Inf entries become 0, extra values are dropped.
func Sanitize(xs []float64) []float64 {
	out := make([]float64, Months)
	for i := 0; i < Months && i < len(xs); i++ {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) {
			continue
		}
		out[i] = xs[i]
	}
	return out
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}
