// Package stats computes the mean and standard deviation used to describe and
// normalize voxel data. Naive reproduces the sum and sum-of-squares formula
// of older tooling; Welford can be used wherever an Accumulator is accepted.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics holds population statistics over a set of voxels.
type Metrics struct {
	Mean float32
	Std  float32
}

// Accumulator consumes values one at a time and reports their metrics.
type Accumulator interface {
	// Add feeds one value
	Add(x float32)

	// Metrics returns the statistics of every value added so far
	Metrics() Metrics
}

// Naive accumulates x/n and x²/n in float32 and derives the variance as
// E[x²] - E[x]². The total count must be known up front because every term is
// pre-divided by it.
//
// Precision degrades for large counts or values far from zero.
type Naive struct {
	n    float32
	mean float32
	sq   float32
}

// NewNaive returns a Naive accumulator for exactly n values.
func NewNaive(n int) *Naive {
	return &Naive{n: float32(n)}
}

func (a *Naive) Add(x float32) {
	if a.n == 0 {
		return
	}
	a.mean += x / a.n
	a.sq += (x * x) / a.n
}

func (a *Naive) Metrics() Metrics {
	variance := a.sq - a.mean*a.mean
	// cancellation can push a constant input slightly below zero
	if variance < 0 {
		variance = 0
	}
	return Metrics{
		Mean: a.mean,
		Std:  float32(math.Sqrt(float64(variance))),
	}
}

// Welford is a single pass, numerically stable accumulator.
type Welford struct {
	n    int
	mean float64
	m2   float64
}

func (a *Welford) Add(x float32) {
	a.n++
	d := float64(x) - a.mean
	a.mean += d / float64(a.n)
	a.m2 += d * (float64(x) - a.mean)
}

func (a *Welford) Metrics() Metrics {
	if a.n == 0 {
		return Metrics{}
	}
	return Metrics{
		Mean: float32(a.mean),
		Std:  float32(math.Sqrt(a.m2 / float64(a.n))),
	}
}

// Summarize returns population metrics of values computed with gonum.
// NaN values are ignored.
func Summarize(values []float32) Metrics {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if v != v {
			continue
		}
		xs = append(xs, float64(v))
	}
	if len(xs) == 0 {
		return Metrics{}
	}

	mean, std := stat.PopMeanStdDev(xs, nil)
	return Metrics{Mean: float32(mean), Std: float32(std)}
}
