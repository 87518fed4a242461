package export

import (
	"math"

	"golang.org/x/exp/constraints"

	"niftislice/pkg/stats"
)

// Number is any integer or floating point voxel element type.
type Number interface {
	constraints.Integer | constraints.Float
}

// MinMax returns the smallest and largest values. NaNs are skipped; ok is
// false when no comparable value exists.
func MinMax[T Number](values []T) (lo, hi T, ok bool) {
	for _, v := range values {
		if v != v {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// Normalize maps values linearly onto [0, 255] so the minimum becomes 0 and
// the maximum 255. Results are truncated, not rounded. A constant input
// produces an all-zero image, and non-finite values map to 0.
func Normalize(values []float32) []uint8 {
	pix := make([]uint8, len(values))

	lo, hi, ok := MinMax(finite(values))
	if !ok || hi == lo {
		return pix
	}

	// float64 keeps hi-lo finite across the whole float32 range
	scale := float64(hi) - float64(lo)
	for i, v := range values {
		if !isFinite(v) {
			continue
		}
		pix[i] = uint8((float64(v) - float64(lo)) / scale * 255)
	}

	return pix
}

// NormalizeZScore clamps values to mean ± k standard deviations before
// normalizing, which keeps a few bright outliers from flattening the image.
func NormalizeZScore(values []float32, k float64) []uint8 {
	m := stats.Summarize(finite(values))
	if m.Std == 0 {
		return Normalize(values)
	}

	lo := float32(float64(m.Mean) - k*float64(m.Std))
	hi := float32(float64(m.Mean) + k*float64(m.Std))

	clamped := make([]float32, len(values))
	for i, v := range values {
		switch {
		case !isFinite(v):
			clamped[i] = v
		case v < lo:
			clamped[i] = lo
		case v > hi:
			clamped[i] = hi
		default:
			clamped[i] = v
		}
	}

	return Normalize(clamped)
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// finite returns values itself when every element is finite, otherwise a
// filtered copy.
func finite(values []float32) []float32 {
	for i, v := range values {
		if isFinite(v) {
			continue
		}
		out := make([]float32, i, len(values))
		copy(out, values[:i])
		for _, w := range values[i+1:] {
			if isFinite(w) {
				out = append(out, w)
			}
		}
		return out
	}
	return values
}
