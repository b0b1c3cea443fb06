// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize rescales raw metric values onto a fixed target interval.
// Three interchangeable strategies implement the same interface: MinMax,
// ZScore, and Robust. Callers select a strategy once, at scorer construction.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Target interval for all strategies.
const (
	TargetMin = 0.0
	TargetMax = 100.0
	Midpoint  = (TargetMin + TargetMax) / 2
)

// clipSigma bounds z-scores and robust scores before rescaling, so a single
// outlier cannot compress the rest of the distribution into a sliver.
const clipSigma = 3.0

// Strategy rescales an ordered list of raw values onto [TargetMin, TargetMax].
// The output has the same length and order as the input. Degenerate input
// (all values equal) maps every element to Midpoint. Non-finite input values
// map to TargetMin.
type Strategy interface {
	Normalize(values []float64) []float64
	Name() string
}

// ForName returns the strategy registered under name (minmax, zscore, robust).
func ForName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "minmax":
		return MinMax{}, nil
	case "zscore":
		return ZScore{}, nil
	case "robust":
		return Robust{}, nil
	default:
		return nil, fmt.Errorf("unknown normalization strategy %q (want minmax, zscore, or robust)", name)
	}
}

// MinMax rescales linearly between the observed minimum and maximum.
type MinMax struct{}

// Name returns the strategy identifier.
func (MinMax) Name() string { return "minmax" }

// Normalize maps min to TargetMin and max to TargetMax.
func (MinMax) Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clean := finiteOnly(values)
	if len(clean) == 0 {
		return fill(len(values), TargetMin)
	}

	lo, hi := clean[0], clean[0]
	for _, v := range clean {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return degenerate(values)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) {
			out[i] = TargetMin
			continue
		}
		out[i] = TargetMin + (v-lo)/(hi-lo)*(TargetMax-TargetMin)
	}
	return out
}

// ZScore standardizes to mean 0 / standard deviation 1, clips to
// [-clipSigma, clipSigma], and rescales that range onto the target interval.
type ZScore struct{}

// Name returns the strategy identifier.
func (ZScore) Name() string { return "zscore" }

// Normalize rescales via standard scores.
func (ZScore) Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clean := finiteOnly(values)
	if len(clean) == 0 {
		return fill(len(values), TargetMin)
	}

	mean := 0.0
	for _, v := range clean {
		mean += v
	}
	mean /= float64(len(clean))

	variance := 0.0
	for _, v := range clean {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(clean)))
	if std == 0 {
		return degenerate(values)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) {
			out[i] = TargetMin
			continue
		}
		out[i] = rescaleClipped((v - mean) / std)
	}
	return out
}

// Robust centers on the median and scales by the interquartile range, with
// the same clip-and-rescale finish as ZScore. Resistant to outliers.
type Robust struct{}

// Name returns the strategy identifier.
func (Robust) Name() string { return "robust" }

// Normalize rescales via median/IQR scores.
func (Robust) Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clean := finiteOnly(values)
	if len(clean) == 0 {
		return fill(len(values), TargetMin)
	}

	med := median(clean)
	iqr := percentile(clean, 75) - percentile(clean, 25)
	if iqr == 0 {
		return degenerate(values)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) {
			out[i] = TargetMin
			continue
		}
		out[i] = rescaleClipped((v - med) / iqr)
	}
	return out
}

// rescaleClipped maps a score in [-clipSigma, clipSigma] onto the target
// interval, clipping first.
func rescaleClipped(score float64) float64 {
	clipped := math.Max(-clipSigma, math.Min(clipSigma, score))
	return TargetMin + (clipped+clipSigma)/(2*clipSigma)*(TargetMax-TargetMin)
}

// degenerate maps every finite element to Midpoint.
func degenerate(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if isFinite(v) {
			out[i] = Midpoint
		} else {
			out[i] = TargetMin
		}
	}
	return out
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func finiteOnly(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			clean = append(clean, v)
		}
	}
	return clean
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// percentile computes the p-th percentile with linear interpolation.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	k := float64(len(sorted)-1) * p / 100
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	return sorted[int(f)]*(c-k) + sorted[int(c)]*(k-f)
}
