// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scorer computes composite power rankings from enriched tracks.
//
// Per metric, raw values are collected across the whole population (absent
// value = 0; not-applicable platforms excluded entirely), normalized with a
// pluggable strategy, and weighted by that metric's data availability.
// Category scores aggregate into a final weighted average, so a track
// present on one platform is not penalized against a track present on ten.
package scorer

import (
	"math"
	"sort"

	"github.com/ovasilev/powerchart/internal/normalize"
	"github.com/ovasilev/powerchart/pkg/types"
)

// Scorer ranks enriched tracks using a category configuration and a
// normalization strategy, both fixed at construction.
type Scorer struct {
	cfg      Config
	strategy normalize.Strategy
}

// New returns a Scorer. A nil strategy defaults to MinMax.
func New(cfg Config, strategy normalize.Strategy) *Scorer {
	if strategy == nil {
		strategy = normalize.MinMax{}
	}
	return &Scorer{cfg: cfg, strategy: strategy}
}

// StrategyName names the normalization strategy in use.
func (s *Scorer) StrategyName() string { return s.strategy.Name() }

// metricStats holds the population-level results for one metric.
type metricStats struct {
	// normalized maps track index -> normalized value; only applicable
	// tracks have an entry.
	normalized map[int]float64

	// availability = non-zero raw values / applicable tracks, in [0,1].
	availability float64
}

// ComputeRankings scores every track and returns them ranked by descending
// final score. Ties break on the track identifier so ordering is
// reproducible run to run.
func (s *Scorer) ComputeRankings(tracks []types.EnrichedTrack) []types.PowerRanking {
	if len(tracks) == 0 {
		return nil
	}

	stats := s.computeMetricStats(tracks)
	categories := s.cfg.CategoryNames()

	rankings := make([]types.PowerRanking, 0, len(tracks))
	for i, et := range tracks {
		var scores []types.CategoryScore
		var weightedSum, weightSum float64

		for _, category := range categories {
			cs := s.categoryScore(category, i, stats)
			scores = append(scores, cs)
			weightedSum += cs.RawScore * cs.Weight
			weightSum += cs.Weight
		}

		final := 0.0
		if weightSum > 0 {
			final = weightedSum / weightSum
		}
		final = clamp(final, normalize.TargetMin, normalize.TargetMax)

		rankings = append(rankings, types.PowerRanking{
			Track:          et.Track,
			FinalScore:     final,
			CategoryScores: scores,
		})
	}

	sort.SliceStable(rankings, func(a, b int) bool {
		if rankings[a].FinalScore != rankings[b].FinalScore {
			return rankings[a].FinalScore > rankings[b].FinalScore
		}
		return rankings[a].Track.Identifier() < rankings[b].Track.Identifier()
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// computeMetricStats normalizes each configured metric across the population
// and computes its availability.
func (s *Scorer) computeMetricStats(tracks []types.EnrichedTrack) map[string]metricStats {
	stats := make(map[string]metricStats)

	for _, metrics := range s.cfg.Categories {
		for _, metric := range metrics {
			if _, done := stats[metric]; done {
				continue
			}

			// Collect raw values for applicable tracks only; a missing
			// platform link excludes the track from this metric's
			// population entirely.
			var raws []float64
			var indexes []int
			nonZero := 0
			for i, et := range tracks {
				if !et.Metrics.Applicable(metric) {
					continue
				}
				v := et.Metrics.Value(metric)
				raws = append(raws, v)
				indexes = append(indexes, i)
				if v != 0 {
					nonZero++
				}
			}

			ms := metricStats{normalized: make(map[int]float64, len(indexes))}
			if len(indexes) > 0 {
				ms.availability = float64(nonZero) / float64(len(indexes))
				for j, norm := range s.strategy.Normalize(raws) {
					ms.normalized[indexes[j]] = norm
				}
			}
			stats[metric] = ms
		}
	}
	return stats
}

// categoryScore computes one category's score record for the track at
// trackIdx.
//
// Raw score is the availability-weighted average over the metrics applicable
// to this track; zero total availability defines the score as 0 (no data,
// no contribution). The effective weight is population-level: mean
// availability across all the category's metrics times the importance
// multiplier.
func (s *Scorer) categoryScore(category string, trackIdx int, stats map[string]metricStats) types.CategoryScore {
	metrics := s.cfg.Categories[category]

	var num, den float64
	var availSum float64
	for _, metric := range metrics {
		ms := stats[metric]
		availSum += ms.availability
		norm, applicable := ms.normalized[trackIdx]
		if !applicable {
			continue
		}
		num += norm * ms.availability
		den += ms.availability
	}

	raw := 0.0
	if den > 0 {
		raw = num / den
	}

	meanAvail := 0.0
	if len(metrics) > 0 {
		meanAvail = availSum / float64(len(metrics))
	}

	return types.CategoryScore{
		Category:     category,
		RawScore:     raw,
		Weight:       meanAvail * s.cfg.Weight(category),
		Availability: meanAvail,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
