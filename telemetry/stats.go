package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Board state at window end
	Live         int `csv:"live"`
	Score        int `csv:"score"`
	PendingPairs int `csv:"pending_pairs"`
	CeilingCount int `csv:"ceiling"`
	MaxTier      int `csv:"max_tier"` // -1 on an empty board

	// Events during window
	Released       int `csv:"released"`
	Merges         int `csv:"merges"`
	TerminalMerges int `csv:"terminal_merges"`
	Golden         int `csv:"golden"`
	UpgradedGolden int `csv:"upgraded_golden"`
	SkillsUsed     int `csv:"skills_used"`
	Destroyed      int `csv:"destroyed"`
	OutOfBounds    int `csv:"out_of_bounds"`
	Points         int `csv:"points"`
	Resets         int `csv:"resets"`

	// Merges by input tier
	MergesT0 int `csv:"merges_t0"`
	MergesT1 int `csv:"merges_t1"`
	MergesT2 int `csv:"merges_t2"`
	MergesT3 int `csv:"merges_t3"`
	MergesT4 int `csv:"merges_t4"`
	MergesT5 int `csv:"merges_t5"`
	MergesT6 int `csv:"merges_t6"`
	MergesT7 int `csv:"merges_t7"`
	MergesT8 int `csv:"merges_t8"`
	MergesT9 int `csv:"merges_t9"`

	// Tier distribution of live fruit
	TierMean float64 `csv:"tier_mean"`
	TierStd  float64 `csv:"tier_std"`
	TierP50  float64 `csv:"tier_p50"`
	TierP90  float64 `csv:"tier_p90"`

	// Lifetime of fruit destroyed during the window (seconds)
	LifetimeMean float64 `csv:"lifetime_mean"`
	LifetimeP50  float64 `csv:"lifetime_p50"`
}

// SetMergesByTier copies per-tier merge counts into the flat CSV fields.
func (s *WindowStats) SetMergesByTier(counts []int) {
	fields := []*int{
		&s.MergesT0, &s.MergesT1, &s.MergesT2, &s.MergesT3, &s.MergesT4,
		&s.MergesT5, &s.MergesT6, &s.MergesT7, &s.MergesT8, &s.MergesT9,
	}
	for i, f := range fields {
		if i < len(counts) {
			*f = counts[i]
		}
	}
}

// MergesByTier returns per-tier merge counts.
func (s WindowStats) MergesByTier() []int {
	return []int{
		s.MergesT0, s.MergesT1, s.MergesT2, s.MergesT3, s.MergesT4,
		s.MergesT5, s.MergesT6, s.MergesT7, s.MergesT8, s.MergesT9,
	}
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeDistribution calculates mean, population std and percentiles.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	mean, std := stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
	}
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"live", s.Live,
		"score", s.Score,
		"max_tier", s.MaxTier,
		"pending_pairs", s.PendingPairs,
		"ceiling", s.CeilingCount,
		"released", s.Released,
		"merges", s.Merges,
		"merges_by_tier", s.MergesByTier(),
		"terminal_merges", s.TerminalMerges,
		"golden", s.Golden,
		"upgraded_golden", s.UpgradedGolden,
		"skills_used", s.SkillsUsed,
		"destroyed", s.Destroyed,
		"out_of_bounds", s.OutOfBounds,
		"points", s.Points,
		"resets", s.Resets,
		"tier_mean", s.TierMean,
		"tier_std", s.TierStd,
		"tier_p50", s.TierP50,
		"tier_p90", s.TierP90,
		"lifetime_mean", s.LifetimeMean,
		"lifetime_p50", s.LifetimeP50,
	)
}
