package sqi

import "math"

// classifyLow is the first rating stage. It flags unambiguous hardware or
// contact failures, for which any further spectral reasoning is meaningless:
// flat lines, saturation, out-of-range intensities, implausibly large
// excursions, variance at electronic-noise level, and degenerate spectra.
func classifyLow(f Features, cfg Config) LowVerdict {
	switch {
	case f.Flatline, f.Saturated, f.OutOfRange:
		return Low
	case f.Detrended.PeakToPeak > cfg.AmplitudeCeiling:
		return Low
	case f.Detrended.Variance < cfg.VarianceFloor:
		return Low
	case f.Spectral.Degenerate:
		return Low
	}
	return NotLow
}

// classifyHigh is the second rating stage, run only on segments the first
// stage passed. A found cardiac peak that is both prominent and narrow is a
// high-specificity marker of good optode contact.
func classifyHigh(f Features, cfg Config) HighVerdict {
	s := f.Spectral
	if !s.PeakFound {
		return NotHigh
	}
	if s.Prominence <= cfg.ProminenceThreshold {
		return NotHigh
	}
	if s.Bandwidth >= cfg.BandwidthThreshold {
		return NotHigh
	}
	return High
}

// rate is the intermediate stage for segments that are neither clearly bad
// nor clearly good. No single indicator resolves this band, so it blends
// normalized continuous features into a composite in [0,1] and cuts it into
// the scores 2, 3 and 4. A composite exactly at a cut point takes the lower
// score: when the evidence is ambiguous the rating stays cautious.
func rate(f Features, cfg Config) Score {
	prominence := clamp(f.Spectral.Prominence/cfg.ProminenceThreshold, 0, 1)
	variance := logNormalize(f.Detrended.Variance, cfg.VarianceFloor, cfg.VarianceCeiling)
	motion := 1 - clamp(float64(f.MotionSpikes)/float64(cfg.MotionMaxCount), 0, 1)
	periodicity := clamp(f.Periodicity, 0, 1)

	weightSum := cfg.ProminenceWeight + cfg.VarianceWeight + cfg.MotionWeight + cfg.PeriodicityWeight
	composite := (cfg.ProminenceWeight*prominence +
		cfg.VarianceWeight*variance +
		cfg.MotionWeight*motion +
		cfg.PeriodicityWeight*periodicity) / weightSum

	switch {
	case composite <= cfg.RateCutLow:
		return ScoreLow
	case composite <= cfg.RateCutHigh:
		return ScoreFair
	default:
		return ScoreGood
	}
}

// logNormalize maps v onto [0,1] logarithmically between floor and ceiling.
// Variance spans orders of magnitude, so a linear scale would collapse
// everything below the ceiling into zero.
func logNormalize(v, floor, ceiling float64) float64 {
	if v <= floor {
		return 0
	}
	if v >= ceiling {
		return 1
	}
	return (math.Log(v) - math.Log(floor)) / (math.Log(ceiling) - math.Log(floor))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
