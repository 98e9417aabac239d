package sqi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// railTolerance is the fraction of the channel's amplitude range two samples
// may differ by and still count as the same extreme value.
const railTolerance = 1e-9

// minSaturationRun is the shortest run of rail samples that counts towards
// saturation. Clipping pins the signal for several consecutive samples; an
// isolated extreme is just the crest of a waveform.
const minSaturationRun = 3

// segmentChannel splits a channel into fixed-length windows and removes the
// linear baseline from each. Windows advance by SegmentLength minus
// SegmentOverlap samples; a trailing remainder shorter than one window is
// dropped. A channel shorter than one window yields InsufficientDataError.
func segmentChannel(ch Channel, cfg Config) ([]Segment, error) {
	n := len(ch.Samples)
	if n < cfg.SegmentLength {
		return nil, &InsufficientDataError{ChannelID: ch.ID, Samples: n, Required: cfg.SegmentLength}
	}

	step := cfg.SegmentLength - cfg.SegmentOverlap
	segments := make([]Segment, 0, 1+(n-cfg.SegmentLength)/step)
	for start, index := 0, 0; start+cfg.SegmentLength <= n; start, index = start+step, index+1 {
		raw := ch.Samples[start : start+cfg.SegmentLength]
		segments = append(segments, Segment{
			ChannelID:  ch.ID,
			Index:      index,
			Start:      start,
			SampleRate: ch.SampleRate,
			Raw:        raw,
			Detrended:  detrend(raw),
		})
	}
	return segments, nil
}

// detrend returns a copy of x with the least-squares line removed, so slow
// baseline drift is not mistaken for signal amplitude by later stages.
func detrend(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) < 2 {
		return out
	}
	t := make([]float64, len(x))
	floats.Span(t, 0, float64(len(x)-1))
	alpha, beta := stat.LinearRegression(t, x, nil, false)
	for i, v := range x {
		out[i] = v - (alpha + beta*float64(i))
	}
	return out
}

// amplitudeStats summarizes one sample window.
func amplitudeStats(x []float64) AmplitudeStats {
	if len(x) == 0 {
		return AmplitudeStats{}
	}
	mean, variance := stat.MeanVariance(x, nil)
	min, max := floats.Min(x), floats.Max(x)
	return AmplitudeStats{
		Mean:       mean,
		Variance:   variance,
		Min:        min,
		Max:        max,
		PeakToPeak: max - min,
	}
}

// rails are the extreme values a channel ever reaches. They stand in for the
// acquisition hardware's representable limits, which float input no longer
// carries.
type rails struct {
	low, high float64
	tol       float64
}

// channelRails derives the rails from the whole channel, not a single
// segment, so a clipped segment is compared against the true signal range.
func channelRails(samples []float64) rails {
	if len(samples) == 0 {
		return rails{}
	}
	lo, hi := floats.Min(samples), floats.Max(samples)
	return rails{low: lo, high: hi, tol: railTolerance * (hi - lo)}
}

// saturatedFraction returns the fraction of samples that sit in sustained
// runs at either rail. Runs shorter than minSaturationRun are ignored.
func saturatedFraction(x []float64, r rails) float64 {
	if len(x) == 0 {
		return 0
	}
	atRail := func(v float64) bool {
		return v >= r.high-r.tol || v <= r.low+r.tol
	}
	count := 0
	for i := 0; i < len(x); {
		if !atRail(x[i]) {
			i++
			continue
		}
		j := i
		for j < len(x) && atRail(x[j]) {
			j++
		}
		if j-i >= minSaturationRun {
			count += j - i
		}
		i = j
	}
	return float64(count) / float64(len(x))
}

// outOfRange reports whether any sample leaves the configured linear range.
func outOfRange(x []float64, rng Range) bool {
	for _, v := range x {
		if v < rng.Low || v > rng.High {
			return true
		}
	}
	return false
}

// motionSpikes counts abrupt sample-to-sample discontinuities: first
// differences further than sigmaMult robust sigmas from their median. The
// sigma estimate is 1.4826 times the median absolute deviation, so a single
// large artifact cannot inflate its own detection threshold.
func motionSpikes(x []float64, sigmaMult float64) int {
	if len(x) < 3 {
		return 0
	}
	diffs := make([]float64, len(x)-1)
	for i := range diffs {
		diffs[i] = x[i+1] - x[i]
	}
	med := median(diffs)
	devs := make([]float64, len(diffs))
	for i, d := range diffs {
		devs[i] = math.Abs(d - med)
	}
	sigma := 1.4826*median(devs) + 1e-30

	count := 0
	for _, dev := range devs {
		if dev > sigmaMult*sigma {
			count++
		}
	}
	return count
}

// timeDomainFeatures computes every non-spectral feature of a segment.
func timeDomainFeatures(seg Segment, r rails, cfg Config) Features {
	f := Features{
		Raw:       amplitudeStats(seg.Raw),
		Detrended: amplitudeStats(seg.Detrended),
	}
	f.Flatline = f.Detrended.Variance < cfg.FlatlineEpsilon
	f.Saturated = saturatedFraction(seg.Raw, r) >= cfg.SaturationFraction
	if cfg.IntensityRange != nil {
		f.OutOfRange = outOfRange(seg.Raw, *cfg.IntensityRange)
	}
	f.MotionSpikes = motionSpikes(seg.Detrended, cfg.MotionSpikeSigma)
	return f
}

func median(x []float64) float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
