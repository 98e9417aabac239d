package sqi

// Aggregation selects how per-segment scores collapse into one channel score.
type Aggregation string

const (
	// AggregateMode picks the most frequent segment score; ties resolve to
	// the worse (lower) score.
	AggregateMode Aggregation = "mode"
	// AggregateMinimum picks the worst segment score.
	AggregateMinimum Aggregation = "minimum"
	// AggregateMeanRounded rounds the mean segment score to the nearest
	// integer, halves away from zero.
	AggregateMeanRounded Aggregation = "mean-rounded"
)

// Band is a frequency interval in Hz, inclusive at both edges.
type Band struct {
	Low  float64
	High float64
}

// Contains reports whether f lies inside the band.
func (b Band) Contains(f float64) bool {
	return f >= b.Low && f <= b.High
}

// Range is an amplitude interval in raw signal units, inclusive at both edges.
type Range struct {
	Low  float64
	High float64
}

// Config holds every calibration constant of the scoring pipeline as a named,
// overridable field. One immutable value is shared read-only by all workers
// for the duration of a run; Validate rejects contradictory settings before
// any segment is processed.
//
// The defaults are tuned for optical-density-scaled channels sampled at
// typical optode rates (around 10 Hz) and are deliberately permissive where
// the published calibration is device specific; device profiles override
// individual fields.
type Config struct {
	// SegmentLength is the analysis window in samples. A channel shorter
	// than one segment is rejected with InsufficientDataError.
	SegmentLength int
	// SegmentOverlap is the number of samples consecutive segments share.
	SegmentOverlap int

	// CardiacBand is the frequency range searched for the pulsation peak.
	CardiacBand Band

	// FilterBand is the pass band of the zero-phase FIR prefilter applied
	// before the periodicity feature. It is wider than CardiacBand so the
	// pulse waveform keeps its first harmonic.
	FilterBand Band
	// FilterRippleDB is the Kaiser design stop-band attenuation in dB.
	FilterRippleDB float64
	// FilterWidthHz is the Kaiser design transition width in Hz.
	FilterWidthHz float64

	// FlatlineEpsilon is the detrended variance below which a segment is a
	// flat line.
	FlatlineEpsilon float64
	// SaturationFraction is the fraction of samples that must sit in
	// sustained runs at the channel's extreme values for a segment to count
	// as saturated.
	SaturationFraction float64
	// IntensityRange, when non-nil, is the linear range of the raw signal;
	// any sample outside it marks the segment as out of range. Typical
	// optical density inputs use 0.04 to 2.5.
	IntensityRange *Range

	// AmplitudeCeiling is the largest physiologically plausible detrended
	// peak-to-peak amplitude.
	AmplitudeCeiling float64
	// VarianceFloor is the detrended variance below which a segment is
	// indistinguishable from electronic noise. It is also the lower
	// reference of the variance normalization in the intermediate rating.
	VarianceFloor float64
	// VarianceCeiling is the upper reference of the variance normalization
	// in the intermediate rating. Must exceed VarianceFloor.
	VarianceCeiling float64

	// SpectralNoiseFactor is the multiple of the median spectral power a
	// cardiac-band maximum must exceed to count as a peak at all.
	SpectralNoiseFactor float64
	// PeakBandHalfWidth is the half width in Hz of the band around the peak
	// used as the prominence numerator.
	PeakBandHalfWidth float64
	// ProminenceThreshold is the peak prominence above which a segment
	// qualifies as very high quality.
	ProminenceThreshold float64
	// BandwidthThreshold is the spectral width at half maximum, in Hz,
	// below which a peak counts as narrow.
	BandwidthThreshold float64

	// MotionSpikeSigma is the robust-sigma multiple a sample-to-sample jump
	// must exceed to count as a motion discontinuity.
	MotionSpikeSigma float64
	// MotionMaxCount is the discontinuity count at which the motion feature
	// saturates.
	MotionMaxCount int

	// Weights of the intermediate rating composite. They are normalized by
	// their sum, so only ratios matter.
	ProminenceWeight  float64
	VarianceWeight    float64
	MotionWeight      float64
	PeriodicityWeight float64

	// RateCutLow and RateCutHigh split the composite in [0,1] into the
	// scores 2, 3 and 4. A composite exactly at a cut point takes the lower
	// score.
	RateCutLow  float64
	RateCutHigh float64

	// ChannelAggregation is the rule that produces the per-channel score.
	ChannelAggregation Aggregation
}

// DefaultConfig returns the default calibration.
func DefaultConfig() Config {
	return Config{
		SegmentLength:  100, // one 10 s window at a 10 Hz optode rate
		SegmentOverlap: 0,

		CardiacBand: Band{Low: 0.5, High: 2.5}, // 30 to 150 beats per minute

		FilterBand:     Band{Low: 0.4, High: 3.0},
		FilterRippleDB: 65,
		FilterWidthHz:  0.2,

		FlatlineEpsilon:    1e-12,
		SaturationFraction: 0.05,
		IntensityRange:     nil,

		AmplitudeCeiling: 100,
		VarianceFloor:    1e-8,
		VarianceCeiling:  10,

		SpectralNoiseFactor: 3,
		PeakBandHalfWidth:   0.25,
		ProminenceThreshold: 3,
		BandwidthThreshold:  0.5,

		MotionSpikeSigma: 6,
		MotionMaxCount:   10,

		ProminenceWeight:  0.4,
		VarianceWeight:    0.2,
		MotionWeight:      0.2,
		PeriodicityWeight: 0.2,

		RateCutLow:  0.4,
		RateCutHigh: 0.7,

		ChannelAggregation: AggregateMode,
	}
}

// Validate checks the configuration for contradictions. It returns an
// *InvalidConfigurationError describing the first offending field, or nil.
func (c Config) Validate() error {
	if c.SegmentLength < 2 {
		return &InvalidConfigurationError{Field: "SegmentLength", Reason: "must be at least 2 samples"}
	}
	if c.SegmentOverlap < 0 || c.SegmentOverlap >= c.SegmentLength {
		return &InvalidConfigurationError{Field: "SegmentOverlap", Reason: "must be in [0, SegmentLength)"}
	}
	if c.CardiacBand.Low <= 0 || c.CardiacBand.High <= c.CardiacBand.Low {
		return &InvalidConfigurationError{Field: "CardiacBand", Reason: "band edges must satisfy 0 < low < high"}
	}
	if c.FilterBand.Low <= 0 || c.FilterBand.High <= c.FilterBand.Low {
		return &InvalidConfigurationError{Field: "FilterBand", Reason: "band edges must satisfy 0 < low < high"}
	}
	if c.FilterRippleDB <= 0 {
		return &InvalidConfigurationError{Field: "FilterRippleDB", Reason: "must be positive"}
	}
	if c.FilterWidthHz <= 0 {
		return &InvalidConfigurationError{Field: "FilterWidthHz", Reason: "must be positive"}
	}
	if c.FlatlineEpsilon < 0 {
		return &InvalidConfigurationError{Field: "FlatlineEpsilon", Reason: "must not be negative"}
	}
	if c.SaturationFraction <= 0 || c.SaturationFraction > 1 {
		return &InvalidConfigurationError{Field: "SaturationFraction", Reason: "must be in (0, 1]"}
	}
	if c.IntensityRange != nil && c.IntensityRange.Low >= c.IntensityRange.High {
		return &InvalidConfigurationError{Field: "IntensityRange", Reason: "low edge must be below high edge"}
	}
	if c.AmplitudeCeiling <= 0 {
		return &InvalidConfigurationError{Field: "AmplitudeCeiling", Reason: "must be positive"}
	}
	if c.VarianceFloor <= 0 {
		return &InvalidConfigurationError{Field: "VarianceFloor", Reason: "must be positive"}
	}
	if c.VarianceFloor >= c.VarianceCeiling {
		return &InvalidConfigurationError{Field: "VarianceFloor", Reason: "must be below VarianceCeiling"}
	}
	if c.SpectralNoiseFactor < 1 {
		return &InvalidConfigurationError{Field: "SpectralNoiseFactor", Reason: "must be at least 1"}
	}
	if c.PeakBandHalfWidth <= 0 {
		return &InvalidConfigurationError{Field: "PeakBandHalfWidth", Reason: "must be positive"}
	}
	if c.ProminenceThreshold <= 0 {
		return &InvalidConfigurationError{Field: "ProminenceThreshold", Reason: "must be positive"}
	}
	if c.BandwidthThreshold <= 0 {
		return &InvalidConfigurationError{Field: "BandwidthThreshold", Reason: "must be positive"}
	}
	if c.MotionSpikeSigma <= 0 {
		return &InvalidConfigurationError{Field: "MotionSpikeSigma", Reason: "must be positive"}
	}
	if c.MotionMaxCount < 1 {
		return &InvalidConfigurationError{Field: "MotionMaxCount", Reason: "must be at least 1"}
	}
	if c.ProminenceWeight < 0 || c.VarianceWeight < 0 || c.MotionWeight < 0 || c.PeriodicityWeight < 0 {
		return &InvalidConfigurationError{Field: "Weights", Reason: "must not be negative"}
	}
	if c.ProminenceWeight+c.VarianceWeight+c.MotionWeight+c.PeriodicityWeight <= 0 {
		return &InvalidConfigurationError{Field: "Weights", Reason: "at least one weight must be positive"}
	}
	if c.RateCutLow <= 0 || c.RateCutLow >= c.RateCutHigh || c.RateCutHigh >= 1 {
		return &InvalidConfigurationError{Field: "RateCutLow", Reason: "cut points must satisfy 0 < low < high < 1"}
	}
	switch c.ChannelAggregation {
	case AggregateMode, AggregateMinimum, AggregateMeanRounded:
	default:
		return &InvalidConfigurationError{Field: "ChannelAggregation", Reason: "unknown aggregation rule"}
	}
	return nil
}
