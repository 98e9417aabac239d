// Package sqi grades the quality of fNIRS optical channels on a five point
// scale. Scoring runs three rating stages over fixed-length segments: obvious
// hardware failures score 1, a strong narrow cardiac pulsation scores 5, and
// everything in between is rated 2 to 4 from a weighted feature composite.
// The whole pipeline is pure: one immutable Config in, scores out.
package sqi

// Channel is the ordered sample sequence of one optical channel. It is
// treated as immutable for the duration of a scoring run; callers must not
// mutate Samples while Score is running.
type Channel struct {
	ID         string
	SampleRate float64 // Hz
	Samples    []float64
}

// Duration returns the channel length in seconds.
func (c Channel) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / c.SampleRate
}

// Segment is one contiguous analysis window of a channel. Raw aliases the
// channel's sample slice; Detrended is a fresh copy with the linear baseline
// removed.
type Segment struct {
	ChannelID  string
	Index      int // position of the segment within its channel, from 0
	Start      int // index of the first sample in the channel
	SampleRate float64
	Raw        []float64
	Detrended  []float64
}

// Length returns the segment length in samples.
func (s Segment) Length() int { return len(s.Raw) }

// AmplitudeStats summarizes the amplitude of a sample window.
type AmplitudeStats struct {
	Mean       float64
	Variance   float64
	Min        float64
	Max        float64
	PeakToPeak float64
}

// SpectralFeatures holds the power spectrum of a segment and the cardiac-band
// peak located in it. When PeakFound is false the peak fields are zero; when
// Degenerate is true the spectrum was all zero or non-finite and no peak
// search was attempted.
type SpectralFeatures struct {
	Frequencies []float64 // bin centers in Hz
	Power       []float64 // one-sided power spectral density per bin

	Degenerate bool
	PeakFound  bool

	PeakFrequency float64 // Hz
	PeakPower     float64
	Prominence    float64 // power near the peak over power outside it
	Bandwidth     float64 // spectral width at half maximum, Hz
}

// Features is the complete per-segment feature set the rating stages consume.
// It is derived data: computed once per segment and never mutated afterwards.
type Features struct {
	Raw       AmplitudeStats // statistics of the raw samples
	Detrended AmplitudeStats // statistics after baseline removal

	Flatline   bool // detrended variance below the flatline epsilon
	Saturated  bool // sustained runs at the channel's extreme values
	OutOfRange bool // raw samples outside the configured intensity range

	MotionSpikes int     // abrupt sample-to-sample discontinuities
	Periodicity  float64 // cardiac-band autocorrelation coefficient in [0,1]

	Spectral SpectralFeatures
}

// Score is a discrete quality grade. 1 is very low quality, 5 is very high.
type Score int

const (
	ScoreVeryLow  Score = 1
	ScoreLow      Score = 2
	ScoreFair     Score = 3
	ScoreGood     Score = 4
	ScoreVeryHigh Score = 5
)

// LowVerdict is the tagged result of the very-low-quality stage.
type LowVerdict uint8

const (
	// NotLow passes the segment on to the next stage.
	NotLow LowVerdict = iota
	// Low fixes the segment score at 1; no later stage runs.
	Low
)

func (v LowVerdict) String() string {
	if v == Low {
		return "low"
	}
	return "not-low"
}

// HighVerdict is the tagged result of the very-high-quality stage.
type HighVerdict uint8

const (
	// NotHigh passes the segment on to the intermediate rating.
	NotHigh HighVerdict = iota
	// High fixes the segment score at 5; the intermediate rating does not run.
	High
)

func (v HighVerdict) String() string {
	if v == High {
		return "high"
	}
	return "not-high"
}

// SegmentScore is the quality score assigned to one segment.
// This also matches the JSON layout the scoring API returns per segment.
type SegmentScore struct {
	Segment int   `json:"segment"`
	Start   int   `json:"start"`
	Length  int   `json:"length"`
	Score   Score `json:"score"`
}

// ChannelResult holds everything scoring produced for one channel. Either Err
// is set and the channel has no scores, or Err is nil and every segment has
// exactly one score plus the configured aggregate.
type ChannelResult struct {
	ChannelID string
	Err       error // *InsufficientDataError when the channel was too short
	Segments  []SegmentScore
	Aggregate Score // zero when Err is set
	Warnings  []Warning
}

// Result is the outcome of one scoring run over a channel batch. Channels
// appear in input order; failed channels sit alongside scored ones.
type Result struct {
	Channels []ChannelResult
}

// SegmentRef identifies a segment across a multi-channel result.
type SegmentRef struct {
	ChannelID string
	Segment   int
}

// SegmentScores returns the flat (channel, segment) to score mapping.
// Channels that failed with an error contribute nothing.
func (r *Result) SegmentScores() map[SegmentRef]Score {
	out := make(map[SegmentRef]Score)
	for _, ch := range r.Channels {
		if ch.Err != nil {
			continue
		}
		for _, seg := range ch.Segments {
			out[SegmentRef{ChannelID: ch.ChannelID, Segment: seg.Segment}] = seg.Score
		}
	}
	return out
}

// ChannelScores returns the aggregated per-channel scores for all channels
// that scored successfully.
func (r *Result) ChannelScores() map[string]Score {
	out := make(map[string]Score, len(r.Channels))
	for _, ch := range r.Channels {
		if ch.Err != nil {
			continue
		}
		out[ch.ChannelID] = ch.Aggregate
	}
	return out
}

// Errs returns the per-channel errors of the run, keyed by channel id.
func (r *Result) Errs() map[string]error {
	out := make(map[string]error)
	for _, ch := range r.Channels {
		if ch.Err != nil {
			out[ch.ChannelID] = ch.Err
		}
	}
	return out
}
