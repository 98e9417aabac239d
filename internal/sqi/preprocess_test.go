package sqi

import (
	"errors"
	"math"
	"testing"
)

func TestSegmentChannel_splits_into_fixed_windows(t *testing.T) {
	cfg := DefaultConfig()
	ch := Channel{ID: "S1-D1", SampleRate: 10, Samples: sineSamples(1000, 10, 1.2, 1)}

	segments, err := segmentChannel(ch, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 10 {
		t.Fatalf("expected 10 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d: index %d", i, seg.Index)
		}
		if seg.Start != i*100 {
			t.Errorf("segment %d: start %d, expected %d", i, seg.Start, i*100)
		}
		if seg.Length() != 100 {
			t.Errorf("segment %d: length %d", i, seg.Length())
		}
		if len(seg.Detrended) != 100 {
			t.Errorf("segment %d: detrended length %d", i, len(seg.Detrended))
		}
		if seg.ChannelID != "S1-D1" {
			t.Errorf("segment %d: channel id %q", i, seg.ChannelID)
		}
	}
}

func TestSegmentChannel_overlap_advances_by_step(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SegmentOverlap = 50
	ch := Channel{ID: "c", SampleRate: 10, Samples: sineSamples(1000, 10, 1.2, 1)}

	segments, err := segmentChannel(ch, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (1000-100)/50 + 1 windows of 100 samples, every 50 samples.
	if len(segments) != 19 {
		t.Fatalf("expected 19 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Start != i*50 {
			t.Errorf("segment %d: start %d, expected %d", i, seg.Start, i*50)
		}
	}
}

func TestSegmentChannel_drops_trailing_remainder(t *testing.T) {
	ch := Channel{ID: "c", SampleRate: 10, Samples: sineSamples(250, 10, 1.2, 1)}

	segments, err := segmentChannel(ch, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected the 50 trailing samples to be dropped, got %d segments", len(segments))
	}
}

func TestSegmentChannel_short_channel_returns_insufficient_data(t *testing.T) {
	ch := Channel{ID: "short", SampleRate: 10, Samples: sineSamples(50, 10, 1.2, 1)}

	segments, err := segmentChannel(ch, DefaultConfig())
	if segments != nil {
		t.Errorf("expected no segments, got %d", len(segments))
	}
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected *InsufficientDataError, got %v", err)
	}
	if insufficient.ChannelID != "short" {
		t.Errorf("channel id %q", insufficient.ChannelID)
	}
	if insufficient.Samples != 50 || insufficient.Required != 100 {
		t.Errorf("got %d/%d samples, expected 50/100", insufficient.Samples, insufficient.Required)
	}
}

func TestDetrend_removes_linear_ramp(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = 2 + 0.5*float64(i)
	}

	for i, v := range detrend(x) {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("sample %d: residual %g after removing a pure ramp", i, v)
		}
	}
}

func TestDetrend_centers_the_output(t *testing.T) {
	x := noisySineSamples(100, 10, 1.2, 1, 0.5)
	for i := range x {
		x[i] += 5 + 0.02*float64(i)
	}

	var sum float64
	for _, v := range detrend(x) {
		sum += v
	}
	if mean := sum / 100; math.Abs(mean) > 1e-9 {
		t.Errorf("detrended mean %g, expected ~0", mean)
	}
}

func TestAmplitudeStats_summarizes_window(t *testing.T) {
	s := amplitudeStats([]float64{1, 2, 3, 4})

	if s.Mean != 2.5 {
		t.Errorf("mean %g", s.Mean)
	}
	if math.Abs(s.Variance-5.0/3.0) > 1e-12 {
		t.Errorf("variance %g, expected %g", s.Variance, 5.0/3.0)
	}
	if s.Min != 1 || s.Max != 4 || s.PeakToPeak != 3 {
		t.Errorf("min %g max %g p2p %g", s.Min, s.Max, s.PeakToPeak)
	}
}

func TestSaturatedFraction_detects_sustained_clipping(t *testing.T) {
	// An over-driven pulse pinned at the rails for most of every cycle.
	x := clippedSineSamples(1000, 10, 0.5, 5, 1)
	r := channelRails(x)

	frac := saturatedFraction(x, r)
	if frac < 0.5 {
		t.Errorf("saturated fraction %g, expected the clipped plateaus to dominate", frac)
	}
}

func TestSaturatedFraction_ignores_waveform_crests(t *testing.T) {
	// A clean sinusoid touches its extremes one sample at a time; isolated
	// extremes are crests, not clipping.
	x := sineSamples(1000, 10, 1.2, 1)
	r := channelRails(x)

	if frac := saturatedFraction(x, r); frac != 0 {
		t.Errorf("saturated fraction %g for a clean sinusoid, expected 0", frac)
	}
}

func TestOutOfRange_checks_linear_limits(t *testing.T) {
	rng := Range{Low: 0.04, High: 2.5}

	if outOfRange([]float64{0.05, 1.2, 2.4}, rng) {
		t.Error("in-range samples flagged")
	}
	if !outOfRange([]float64{0.05, 2.6}, rng) {
		t.Error("sample above the range not flagged")
	}
	if !outOfRange([]float64{0.01, 1.0}, rng) {
		t.Error("sample below the range not flagged")
	}
}

func TestMotionSpikes_counts_step_artifact(t *testing.T) {
	x := sineSamples(100, 10, 1.2, 1)
	for i := 50; i < 100; i++ {
		x[i] += 10 // optode shift halfway through
	}

	if n := motionSpikes(x, 6); n != 1 {
		t.Errorf("expected exactly the one step discontinuity, got %d", n)
	}
}

func TestMotionSpikes_zero_for_smooth_signal(t *testing.T) {
	if n := motionSpikes(sineSamples(100, 10, 1.2, 1), 6); n != 0 {
		t.Errorf("expected no spikes in a smooth sinusoid, got %d", n)
	}
}

func TestTimeDomainFeatures_flags_flatline(t *testing.T) {
	cfg := DefaultConfig()
	x := constantSamples(100, 3.3)
	seg := testSegment(x, 10)

	f := timeDomainFeatures(seg, channelRails(x), cfg)
	if !f.Flatline {
		t.Error("constant segment not flagged as flatline")
	}
}

func TestTimeDomainFeatures_flags_out_of_range_only_when_configured(t *testing.T) {
	cfg := DefaultConfig()
	x := sineSamples(100, 10, 1.2, 1) // swings below 0.04
	seg := testSegment(x, 10)
	r := channelRails(x)

	if f := timeDomainFeatures(seg, r, cfg); f.OutOfRange {
		t.Error("out-of-range flagged with no range configured")
	}

	cfg.IntensityRange = &Range{Low: 0.04, High: 2.5}
	if f := timeDomainFeatures(seg, r, cfg); !f.OutOfRange {
		t.Error("samples below the configured range not flagged")
	}
}
