package sqi

import (
	"math"
	"testing"
)

func TestExtractSpectral_locates_cardiac_peak(t *testing.T) {
	cfg := DefaultConfig()
	seg := testSegment(sineSamples(100, 10, 1.2, 1), 10)

	sf := extractSpectral(seg, cfg)
	if sf.Degenerate {
		t.Fatal("clean pulse flagged as degenerate")
	}
	if !sf.PeakFound {
		t.Fatal("no peak found for a 1.2 Hz pulse")
	}
	if math.Abs(sf.PeakFrequency-1.2) > 0.11 {
		t.Errorf("peak at %g Hz, expected ~1.2", sf.PeakFrequency)
	}
	if sf.Prominence <= cfg.ProminenceThreshold {
		t.Errorf("prominence %g, expected a pure tone to clear %g", sf.Prominence, cfg.ProminenceThreshold)
	}
	if sf.Bandwidth <= 0 || sf.Bandwidth >= cfg.BandwidthThreshold {
		t.Errorf("bandwidth %g Hz, expected a narrow peak below %g", sf.Bandwidth, cfg.BandwidthThreshold)
	}
}

func TestExtractSpectral_peak_dominates_noise_floor(t *testing.T) {
	seg := testSegment(sineSamples(100, 10, 1.2, 1), 10)

	sf := extractSpectral(seg, DefaultConfig())
	if !sf.PeakFound {
		t.Fatal("no peak found")
	}
	if med := spectralMedian(sf.Power); sf.PeakPower < 100*med {
		t.Errorf("peak power %g barely above median %g", sf.PeakPower, med)
	}
}

func TestExtractSpectral_degenerate_on_silent_segment(t *testing.T) {
	seg := testSegment(constantSamples(100, 0), 10)

	sf := extractSpectral(seg, DefaultConfig())
	if !sf.Degenerate {
		t.Error("all-zero segment not flagged as degenerate")
	}
	if sf.PeakFound {
		t.Error("peak reported in a degenerate spectrum")
	}
}

func TestExtractSpectral_degenerate_on_nonfinite_samples(t *testing.T) {
	x := sineSamples(100, 10, 1.2, 1)
	x[10] = math.NaN()

	sf := extractSpectral(testSegment(x, 10), DefaultConfig())
	if !sf.Degenerate {
		t.Error("non-finite samples not flagged as degenerate")
	}
}

func TestExtractSpectral_no_spurious_quality_on_noise(t *testing.T) {
	cfg := DefaultConfig()
	x := make([]float64, 100)
	for i := range x {
		x[i] = pseudoNoise(i)
	}

	sf := extractSpectral(testSegment(x, 10), cfg)
	if sf.PeakFound && sf.Prominence > cfg.ProminenceThreshold {
		t.Errorf("noise produced a prominent peak (prominence %g)", sf.Prominence)
	}
}

func TestFindCardiacPeak_rejects_flat_spectrum(t *testing.T) {
	freqs := make([]float64, 51)
	power := make([]float64, 51)
	for i := range freqs {
		freqs[i] = 0.1 * float64(i)
		power[i] = 1
	}

	if idx := findCardiacPeak(freqs, power, DefaultConfig()); idx != -1 {
		t.Errorf("flat spectrum elected bin %d as a peak", idx)
	}
}

func TestFindCardiacPeak_picks_strongest_in_band_maximum(t *testing.T) {
	freqs := make([]float64, 51)
	power := make([]float64, 51)
	for i := range freqs {
		freqs[i] = 0.1 * float64(i)
		power[i] = 1
	}
	power[3] = 50  // 0.3 Hz: strong but below the cardiac band
	power[10] = 8  // 1.0 Hz
	power[20] = 12 // 2.0 Hz

	if idx := findCardiacPeak(freqs, power, DefaultConfig()); idx != 20 {
		t.Errorf("expected the 2.0 Hz maximum (bin 20), got %d", idx)
	}
}

func TestFindCardiacPeak_rejects_shoulder_of_out_of_band_surge(t *testing.T) {
	freqs := make([]float64, 51)
	power := make([]float64, 51)
	for i := range freqs {
		freqs[i] = 0.1 * float64(i)
		power[i] = 1
	}
	power[4] = 20 // 0.4 Hz surge below the band
	power[5] = 15 // its leakage shoulder at the band edge, not a maximum
	power[20] = 4 // genuine, weaker in-band peak

	if idx := findCardiacPeak(freqs, power, DefaultConfig()); idx != 20 {
		t.Errorf("expected the 2.0 Hz local maximum (bin 20), got %d", idx)
	}
}

func TestPeakProminence_ratio_excludes_dc(t *testing.T) {
	freqs := []float64{0, 0.1, 0.2, 0.3, 0.4}
	power := []float64{100, 2, 6, 2, 2}

	prom := peakProminence(freqs, power, 0.2, 0.05)
	if math.Abs(prom-1.0) > 1e-12 {
		t.Errorf("prominence %g, expected 1.0 with the DC bin excluded", prom)
	}
}

func TestPeakProminence_infinite_when_band_holds_all_power(t *testing.T) {
	freqs := []float64{0, 0.1, 0.2, 0.3, 0.4}
	power := []float64{5, 0, 8, 0, 0}

	prom := peakProminence(freqs, power, 0.2, 0.15)
	if !math.IsInf(prom, 1) {
		t.Errorf("prominence %g, expected +Inf", prom)
	}
}

func TestHalfMaxBandwidth_interpolates_between_bins(t *testing.T) {
	freqs := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	power := []float64{1, 1, 1, 4, 1, 1, 1}

	bw := halfMaxBandwidth(freqs, power, 3)
	if math.Abs(bw-2.0/15.0) > 1e-9 {
		t.Errorf("bandwidth %g, expected %g", bw, 2.0/15.0)
	}
}

func TestHalfMaxBandwidth_bounded_by_spectrum_edge(t *testing.T) {
	freqs := []float64{0, 0.1, 0.2, 0.3}
	power := []float64{1, 2, 3, 4}

	bw := halfMaxBandwidth(freqs, power, 3)
	if math.Abs(bw-0.2) > 1e-9 {
		t.Errorf("bandwidth %g, expected 0.2 (bounded at the edge)", bw)
	}
}
