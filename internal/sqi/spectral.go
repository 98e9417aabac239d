package sqi

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// extractSpectral computes the one-sided power spectral density of the
// detrended segment and locates the cardiac pulsation peak in it. A spectrum
// that comes out all zero or non-finite is flagged Degenerate and carries no
// peak; by policy such a segment later scores 1.
func extractSpectral(seg Segment, cfg Config) SpectralFeatures {
	var sf SpectralFeatures
	n := seg.Length()
	if n < 2 || seg.SampleRate <= 0 {
		sf.Degenerate = true
		return sf
	}

	// Hann window against spectral leakage. The PSD is scaled by the window
	// power so bin ratios stay comparable across segment lengths.
	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	window.Hann(win)

	buf := make([]float64, n)
	var winPower float64
	for i := range buf {
		buf[i] = seg.Detrended[i] * win[i]
		winPower += win[i] * win[i]
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, buf)

	bins := len(coeffs)
	freqs := make([]float64, bins)
	power := make([]float64, bins)
	scale := 1 / (seg.SampleRate * winPower)
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) * seg.SampleRate
		p := (real(c)*real(c) + imag(c)*imag(c)) * scale
		// One-sided spectrum: fold the negative frequencies in, except DC
		// and, for even lengths, the Nyquist bin.
		if i > 0 && !(n%2 == 0 && i == bins-1) {
			p *= 2
		}
		power[i] = p
	}
	sf.Frequencies = freqs
	sf.Power = power

	var total float64
	for _, p := range power {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			sf.Degenerate = true
			return sf
		}
		total += p
	}
	if total <= 0 {
		sf.Degenerate = true
		return sf
	}

	peak := findCardiacPeak(freqs, power, cfg)
	if peak < 0 {
		return sf
	}
	sf.PeakFound = true
	sf.PeakFrequency = freqs[peak]
	sf.PeakPower = power[peak]
	sf.Prominence = peakProminence(freqs, power, freqs[peak], cfg.PeakBandHalfWidth)
	sf.Bandwidth = halfMaxBandwidth(freqs, power, peak)
	return sf
}

// findCardiacPeak returns the bin index of the strongest local maximum inside
// the cardiac band, or -1 when no candidate clears the noise floor. The
// floor, a multiple of the median bin power, keeps pure noise from electing a
// spurious peak.
func findCardiacPeak(freqs, power []float64, cfg Config) int {
	floor := cfg.SpectralNoiseFactor * spectralMedian(power)
	best := -1
	for i := 1; i < len(power); i++ { // DC is never a cardiac peak
		if !cfg.CardiacBand.Contains(freqs[i]) {
			continue
		}
		if power[i] <= floor {
			continue
		}
		left := power[i-1]
		var right float64
		if i+1 < len(power) {
			right = power[i+1]
		}
		if power[i] < left || power[i] < right {
			continue
		}
		if best < 0 || power[i] > power[best] {
			best = i
		}
	}
	return best
}

// spectralMedian is the median bin power, DC excluded.
func spectralMedian(power []float64) float64 {
	if len(power) < 2 {
		return 0
	}
	return median(power[1:])
}

// peakProminence is the power inside the band around the peak over the power
// outside it, DC excluded. A spectrum with essentially no out-of-band power
// yields +Inf, which compares as maximally prominent.
func peakProminence(freqs, power []float64, peakFreq, halfWidth float64) float64 {
	lo, hi := peakFreq-halfWidth, peakFreq+halfWidth
	var in, out float64
	for i := 1; i < len(power); i++ {
		if freqs[i] >= lo && freqs[i] <= hi {
			in += power[i]
		} else {
			out += power[i]
		}
	}
	if out <= 0 {
		if in <= 0 {
			return 0
		}
		return math.Inf(1)
	}
	return in / out
}

// halfMaxBandwidth measures the spectral width of the peak at half its
// maximum power, interpolating each crossing linearly between bins. A side
// that never drops below half maximum is bounded by the spectrum edge.
func halfMaxBandwidth(freqs, power []float64, peak int) float64 {
	half := power[peak] / 2

	left := freqs[0]
	for i := peak; i > 0; i-- {
		if power[i-1] < half {
			left = crossing(freqs[i-1], power[i-1], freqs[i], power[i], half)
			break
		}
	}

	right := freqs[len(freqs)-1]
	for i := peak; i < len(power)-1; i++ {
		if power[i+1] < half {
			right = crossing(freqs[i], power[i], freqs[i+1], power[i+1], half)
			break
		}
	}

	return right - left
}

// crossing interpolates the frequency at which the line through two adjacent
// bins reaches the target power.
func crossing(f1, p1, f2, p2, target float64) float64 {
	return f1 + (f2-f1)*(target-p1)/(p2-p1)
}
