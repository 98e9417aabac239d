package sqi

import "math"

// minFilterLength is the shortest segment the zero-phase filter accepts;
// shorter windows leave no room for the reflection padding.
const minFilterLength = 16

// cardiacPeriodicity band-passes the detrended segment and searches its
// normalized autocorrelation over cardiac-band lags. The best coefficient,
// clamped to [0,1], measures how regular the pulsation is; it returns 0 when
// the segment is too short to filter or carries no energy in the band.
func cardiacPeriodicity(seg Segment, cfg Config) float64 {
	filtered := bandpassFilter(seg.Detrended, seg.SampleRate, cfg)
	if filtered == nil {
		return 0
	}

	n := len(filtered)
	var energy float64
	for _, v := range filtered {
		energy += v * v
	}
	if energy < 1e-20 {
		return 0
	}

	minLag := int(math.Ceil(seg.SampleRate / cfg.CardiacBand.High))
	maxLag := int(math.Floor(seg.SampleRate / cfg.CardiacBand.Low))
	if maxLag > n/2 {
		maxLag = n / 2
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag > maxLag {
		return 0
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var s float64
		for i := 0; i < n-lag; i++ {
			s += filtered[i] * filtered[i+lag]
		}
		if r := s / energy; r > best {
			best = r
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}

// bandpassFilter applies the configured pass band to x with zero phase shift.
// It returns nil when x is too short or the band does not fit below the
// Nyquist frequency, in which case the caller skips the feature.
func bandpassFilter(x []float64, fs float64, cfg Config) []float64 {
	if len(x) < minFilterLength || fs <= 0 {
		return nil
	}
	taps := designBandpass(len(x), fs, cfg)
	if taps == nil {
		return nil
	}
	return filtfilt(taps, x)
}

// designBandpass designs the Kaiser band-pass for a segment of n samples at
// rate fs. The tap count is capped well below the segment length and forced
// odd so the group delay sits on an integer sample.
func designBandpass(n int, fs float64, cfg Config) []float64 {
	nyquist := fs / 2
	low, high := cfg.FilterBand.Low, cfg.FilterBand.High
	if high >= nyquist {
		high = 0.99 * nyquist
	}
	if low >= high {
		return nil
	}

	numtaps, beta := kaiserOrder(cfg.FilterRippleDB, cfg.FilterWidthHz/nyquist)
	if maxTaps := int(float64(n) / 3.5); numtaps > maxTaps {
		numtaps = maxTaps
	}
	if numtaps < 3 {
		numtaps = 3
	}
	numtaps |= 1

	return firBandpass(numtaps, low, high, fs, beta)
}

// kaiserOrder estimates the tap count and Kaiser beta for the given stop-band
// attenuation in dB and transition width as a fraction of Nyquist.
func kaiserOrder(rippleDB, width float64) (numtaps int, beta float64) {
	a := math.Abs(rippleDB)
	switch {
	case a > 50:
		beta = 0.1102 * (a - 8.7)
	case a >= 21:
		beta = 0.5842*math.Pow(a-21, 0.4) + 0.07886*(a-21)
	default:
		beta = 0
	}
	numtaps = int(math.Ceil((a-7.95)/(2.285*math.Pi*width))) + 1
	return numtaps, beta
}

// firBandpass builds a linear-phase band-pass as the difference of two
// windowed-sinc low-passes, normalized to unit gain at the pass-band center.
func firBandpass(numtaps int, lowHz, highHz, fs, beta float64) []float64 {
	nyquist := fs / 2
	f1, f2 := lowHz/nyquist, highHz/nyquist
	m := float64(numtaps-1) / 2

	window := kaiserWindow(numtaps, beta)
	taps := make([]float64, numtaps)
	for i := range taps {
		n := float64(i) - m
		taps[i] = (f2*sinc(f2*n) - f1*sinc(f1*n)) * window[i]
	}

	// Unit gain at the pass-band center; the response there is real because
	// the taps are symmetric.
	fc := (f1 + f2) / 2
	var gain float64
	for i, t := range taps {
		gain += t * math.Cos(math.Pi*fc*(float64(i)-m))
	}
	if gain != 0 {
		for i := range taps {
			taps[i] /= gain
		}
	}
	return taps
}

// kaiserWindow returns an n point Kaiser window with shape parameter beta.
func kaiserWindow(n int, beta float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	m := float64(n - 1)
	denom := besselI0(beta)
	for i := range w {
		r := 2*float64(i)/m - 1
		w[i] = besselI0(beta*math.Sqrt(1-r*r)) / denom
	}
	return w
}

// besselI0 evaluates the zeroth-order modified Bessel function of the first
// kind by its power series, which converges quickly for Kaiser design betas.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= (half / float64(k)) * (half / float64(k))
		sum += term
		if term < sum*1e-12 {
			break
		}
	}
	return sum
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// filtfilt applies the FIR taps forward and backward over an odd-reflected
// extension of x, cancelling the filter's phase shift. The extension absorbs
// the startup transients and is trimmed from the result.
func filtfilt(taps, x []float64) []float64 {
	pad := 3 * len(taps)
	if pad > len(x)-1 {
		pad = len(x) - 1
	}
	ext := oddExtend(x, pad)

	y := firApply(taps, ext)
	reverse(y)
	y = firApply(taps, y)
	reverse(y)

	return y[pad : pad+len(x)]
}

// oddExtend reflects x around its end points: each pad sample is the mirror
// of the signal through 2*x[edge] - x[mirrored].
func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, pad+n+pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)
	return ext
}

// firApply runs a causal direct-form convolution of taps over x.
func firApply(taps, x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		k := len(taps) - 1
		if k > i {
			k = i
		}
		var acc float64
		for j := 0; j <= k; j++ {
			acc += taps[j] * x[i-j]
		}
		y[i] = acc
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
