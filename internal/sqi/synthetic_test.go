package sqi

import "math"

// Deterministic test signals. A hashed sine stands in for random noise so
// every run sees identical samples without seeding a generator.

func sineSamples(n int, fs, freq, amp float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return s
}

func pseudoNoise(i int) float64 {
	x := math.Sin(float64(i)*12.9898+78.233) * 43758.5453
	return 2*(x-math.Floor(x)) - 1
}

func noisySineSamples(n int, fs, freq, amp, noiseAmp float64) []float64 {
	s := sineSamples(n, fs, freq, amp)
	for i := range s {
		s[i] += noiseAmp * pseudoNoise(i)
	}
	return s
}

func constantSamples(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func clippedSineSamples(n int, fs, freq, amp, clip float64) []float64 {
	s := sineSamples(n, fs, freq, amp)
	for i, v := range s {
		if v > clip {
			s[i] = clip
		} else if v < -clip {
			s[i] = -clip
		}
	}
	return s
}

func testSegment(samples []float64, fs float64) Segment {
	return Segment{
		ChannelID:  "test",
		SampleRate: fs,
		Raw:        samples,
		Detrended:  detrend(samples),
	}
}
