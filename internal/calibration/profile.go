// Package calibration loads device calibration profiles: YAML documents that
// override any subset of the scoring configuration. Fields absent from the
// profile keep the base value, so a profile only states what differs from the
// defaults.
package calibration

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"fnirs-sqi/internal/sqi"
)

// BandOverride overrides a frequency band in Hz.
type BandOverride struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// RangeOverride overrides an amplitude range in raw signal units.
type RangeOverride struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Profile is a partial calibration. Every field is optional; Apply copies the
// set ones over a base configuration. Apply does not validate: the combined
// configuration goes through the scorer's usual validation.
//
// The JSON tags mirror the YAML ones so the scoring API can accept the same
// overrides inline with a request.
type Profile struct {
	Name string `yaml:"name" json:"name,omitempty"`

	SegmentLength  *int `yaml:"segment_length" json:"segment_length,omitempty"`
	SegmentOverlap *int `yaml:"segment_overlap" json:"segment_overlap,omitempty"`

	CardiacBand *BandOverride `yaml:"cardiac_band" json:"cardiac_band,omitempty"`

	FilterBand     *BandOverride `yaml:"filter_band" json:"filter_band,omitempty"`
	FilterRippleDB *float64      `yaml:"filter_ripple_db" json:"filter_ripple_db,omitempty"`
	FilterWidthHz  *float64      `yaml:"filter_width_hz" json:"filter_width_hz,omitempty"`

	FlatlineEpsilon    *float64       `yaml:"flatline_epsilon" json:"flatline_epsilon,omitempty"`
	SaturationFraction *float64       `yaml:"saturation_fraction" json:"saturation_fraction,omitempty"`
	IntensityRange     *RangeOverride `yaml:"intensity_range" json:"intensity_range,omitempty"`

	AmplitudeCeiling *float64 `yaml:"amplitude_ceiling" json:"amplitude_ceiling,omitempty"`
	VarianceFloor    *float64 `yaml:"variance_floor" json:"variance_floor,omitempty"`
	VarianceCeiling  *float64 `yaml:"variance_ceiling" json:"variance_ceiling,omitempty"`

	SpectralNoiseFactor *float64 `yaml:"spectral_noise_factor" json:"spectral_noise_factor,omitempty"`
	PeakBandHalfWidth   *float64 `yaml:"peak_band_half_width" json:"peak_band_half_width,omitempty"`
	ProminenceThreshold *float64 `yaml:"prominence_threshold" json:"prominence_threshold,omitempty"`
	BandwidthThreshold  *float64 `yaml:"bandwidth_threshold" json:"bandwidth_threshold,omitempty"`

	MotionSpikeSigma *float64 `yaml:"motion_spike_sigma" json:"motion_spike_sigma,omitempty"`
	MotionMaxCount   *int     `yaml:"motion_max_count" json:"motion_max_count,omitempty"`

	ProminenceWeight  *float64 `yaml:"prominence_weight" json:"prominence_weight,omitempty"`
	VarianceWeight    *float64 `yaml:"variance_weight" json:"variance_weight,omitempty"`
	MotionWeight      *float64 `yaml:"motion_weight" json:"motion_weight,omitempty"`
	PeriodicityWeight *float64 `yaml:"periodicity_weight" json:"periodicity_weight,omitempty"`

	RateCutLow  *float64 `yaml:"rate_cut_low" json:"rate_cut_low,omitempty"`
	RateCutHigh *float64 `yaml:"rate_cut_high" json:"rate_cut_high,omitempty"`

	ChannelAggregation *string `yaml:"channel_aggregation" json:"channel_aggregation,omitempty"`
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calibration profile: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("calibration profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile from YAML. Unknown keys are rejected so a typo in a
// profile cannot silently leave a threshold at its default. An empty document
// is a valid profile that overrides nothing.
func Parse(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return &Profile{}, nil
		}
		return nil, err
	}
	return &p, nil
}

// Apply returns base with the profile's set fields copied over it.
func (p *Profile) Apply(base sqi.Config) sqi.Config {
	cfg := base

	if p.SegmentLength != nil {
		cfg.SegmentLength = *p.SegmentLength
	}
	if p.SegmentOverlap != nil {
		cfg.SegmentOverlap = *p.SegmentOverlap
	}
	if p.CardiacBand != nil {
		cfg.CardiacBand = sqi.Band{Low: p.CardiacBand.Low, High: p.CardiacBand.High}
	}
	if p.FilterBand != nil {
		cfg.FilterBand = sqi.Band{Low: p.FilterBand.Low, High: p.FilterBand.High}
	}
	if p.FilterRippleDB != nil {
		cfg.FilterRippleDB = *p.FilterRippleDB
	}
	if p.FilterWidthHz != nil {
		cfg.FilterWidthHz = *p.FilterWidthHz
	}
	if p.FlatlineEpsilon != nil {
		cfg.FlatlineEpsilon = *p.FlatlineEpsilon
	}
	if p.SaturationFraction != nil {
		cfg.SaturationFraction = *p.SaturationFraction
	}
	if p.IntensityRange != nil {
		cfg.IntensityRange = &sqi.Range{Low: p.IntensityRange.Low, High: p.IntensityRange.High}
	}
	if p.AmplitudeCeiling != nil {
		cfg.AmplitudeCeiling = *p.AmplitudeCeiling
	}
	if p.VarianceFloor != nil {
		cfg.VarianceFloor = *p.VarianceFloor
	}
	if p.VarianceCeiling != nil {
		cfg.VarianceCeiling = *p.VarianceCeiling
	}
	if p.SpectralNoiseFactor != nil {
		cfg.SpectralNoiseFactor = *p.SpectralNoiseFactor
	}
	if p.PeakBandHalfWidth != nil {
		cfg.PeakBandHalfWidth = *p.PeakBandHalfWidth
	}
	if p.ProminenceThreshold != nil {
		cfg.ProminenceThreshold = *p.ProminenceThreshold
	}
	if p.BandwidthThreshold != nil {
		cfg.BandwidthThreshold = *p.BandwidthThreshold
	}
	if p.MotionSpikeSigma != nil {
		cfg.MotionSpikeSigma = *p.MotionSpikeSigma
	}
	if p.MotionMaxCount != nil {
		cfg.MotionMaxCount = *p.MotionMaxCount
	}
	if p.ProminenceWeight != nil {
		cfg.ProminenceWeight = *p.ProminenceWeight
	}
	if p.VarianceWeight != nil {
		cfg.VarianceWeight = *p.VarianceWeight
	}
	if p.MotionWeight != nil {
		cfg.MotionWeight = *p.MotionWeight
	}
	if p.PeriodicityWeight != nil {
		cfg.PeriodicityWeight = *p.PeriodicityWeight
	}
	if p.RateCutLow != nil {
		cfg.RateCutLow = *p.RateCutLow
	}
	if p.RateCutHigh != nil {
		cfg.RateCutHigh = *p.RateCutHigh
	}
	if p.ChannelAggregation != nil {
		cfg.ChannelAggregation = sqi.Aggregation(*p.ChannelAggregation)
	}
	return cfg
}
