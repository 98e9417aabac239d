package calibration

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"fnirs-sqi/internal/sqi"
)

const artinisProfile = `
name: artinis-od
segment_length: 120
cardiac_band:
  low: 0.6
  high: 2.0
intensity_range:
  low: 0.04
  high: 2.5
prominence_threshold: 2.5
channel_aggregation: minimum
`

func TestParse_overrides_only_listed_fields(t *testing.T) {
	p, err := Parse(strings.NewReader(artinisProfile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "artinis-od" {
		t.Errorf("name %q", p.Name)
	}

	cfg := p.Apply(sqi.DefaultConfig())

	if cfg.SegmentLength != 120 {
		t.Errorf("segment length %d, expected 120", cfg.SegmentLength)
	}
	if cfg.CardiacBand != (sqi.Band{Low: 0.6, High: 2.0}) {
		t.Errorf("cardiac band %+v", cfg.CardiacBand)
	}
	if cfg.IntensityRange == nil || *cfg.IntensityRange != (sqi.Range{Low: 0.04, High: 2.5}) {
		t.Errorf("intensity range %+v", cfg.IntensityRange)
	}
	if cfg.ProminenceThreshold != 2.5 {
		t.Errorf("prominence threshold %g", cfg.ProminenceThreshold)
	}
	if cfg.ChannelAggregation != sqi.AggregateMinimum {
		t.Errorf("aggregation %q", cfg.ChannelAggregation)
	}

	// Untouched fields keep their defaults.
	def := sqi.DefaultConfig()
	if cfg.SegmentOverlap != def.SegmentOverlap {
		t.Errorf("segment overlap changed to %d", cfg.SegmentOverlap)
	}
	if cfg.FilterBand != def.FilterBand {
		t.Errorf("filter band changed to %+v", cfg.FilterBand)
	}
	if cfg.RateCutLow != def.RateCutLow || cfg.RateCutHigh != def.RateCutHigh {
		t.Errorf("rate cuts changed to %g/%g", cfg.RateCutLow, cfg.RateCutHigh)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("combined configuration should validate, got %v", err)
	}
}

func TestParse_rejects_unknown_keys(t *testing.T) {
	_, err := Parse(strings.NewReader("segment_len: 50\n"))
	if err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
}

func TestParse_empty_profile_overrides_nothing(t *testing.T) {
	p, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := sqi.DefaultConfig()
	if got := p.Apply(base); !reflect.DeepEqual(got, base) {
		t.Errorf("empty profile changed the configuration: %+v", got)
	}
}

func TestLoad_reads_profile_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artinis.yaml")
	if err := os.WriteFile(path, []byte(artinisProfile), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SegmentLength == nil || *p.SegmentLength != 120 {
		t.Errorf("segment length override %v", p.SegmentLength)
	}
}

func TestLoad_missing_file(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
