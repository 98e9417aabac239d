// Command sqi scores the channels of a recorded fNIRS session and prints the
// per-channel quality grades. Channels that cannot be scored are reported
// alongside the scored ones; the command fails only when nothing could be
// scored at all.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"fnirs-sqi/internal/calibration"
	"fnirs-sqi/internal/ingest"
	"fnirs-sqi/internal/scoring"
	"fnirs-sqi/internal/sqi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sqi:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		input       = flag.String("input", "", "recording to score: .edf or .csv (required)")
		rate        = flag.Float64("rate", 0, "sample rate in Hz for CSV input without a time column")
		profilePath = flag.String("calibration", "", "YAML calibration profile overriding the defaults")
		segment     = flag.Int("segment", 0, "segment length in samples (0 keeps the calibration value)")
		overlap     = flag.Int("overlap", -1, "segment overlap in samples (-1 keeps the calibration value)")
		aggregate   = flag.String("aggregate", "", "channel aggregation rule: mode, minimum or mean-rounded")
		workers     = flag.Int("workers", 0, "channels scored concurrently (0 = one per CPU)")
		format      = flag.String("format", "table", "output format: table or json")
	)
	flag.Parse()

	if *input == "" {
		return errors.New("-input is required")
	}
	if *format != "table" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	cfg := sqi.DefaultConfig()
	if *profilePath != "" {
		profile, err := calibration.Load(*profilePath)
		if err != nil {
			return err
		}
		cfg = profile.Apply(cfg)
	}
	if *segment > 0 {
		cfg.SegmentLength = *segment
	}
	if *overlap >= 0 {
		cfg.SegmentOverlap = *overlap
	}
	if *aggregate != "" {
		cfg.ChannelAggregation = sqi.Aggregation(*aggregate)
	}

	scorer, err := sqi.NewScorer(cfg, *workers)
	if err != nil {
		return err
	}

	channels, err := readInput(*input, *rate)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return fmt.Errorf("%s holds no channels", *input)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := scorer.Score(ctx, channels)
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		writeReport(os.Stdout, *input, cfg, res)
	default:
		writeTable(os.Stdout, res)
	}

	if len(res.Errs()) == len(res.Channels) {
		return errors.New("no channel produced a score")
	}
	return nil
}

// readInput loads channels from an EDF or CSV recording, chosen by extension.
func readInput(path string, rate float64) ([]sqi.Channel, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".edf":
		return ingest.ReadEDFFile(path)
	case ".csv":
		return ingest.ReadCSVFile(path, rate)
	default:
		return nil, fmt.Errorf("unsupported input %s: want .edf or .csv", path)
	}
}

// report is the JSON output shape. Channels reuse the scoring API's
// per-channel form so both surfaces emit the same schema.
type report struct {
	Input         string                   `json:"input"`
	SegmentLength int                      `json:"segment_length"`
	Aggregation   sqi.Aggregation          `json:"aggregation"`
	Channels      []scoring.ChannelOutcome `json:"channels"`
}

func writeReport(w io.Writer, input string, cfg sqi.Config, res *sqi.Result) {
	rep := report{
		Input:         input,
		SegmentLength: cfg.SegmentLength,
		Aggregation:   cfg.ChannelAggregation,
		Channels:      scoring.OutcomesFromResult(res),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(rep)
}

func writeTable(w io.Writer, res *sqi.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tSCORE\tSEGMENTS\tWARNINGS\tERROR")
	for _, ch := range res.Channels {
		if ch.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t0\t0\t%s\n", ch.ChannelID, ch.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t-\n", ch.ChannelID, ch.Aggregate, len(ch.Segments), len(ch.Warnings))
	}
	tw.Flush()
}
