package sqi

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// Scorer grades channel batches against one fixed, validated calibration.
// It is safe for concurrent use; the configuration is immutable for the
// Scorer's lifetime.
type Scorer struct {
	cfg     Config
	workers int
}

// NewScorer validates cfg eagerly and returns a Scorer that scores up to
// workers channels concurrently. If workers <= 0, one worker per CPU is used.
func NewScorer(cfg Config, workers int) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scorer{cfg: cfg, workers: workers}, nil
}

// Config returns the scorer's calibration.
func (s *Scorer) Config() Config { return s.cfg }

// Score grades every channel of the batch. Channels are independent pure
// computations, so they are fanned out to the worker pool with no shared
// mutable state; a channel that is too short gets its error recorded in its
// result slot while the rest of the batch still scores. Cancelling ctx
// abandons the remaining work and returns the context error.
func (s *Scorer) Score(ctx context.Context, channels []Channel) (*Result, error) {
	results := make([]ChannelResult, len(channels))

	workers := s.workers
	if workers > len(channels) {
		workers = len(channels)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.scoreChannel(ctx, channels[i])
			}
		}()
	}

feed:
	for i := range channels {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Channels: results}, nil
}

// ScoreChannels runs one scoring pass with the given configuration and the
// default worker count.
func ScoreChannels(ctx context.Context, channels []Channel, cfg Config) (*Result, error) {
	scorer, err := NewScorer(cfg, 0)
	if err != nil {
		return nil, err
	}
	return scorer.Score(ctx, channels)
}

// scoreChannel runs the full pipeline over one channel: segmentation, feature
// extraction, then the three-stage cascade per segment. Stage one and stage
// two short-circuit, so the periodicity feature is only computed for segments
// that reach the intermediate rating.
func (s *Scorer) scoreChannel(ctx context.Context, ch Channel) ChannelResult {
	res := ChannelResult{ChannelID: ch.ID}

	segments, err := segmentChannel(ch, s.cfg)
	if err != nil {
		res.Err = err
		return res
	}

	r := channelRails(ch.Samples)
	res.Segments = make([]SegmentScore, 0, len(segments))
	for _, seg := range segments {
		// Cancellation is coarse: finished segments stand, the rest are
		// abandoned. Score discards the partial result.
		if ctx.Err() != nil {
			return res
		}

		f := timeDomainFeatures(seg, r, s.cfg)
		f.Spectral = extractSpectral(seg, s.cfg)
		if f.Spectral.Degenerate {
			res.Warnings = append(res.Warnings, Warning{
				ChannelID: ch.ID,
				Segment:   seg.Index,
				Reason:    "degenerate power spectrum",
			})
		}

		var score Score
		switch {
		case classifyLow(f, s.cfg) == Low:
			score = ScoreVeryLow
		case classifyHigh(f, s.cfg) == High:
			score = ScoreVeryHigh
		default:
			f.Periodicity = cardiacPeriodicity(seg, s.cfg)
			score = rate(f, s.cfg)
		}

		res.Segments = append(res.Segments, SegmentScore{
			Segment: seg.Index,
			Start:   seg.Start,
			Length:  seg.Length(),
			Score:   score,
		})
	}

	res.Aggregate = aggregateScores(res.Segments, s.cfg.ChannelAggregation)
	return res
}

// aggregateScores collapses segment scores into one channel score using the
// configured rule. Mode ties resolve to the worse score.
func aggregateScores(segments []SegmentScore, rule Aggregation) Score {
	if len(segments) == 0 {
		return 0
	}
	switch rule {
	case AggregateMinimum:
		min := segments[0].Score
		for _, s := range segments[1:] {
			if s.Score < min {
				min = s.Score
			}
		}
		return min
	case AggregateMeanRounded:
		var sum float64
		for _, s := range segments {
			sum += float64(s.Score)
		}
		return Score(math.Round(sum / float64(len(segments))))
	default: // AggregateMode
		var counts [6]int
		for _, s := range segments {
			counts[s.Score]++
		}
		best, bestCount := ScoreVeryLow, 0
		for sc := ScoreVeryLow; sc <= ScoreVeryHigh; sc++ {
			if counts[sc] > bestCount {
				best, bestCount = sc, counts[sc]
			}
		}
		return best
	}
}
