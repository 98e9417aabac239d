package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fnirs-sqi/internal/sqi"
)

// ErrNoChannels is returned when a scoring request carries no channels.
var ErrNoChannels = errors.New("request has no channels")

// Service scores submitted channel batches against a base calibration and
// records each run in the Repository.
type Service struct {
	repo    Repository
	base    sqi.Config
	workers int
}

// NewService returns a Service that scores with the given base calibration.
// Up to workers channels are scored concurrently per run; if workers <= 0,
// one worker per CPU is used.
func NewService(repo Repository, base sqi.Config, workers int) *Service {
	return &Service{repo: repo, base: base, workers: workers}
}

// ScoreBatch scores one submitted batch synchronously, persists the outcome
// as a new run and returns it. Per-channel failures are recorded inside the
// run; ScoreBatch itself fails only on an empty batch, a contradictory
// calibration, a cancelled context, or a store error.
func (s *Service) ScoreBatch(ctx context.Context, req ScoreRequest) (*Run, error) {
	if len(req.Channels) == 0 {
		return nil, ErrNoChannels
	}

	cfg := s.base
	if req.Calibration != nil {
		cfg = req.Calibration.Apply(cfg)
	}

	scorer, err := sqi.NewScorer(cfg, s.workers)
	if err != nil {
		return nil, err
	}

	channels := make([]sqi.Channel, 0, len(req.Channels))
	for _, ch := range req.Channels {
		channels = append(channels, sqi.Channel{
			ID:         ch.ID,
			SampleRate: ch.SampleRate,
			Samples:    ch.Samples,
		})
	}

	res, err := scorer.Score(ctx, channels)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:            RunID(uuid.NewString()),
		CreatedAt:     time.Now().UTC(),
		SegmentLength: cfg.SegmentLength,
		Aggregation:   cfg.ChannelAggregation,
		Channels:      OutcomesFromResult(res),
	}
	if err := s.repo.SaveRun(run); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}
	return run, nil
}

// GetRun returns a stored run by id; ErrRunNotFound when it does not exist.
func (s *Service) GetRun(id RunID) (*Run, error) {
	return s.repo.GetRun(id)
}

// ListRunIDs returns the stored run ids, most recent first.
func (s *Service) ListRunIDs() ([]RunID, error) {
	return s.repo.ListRunIDs()
}
