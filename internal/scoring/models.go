package scoring

import (
	"time"

	"fnirs-sqi/internal/calibration"
	"fnirs-sqi/internal/sqi"
)

// RunID uniquely identifies a stored scoring run.
type RunID string

// ChannelPayload is one channel of a scoring request.
// This also matches the input JSON payload for submitting a batch.
type ChannelPayload struct {
	ID         string    `json:"id"`
	SampleRate float64   `json:"sample_rate"`
	Samples    []float64 `json:"samples"`
}

// ScoreRequest is the body of a batch scoring request. Calibration, when
// present, overrides individual fields of the service's base configuration
// for this run only.
type ScoreRequest struct {
	Channels    []ChannelPayload     `json:"channels"`
	Calibration *calibration.Profile `json:"calibration,omitempty"`
}

// ChannelOutcome is the per-channel result of a run as stored and returned
// by the API. Either Error is set and the channel has no scores, or Error is
// empty and every segment carries a score plus the aggregate.
type ChannelOutcome struct {
	ChannelID string             `json:"channel_id"`
	Error     string             `json:"error,omitempty"`
	Aggregate sqi.Score          `json:"aggregate,omitempty"`
	Segments  []sqi.SegmentScore `json:"segments,omitempty"`
	Warnings  []sqi.Warning      `json:"warnings,omitempty"`
}

// Run is the stored record of one scoring run. It doubles as the JSON payload
// the API returns and the sqlite store persists.
type Run struct {
	ID            RunID            `json:"run_id"`
	CreatedAt     time.Time        `json:"created_at"`
	SegmentLength int              `json:"segment_length"`
	Aggregation   sqi.Aggregation  `json:"aggregation"`
	Channels      []ChannelOutcome `json:"channels"`
}

// RunListResponse is the JSON payload of the run index endpoint.
type RunListResponse struct {
	RunIDs []RunID `json:"run_ids"`
}

// OutcomesFromResult converts a scoring result into the stored per-channel
// form, flattening per-channel errors into messages.
func OutcomesFromResult(res *sqi.Result) []ChannelOutcome {
	out := make([]ChannelOutcome, 0, len(res.Channels))
	for _, ch := range res.Channels {
		oc := ChannelOutcome{
			ChannelID: ch.ChannelID,
			Aggregate: ch.Aggregate,
			Segments:  ch.Segments,
			Warnings:  ch.Warnings,
		}
		if ch.Err != nil {
			oc.Error = ch.Err.Error()
			oc.Aggregate = 0
		}
		out = append(out, oc)
	}
	return out
}
