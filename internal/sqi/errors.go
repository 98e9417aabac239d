package sqi

import "fmt"

// InsufficientDataError reports a channel that is shorter than one configured
// segment. It is recorded per channel and never aborts scoring of other
// channels in the same batch.
type InsufficientDataError struct {
	ChannelID string
	Samples   int // samples the channel actually has
	Required  int // samples one segment needs
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("channel %q: insufficient data: %d samples, need at least %d", e.ChannelID, e.Samples, e.Required)
}

// InvalidConfigurationError reports a contradictory calibration setting.
// It is raised by Config.Validate before any scoring begins.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Warning records a non-fatal numeric problem observed while scoring a
// segment, e.g. a degenerate power spectrum. The affected segment is still
// scored (by policy it scores 1), so warnings are informational.
type Warning struct {
	ChannelID string `json:"channel_id"`
	Segment   int    `json:"segment"`
	Reason    string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("channel %q segment %d: %s", w.ChannelID, w.Segment, w.Reason)
}
