package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters, gauges and histograms for the scoring
// service.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal          prometheus.Counter
	errorsTotal            prometheus.Counter
	runsScoredTotal        prometheus.Counter
	channelsScoredTotal    prometheus.Counter
	segmentsScoredTotal    prometheus.Counter
	scoresTotal            *prometheus.CounterVec
	insufficientDataTotal  prometheus.Counter
	degenerateSpectraTotal prometheus.Counter
	scoringDuration        prometheus.Histogram
	storedRuns             prometheus.Gauge
}

// New creates and registers Prometheus metrics for the scoring service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	runsScoredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_runs_scored_total",
		Help: "Total number of scoring runs completed",
	})
	channelsScoredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_channels_scored_total",
		Help: "Total number of channels that produced a score",
	})
	segmentsScoredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_segments_scored_total",
		Help: "Total number of segments scored",
	})
	scoresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sqi_scores_total",
		Help: "Total number of segment scores assigned, by score value",
	}, []string{"score"})
	insufficientDataTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_insufficient_data_total",
		Help: "Total number of channels rejected as too short to score",
	})
	degenerateSpectraTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sqi_degenerate_spectra_total",
		Help: "Total number of segments whose power spectrum was degenerate",
	})
	scoringDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqi_scoring_duration_seconds",
		Help:    "Wall time of one scoring run",
		Buckets: prometheus.DefBuckets,
	})
	storedRuns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sqi_stored_runs",
		Help: "Number of runs currently in the store",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		runsScoredTotal,
		channelsScoredTotal,
		segmentsScoredTotal,
		scoresTotal,
		insufficientDataTotal,
		degenerateSpectraTotal,
		scoringDuration,
		storedRuns,
	)

	// Materialize the five score series so dashboards see zeros instead of
	// missing series before the first run.
	for s := 1; s <= 5; s++ {
		scoresTotal.WithLabelValues(strconv.Itoa(s))
	}

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		errorsTotal:            errorsTotal,
		runsScoredTotal:        runsScoredTotal,
		channelsScoredTotal:    channelsScoredTotal,
		segmentsScoredTotal:    segmentsScoredTotal,
		scoresTotal:            scoresTotal,
		insufficientDataTotal:  insufficientDataTotal,
		degenerateSpectraTotal: degenerateSpectraTotal,
		scoringDuration:        scoringDuration,
		storedRuns:             storedRuns,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRunsScored increments the completed runs counter.
func (m *Metrics) IncRunsScored() {
	m.runsScoredTotal.Inc()
}

// IncChannelsScored increments the scored channels counter.
func (m *Metrics) IncChannelsScored() {
	m.channelsScoredTotal.Inc()
}

// AddSegmentsScored adds n to the scored segments counter.
func (m *Metrics) AddSegmentsScored(n int) {
	m.segmentsScoredTotal.Add(float64(n))
}

// IncScoreAssigned increments the per-score counter for the given score value.
func (m *Metrics) IncScoreAssigned(score int) {
	m.scoresTotal.WithLabelValues(strconv.Itoa(score)).Inc()
}

// IncInsufficientData increments the too-short channels counter.
func (m *Metrics) IncInsufficientData() {
	m.insufficientDataTotal.Inc()
}

// IncDegenerateSpectra increments the degenerate spectrum counter.
func (m *Metrics) IncDegenerateSpectra() {
	m.degenerateSpectraTotal.Inc()
}

// ObserveScoringDuration records the wall time of one run in seconds.
func (m *Metrics) ObserveScoringDuration(seconds float64) {
	m.scoringDuration.Observe(seconds)
}

// SetStoredRuns sets the stored runs gauge.
func (m *Metrics) SetStoredRuns(n int) {
	m.storedRuns.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. stored runs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
