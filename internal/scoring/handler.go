package scoring

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fnirs-sqi/internal/platform/metrics"
	"fnirs-sqi/internal/sqi"

	"github.com/go-chi/chi/v5"
)

// Handler exposes scoring HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// errorResponse is the JSON body of rejected requests.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ScoreBatch handles POST /v1/runs.
// Body: { "channels": [{ "id": "S1-D1", "sample_rate": 10, "samples": [...] }],
// "calibration": { "prominence_threshold": 2.5 } }.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid run body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	start := time.Now()
	run, err := h.svc.ScoreBatch(r.Context(), req)
	if err != nil {
		var cfgErr *sqi.InvalidConfigurationError
		switch {
		case errors.Is(err, ErrNoChannels):
			h.log.Info("run rejected", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.As(err, &cfgErr):
			h.log.Info("run rejected invalid calibration",
				slog.String("field", cfgErr.Field),
				slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			h.log.Error("score batch failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	elapsed := time.Since(start)
	h.log.Info("run scored",
		slog.String("run_id", string(run.ID)),
		slog.Int("channels", len(run.Channels)),
		slog.Int("duration_ms", int(elapsed.Milliseconds())))
	writeJSON(w, http.StatusCreated, run)
	if h.metrics != nil {
		h.metrics.IncRunsScored()
		h.metrics.ObserveScoringDuration(elapsed.Seconds())
		recordRunMetrics(h.metrics, run)
	}
}

// GetRun handles GET /v1/runs/{run_id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := RunID(chi.URLParam(r, "run_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	run, err := h.svc.GetRun(id)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.log.Error("get run failed",
			slog.String("run_id", string(id)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /v1/runs. It returns stored run ids, most recent first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ids, err := h.svc.ListRunIDs()
	if err != nil {
		h.log.Error("list runs failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, RunListResponse{RunIDs: ids})
}

// Healthz handles GET /healthz. Liveness only; it touches no store.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recordRunMetrics translates one run outcome into counter increments.
func recordRunMetrics(m *metrics.Metrics, run *Run) {
	for _, ch := range run.Channels {
		if ch.Error != "" {
			m.IncInsufficientData()
			continue
		}
		m.IncChannelsScored()
		m.AddSegmentsScored(len(ch.Segments))
		for _, seg := range ch.Segments {
			m.IncScoreAssigned(int(seg.Score))
		}
		for range ch.Warnings {
			m.IncDegenerateSpectra()
		}
	}
}
