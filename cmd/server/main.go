package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fnirs-sqi/internal/calibration"
	"fnirs-sqi/internal/platform/config"
	"fnirs-sqi/internal/platform/logger"
	"fnirs-sqi/internal/platform/metrics"
	"fnirs-sqi/internal/scoring"
	"fnirs-sqi/internal/sqi"

	"github.com/go-chi/chi/v5"
)

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	storeBackend := config.GetEnv("STORE_BACKEND", "memory")
	sqlitePath := config.GetEnv("SQLITE_PATH", "sqi-runs.db")
	workers := config.GetEnvInt("SCORE_WORKERS", 0)
	profilePath := config.GetEnv("CALIBRATION_PROFILE", "")
	metricsEnabled := config.GetEnvBool("METRICS_ENABLED", true)
	shutdownTimeout := time.Duration(config.GetEnvFloat("SHUTDOWN_TIMEOUT_SECONDS", 10) * float64(time.Second))

	log := logger.New(logLevel, logFormat)

	cfg := sqi.DefaultConfig()
	if profilePath != "" {
		profile, err := calibration.Load(profilePath)
		if err != nil {
			log.Error("load calibration profile", "path", profilePath, "error", err)
			os.Exit(1)
		}
		cfg = profile.Apply(cfg)
		log.Info("calibration profile applied", "path", profilePath, "profile", profile.Name)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid calibration", "error", err)
		os.Exit(1)
	}

	var store scoring.Store
	var sqliteStore *scoring.SQLiteStore
	switch storeBackend {
	case "sqlite":
		s, err := scoring.OpenSQLiteStore(sqlitePath)
		if err != nil {
			log.Error("open sqlite store", "path", sqlitePath, "error", err)
			os.Exit(1)
		}
		sqliteStore = s
		store = s
	case "memory":
		store = scoring.NewInMemoryStore()
	default:
		log.Error("unknown store backend", "store_backend", storeBackend)
		os.Exit(1)
	}

	repo := scoring.NewRepositoryWithStore(store)
	svc := scoring.NewService(repo, cfg, workers)

	var met *metrics.Metrics
	if metricsEnabled {
		met = metrics.New()
	}
	h := scoring.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	if met != nil {
		r.Use(metrics.RequestMiddleware(met))
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			met.Handler(func() {
				if n, err := repo.StoredRunCount(); err == nil {
					met.SetStoredRuns(n)
				}
			}).ServeHTTP(w, req)
		})
	}
	r.Get("/healthz", h.Healthz)
	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", h.ScoreBatch)
		r.Get("/", h.ListRuns)
		r.Get("/{run_id}", h.GetRun)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"store_backend", storeBackend,
		"score_workers", workers,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	if sqliteStore != nil {
		if err := sqliteStore.Close(); err != nil {
			log.Error("close sqlite store", "error", err)
		}
	}

	log.Info("server stopped")
}
