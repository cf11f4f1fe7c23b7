package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zha_status/core-go/internal/collector"
	"zha_status/core-go/internal/config"
	"zha_status/core-go/internal/haws"
	"zha_status/core-go/internal/history"
	"zha_status/core-go/internal/httpapi"
	"zha_status/core-go/internal/metrics"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var store *history.Store
	if cfg.DatabaseURL != "" {
		s, err := history.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to history database")
		}
		defer s.Close()
		store = s
	}

	dial := func(ctx context.Context) (collector.Session, error) {
		return haws.Connect(ctx, logger, haws.Config{
			URL:     cfg.Hub.URL,
			Token:   cfg.Hub.Token,
			TLSMode: cfg.Hub.TLSMode,
		})
	}

	var hist collector.History
	if store != nil {
		hist = store
	}

	worker := collector.New(logger, dial, collector.Options{
		Interval:         cfg.Collector.Interval(),
		DeviceDelay:      cfg.Collector.DeviceDelay(),
		OfflineThreshold: cfg.Collector.OfflineThreshold(),
		SnapshotPath:     cfg.Collector.SnapshotPath,
		LedgerPath:       cfg.Collector.LedgerPath,
		NeighborsEnabled: cfg.Collector.NeighborsEnabled,
	}, m, hist)
	go worker.Run(ctx)

	var pinger httpapi.Pinger
	if store != nil {
		pinger = store
	}

	h := httpapi.NewHandler(logger, m, pinger, cfg.Collector.SnapshotPath, worker.TriggerCollect)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("zha-status listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
