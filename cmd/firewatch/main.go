// Command firewatch runs the fire detection pipeline: a scheduled fetch stage
// pulling the NASA FIRMS feed into Kafka batches, and a process stage that
// validates, enriches, persists, and alerts on them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/adapter/bigdatacloud"
	"github.com/couchcryptid/firewatch-etl/internal/adapter/firms"
	httpadapter "github.com/couchcryptid/firewatch-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/firewatch-etl/internal/adapter/kafka"
	"github.com/couchcryptid/firewatch-etl/internal/alert"
	"github.com/couchcryptid/firewatch-etl/internal/config"
	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/fetch"
	"github.com/couchcryptid/firewatch-etl/internal/observability"
	"github.com/couchcryptid/firewatch-etl/internal/process"
	"github.com/couchcryptid/firewatch-etl/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Reverse-geocoding enrichment. An absent API key degrades to the
	// unauthenticated quota rather than disabling enrichment.
	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		client := bigdatacloud.NewClient(cfg.GeocodeAPIKey, cfg.GeocodeTimeout, cfg.GeocodeRatePerSec, metrics, logger)
		geocoder = bigdatacloud.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		metrics.EnrichEnabled.Set(1)
		logger.Info("geocoding enrichment enabled",
			"authenticated", cfg.GeocodeAPIKey != "",
			"cache_size", cfg.GeocodeCacheSize,
			"timeout", cfg.GeocodeTimeout,
		)
	} else {
		logger.Info("geocoding enrichment disabled")
	}

	detector := alert.NewDetector()

	st, err := sqlite.Open(cfg.StorePath, detector)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	deadLetters := kafkaadapter.NewDeadLetterWriter(cfg, logger)
	alerts := kafkaadapter.NewAlertWriter(cfg, logger)
	notifier := alert.NewNotifier(alerts, logger)

	proc := process.New(reader, st, geocoder, deadLetters, detector, notifier, logger, metrics, cfg.ProcessConcurrency)

	srv := httpadapter.NewServer(cfg.HTTPAddr, proc, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the fetch trigger loop when a FIRMS key is configured; without
	// one this instance runs process-only.
	var batchWriter *kafkaadapter.BatchWriter
	if cfg.FirmsMapKey != "" {
		feed := firms.NewClient(cfg.FirmsMapKey, cfg.FirmsSource, cfg.FirmsTimeout, logger)
		batchWriter = kafkaadapter.NewBatchWriter(cfg, logger)
		fetcher := fetch.New(feed, batchWriter, logger, metrics, cfg.BatchSize, cfg.FetchWindow)
		go runFetchLoop(ctx, fetcher, cfg.FetchInterval, logger)
	} else {
		logger.Info("FIRMS map key not set, fetch stage disabled")
	}

	// Start the process stage.
	go func() {
		if err := proc.Run(ctx); err != nil {
			logger.Error("process stage error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if batchWriter != nil {
		if err := batchWriter.Close(); err != nil {
			logger.Error("kafka batch writer close error", "error", err)
		}
	}
	if err := deadLetters.Close(); err != nil {
		logger.Error("kafka dead-letter writer close error", "error", err)
	}
	if err := alerts.Close(); err != nil {
		logger.Error("kafka alert writer close error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// runFetchLoop is the scheduling substrate for the fetch stage: one immediate
// invocation, then one per interval until shutdown.
func runFetchLoop(ctx context.Context, fetcher *fetch.Stage, interval time.Duration, logger *slog.Logger) {
	runOnce := func() {
		if _, err := fetcher.Fetch(ctx); err != nil && ctx.Err() == nil {
			logger.Error("fetch stage failed", "error", err)
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
