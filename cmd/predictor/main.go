package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-risk-predictor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-risk-predictor/internal/adapter/kafka"
	"github.com/couchcryptid/storm-risk-predictor/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-risk-predictor/internal/classifier"
	"github.com/couchcryptid/storm-risk-predictor/internal/config"
	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
	"github.com/couchcryptid/storm-risk-predictor/internal/pipeline"
	"github.com/couchcryptid/storm-risk-predictor/internal/predictor"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Train before the listener opens; a failed bootstrap never serves.
	forest, err := classifier.Bootstrap(ctx, trainingConfig(cfg), logger, metrics)
	if err != nil {
		logger.Error("classifier bootstrap failed", "error", err)
		os.Exit(1)
	}

	var (
		sink   predictor.EventSink
		writer *kafkaadapter.Writer
		done   = make(chan struct{})
	)
	if cfg.KafkaEnabled {
		queue := pipeline.NewQueue(cfg.EventQueueSize, cfg.BatchFlushInterval, clockwork.NewRealClock(), metrics)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(newGeocoder(cfg, metrics, logger), logger)
		p := pipeline.New(queue, transformer, writer, logger, metrics, cfg.BatchSize)
		sink = queue

		// Start assessment event pipeline.
		go func() {
			defer close(done)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("assessment events enabled", "topic", cfg.KafkaAssessmentTopic, "brokers", cfg.KafkaBrokers)
	} else {
		close(done)
		logger.Info("assessment events disabled")
	}

	svc := predictor.New(forest, sink, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func trainingConfig(cfg *config.Config) classifier.TrainingConfig {
	forest := classifier.DefaultForestConfig()
	forest.Trees = cfg.ModelTrees
	forest.MaxDepth = cfg.ModelMaxDepth
	forest.Seed = cfg.ModelSeed
	forest.Workers = cfg.ModelWorkers
	return classifier.TrainingConfig{
		Rows:     cfg.ModelTrainingRows,
		DataSeed: cfg.ModelDataSeed,
		Forest:   forest,
	}
}

// newGeocoder returns nil when Mapbox is disabled or the cache cannot be built,
// which leaves events un-enriched.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.MapboxEnabled {
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
	if err != nil {
		logger.Error("mapbox cache init failed, geocoding disabled", "error", err)
		return nil
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return cached
}
