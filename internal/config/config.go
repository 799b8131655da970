package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// CORS and rate limiting for the predict route.
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Startup training run.
	ModelTrainingRows int
	ModelTrees        int
	ModelMaxDepth     int
	ModelSeed         uint64
	ModelDataSeed     uint64
	ModelWorkers      int

	// Assessment event stream.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaAssessmentTopic string
	EventQueueSize       int
	BatchSize            int
	BatchFlushInterval   time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	rateLimitRPS, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "0"), 64)
	if err != nil || rateLimitRPS < 0 {
		return nil, errors.New("invalid RATE_LIMIT_RPS")
	}

	cfg := &Config{
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		CORSAllowedOrigins:   parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:         rateLimitRPS,
		KafkaEnabled:         sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAssessmentTopic: sharedcfg.EnvOrDefault("KAFKA_ASSESSMENT_TOPIC", "risk-assessments"),
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,
	}

	if cfg.RateLimitBurst, err = parseNonNegativeInt("RATE_LIMIT_BURST", "50"); err != nil {
		return nil, err
	}
	if cfg.ModelTrainingRows, err = parseNonNegativeInt("MODEL_TRAINING_ROWS", "10000"); err != nil {
		return nil, err
	}
	if cfg.ModelTrees, err = parseNonNegativeInt("MODEL_TREES", "100"); err != nil {
		return nil, err
	}
	if cfg.ModelMaxDepth, err = parseNonNegativeInt("MODEL_MAX_DEPTH", "0"); err != nil {
		return nil, err
	}
	if cfg.ModelWorkers, err = parseNonNegativeInt("MODEL_WORKERS", "0"); err != nil {
		return nil, err
	}
	if cfg.EventQueueSize, err = parseNonNegativeInt("EVENT_QUEUE_SIZE", "1024"); err != nil {
		return nil, err
	}
	if cfg.ModelSeed, err = parseSeed("MODEL_SEED", "42"); err != nil {
		return nil, err
	}
	if cfg.ModelDataSeed, err = parseSeed("MODEL_DATA_SEED", "0"); err != nil {
		return nil, err
	}

	cfg.MapboxToken = os.Getenv("MAPBOX_TOKEN")
	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}
	cfg.MapboxTimeout = mapboxTimeout
	cfg.MapboxCacheSize = parseMapboxCacheSize()

	if cfg.ModelTrainingRows == 0 {
		return nil, errors.New("MODEL_TRAINING_ROWS must be positive")
	}
	if cfg.ModelTrees == 0 {
		return nil, errors.New("MODEL_TREES must be positive")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		return nil, errors.New("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaAssessmentTopic == "" {
			return nil, errors.New("KAFKA_ASSESSMENT_TOPIC is required when KAFKA_ENABLED is true")
		}
		if cfg.EventQueueSize == 0 {
			return nil, errors.New("EVENT_QUEUE_SIZE must be positive when KAFKA_ENABLED is true")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseNonNegativeInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseSeed(key, def string) (uint64, error) {
	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault(key, def), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return seed, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
