package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// Stages receive it (or values from it) at construction; nothing reads the
// environment after Load returns.
type Config struct {
	KafkaBrokers         []string
	KafkaBatchTopic      string
	KafkaDeadLetterTopic string
	KafkaAlertTopic      string
	KafkaGroupID         string
	HTTPAddr             string
	LogLevel             string
	LogFormat            string
	ShutdownTimeout      time.Duration

	// Store configuration.
	StorePath string

	// FIRMS feed configuration. An empty map key disables the fetch stage
	// (process-only deployment).
	FirmsMapKey   string
	FirmsSource   string
	FirmsTimeout  time.Duration
	FetchWindow   time.Duration
	FetchInterval time.Duration
	BatchSize     int

	// Reverse-geocoding configuration. An empty API key is valid: the
	// BigDataCloud client endpoint works unauthenticated at reduced quota.
	GeocodeEnabled    bool
	GeocodeAPIKey     string
	GeocodeTimeout    time.Duration
	GeocodeRatePerSec float64
	GeocodeCacheSize  int

	ProcessConcurrency int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	firmsTimeout, err := durationEnv("FIRMS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	fetchWindow, err := durationEnv("FETCH_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	fetchInterval, err := durationEnv("FETCH_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := durationEnv("GEOCODE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	batchSize, err := intEnv("BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	if batchSize < 1 || batchSize > 100 {
		return nil, errors.New("BATCH_SIZE must be between 1 and 100")
	}

	concurrency, err := intEnv("PROCESS_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, errors.New("PROCESS_CONCURRENCY must be at least 1")
	}

	cacheSize, err := intEnv("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if cacheSize < 1 {
		return nil, errors.New("GEOCODE_CACHE_SIZE must be at least 1")
	}

	ratePerSec, err := floatEnv("GEOCODE_RATE_PER_SEC", 10)
	if err != nil {
		return nil, err
	}
	if ratePerSec <= 0 {
		return nil, errors.New("GEOCODE_RATE_PER_SEC must be positive")
	}

	geocodeEnabled := true
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:         splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaBatchTopic:      envOrDefault("KAFKA_BATCH_TOPIC", "fire-batches"),
		KafkaDeadLetterTopic: envOrDefault("KAFKA_DEAD_LETTER_TOPIC", "fire-dead-letter"),
		KafkaAlertTopic:      envOrDefault("KAFKA_ALERT_TOPIC", "fire-alerts"),
		KafkaGroupID:         envOrDefault("KAFKA_GROUP_ID", "firewatch-etl"),
		HTTPAddr:             envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,

		StorePath: envOrDefault("STORE_PATH", "firewatch.db"),

		FirmsMapKey:   os.Getenv("FIRMS_MAP_KEY"),
		FirmsSource:   envOrDefault("FIRMS_SOURCE", "VIIRS_SNPP_NRT"),
		FirmsTimeout:  firmsTimeout,
		FetchWindow:   fetchWindow,
		FetchInterval: fetchInterval,
		BatchSize:     batchSize,

		GeocodeEnabled:    geocodeEnabled,
		GeocodeAPIKey:     os.Getenv("GEOCODE_API_KEY"),
		GeocodeTimeout:    geocodeTimeout,
		GeocodeRatePerSec: ratePerSec,
		GeocodeCacheSize:  cacheSize,

		ProcessConcurrency: concurrency,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaBatchTopic == "" {
		return nil, errors.New("KAFKA_BATCH_TOPIC is required")
	}
	if cfg.KafkaDeadLetterTopic == "" {
		return nil, errors.New("KAFKA_DEAD_LETTER_TOPIC is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.StorePath == "" {
		return nil, errors.New("STORE_PATH is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
