package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all process settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	HTTPAddr        string
	MetricsFile     string

	// Visualization.
	CatalogPath       string
	NormalizationMode string
	TileStyle         string
	ChartWidth        int
	ChartHeight       int

	// Data source fetching.
	FetchTimeout   time.Duration
	FetchCacheSize int

	// Kafka event input and frame output.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaEventsTopic   string
	KafkaFramesTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	chartWidth, err := parsePositiveInt("CHART_WIDTH", 800)
	if err != nil {
		return nil, err
	}
	chartHeight, err := parsePositiveInt("CHART_HEIGHT", 240)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("FETCH_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "auto"),
		ShutdownTimeout: shutdownTimeout,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		MetricsFile:     os.Getenv("METRICS_FILE"),

		CatalogPath:       os.Getenv("CATALOG_PATH"),
		NormalizationMode: sharedcfg.EnvOrDefault("NORMALIZATION_MODE", "local"),
		TileStyle:         sharedcfg.EnvOrDefault("TILE_STYLE", "day"),
		ChartWidth:        chartWidth,
		ChartHeight:       chartHeight,

		FetchTimeout:   fetchTimeout,
		FetchCacheSize: cacheSize,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(envOrDefaultUnlessSet("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic:   envOrDefaultUnlessSet("KAFKA_EVENTS_TOPIC", "flower-events"),
		KafkaFramesTopic:   os.Getenv("KAFKA_FRAMES_TOPIC"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crime-flowers"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.NormalizationMode {
	case "local", "global":
	default:
		return nil, errors.New("NORMALIZATION_MODE must be local or global")
	}
	switch cfg.TileStyle {
	case "day", "night":
	default:
		return nil, errors.New("TILE_STYLE must be day or night")
	}
	switch cfg.LogFormat {
	case "auto", "json", "text", "console":
	default:
		return nil, errors.New("LOG_FORMAT must be auto, json, text or console")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaEventsTopic == "" {
			return nil, errors.New("KAFKA_EVENTS_TOPIC is required")
		}
	}

	return cfg, nil
}

// envOrDefaultUnlessSet returns def only when key is absent, so an explicitly
// empty value reaches validation.
func envOrDefaultUnlessSet(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
