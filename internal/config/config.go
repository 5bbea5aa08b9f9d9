package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/hydro-sonify/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetURL         string
	SamplesBaseURL     string
	SampleFetchTimeout time.Duration
	SampleCacheSize    int
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration

	// MIDI output; empty disables the MIDI sink.
	MIDIPort string

	// Kafka note-event sink.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaNotesTopic    string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Initial is the configuration the engine starts with.
	Initial domain.Configuration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SAMPLE_FETCH_TIMEOUT", "0s"))
	if err != nil || fetchTimeout < 0 {
		return nil, errors.New("invalid SAMPLE_FETCH_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseSampleCacheSize()
	if err != nil {
		return nil, err
	}

	initial, err := parseInitial()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatasetURL:         sharedcfg.EnvOrDefault("DATASET_URL", "./GSIM.json"),
		SamplesBaseURL:     sharedcfg.EnvOrDefault("SAMPLES_BASE_URL", "http://localhost:8000/samples/"),
		SampleFetchTimeout: fetchTimeout,
		SampleCacheSize:    cacheSize,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,

		MIDIPort: os.Getenv("MIDI_PORT"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotesTopic:    sharedcfg.EnvOrDefault("KAFKA_NOTES_TOPIC", "sonified-notes"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Initial: initial,
	}

	if cfg.DatasetURL == "" {
		return nil, errors.New("DATASET_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaNotesTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_NOTES_TOPIC is empty")
	}

	return cfg, nil
}

func parseSampleCacheSize() (int, error) {
	s := os.Getenv("SAMPLE_CACHE_SIZE")
	if s == "" {
		return 128, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid SAMPLE_CACHE_SIZE")
	}
	return n, nil
}

// parseInitial builds the starting configuration from the defaults and the
// ARRANGEMENT, BPM, BPM_AUTO, VOLUME and DRUM_PATTERN variables.
func parseInitial() (domain.Configuration, error) {
	c := domain.DefaultConfiguration()
	c.Arrangement = sharedcfg.EnvOrDefault("ARRANGEMENT", c.Arrangement)
	c.DrumPattern = sharedcfg.EnvOrDefault("DRUM_PATTERN", c.DrumPattern)

	if s := os.Getenv("BPM"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, errors.New("invalid BPM")
		}
		c.BPM = v
	}
	if s := os.Getenv("BPM_AUTO"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return c, errors.New("invalid BPM_AUTO")
		}
		c.BPMAuto = v
	}
	if s := os.Getenv("VOLUME"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, errors.New("invalid VOLUME")
		}
		c.Volume = v
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid initial configuration (ARRANGEMENT, BPM, VOLUME, DRUM_PATTERN): %w", err)
	}
	return c, nil
}
