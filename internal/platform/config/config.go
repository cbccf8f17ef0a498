// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a default that works for local development;
// production overrides arrive as MIRATHI_* environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration for the readiness service.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Outbox   Outbox
	Sweep    Sweep
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Database captures Postgres connection configuration. An empty URL means
// the service runs on in-memory stores (development mode).
type Database struct {
	URL string
}

// RedisConfig captures the snapshot-cache connection. An empty URL disables
// the cache; reads go straight to the store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Kafka captures broker addresses and the topics the service produces to and
// consumes from. Empty brokers disable the event pipeline.
type Kafka struct {
	Brokers     string
	EventsTopic string
	FactsTopic  string
	FactsGroup  string
}

// Outbox captures the outbox publishing worker's knobs.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
}

// Sweep captures the auto-resolve sweep worker's knobs.
type Sweep struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envString("MIRATHI_ADDR", ":8080"),
			Environment:    envString("MIRATHI_ENV", "development"),
			RequestTimeout: envDuration("MIRATHI_REQUEST_TIMEOUT", 30*time.Second),
			MaxBodyBytes:   envInt64("MIRATHI_MAX_BODY_BYTES", 1<<20),
		},
		Database: Database{
			URL: os.Getenv("MIRATHI_DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("MIRATHI_REDIS_URL"),
			PoolSize:     envInt("MIRATHI_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MIRATHI_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("MIRATHI_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MIRATHI_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MIRATHI_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("MIRATHI_CACHE_TTL", 5*time.Minute),
		},
		Kafka: Kafka{
			Brokers:     os.Getenv("MIRATHI_KAFKA_BROKERS"),
			EventsTopic: envString("MIRATHI_KAFKA_EVENTS_TOPIC", "mirathi.readiness.events"),
			FactsTopic:  envString("MIRATHI_KAFKA_FACTS_TOPIC", "mirathi.case.facts"),
			FactsGroup:  envString("MIRATHI_KAFKA_FACTS_GROUP", "mirathi-readiness"),
		},
		Outbox: Outbox{
			PollInterval: envDuration("MIRATHI_OUTBOX_POLL_INTERVAL", 5*time.Second),
			BatchSize:    envInt("MIRATHI_OUTBOX_BATCH_SIZE", 100),
		},
		Sweep: Sweep{
			Interval:    envDuration("MIRATHI_SWEEP_INTERVAL", 15*time.Minute),
			BatchSize:   envInt("MIRATHI_SWEEP_BATCH_SIZE", 100),
			Concurrency: envInt("MIRATHI_SWEEP_CONCURRENCY", 4),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
