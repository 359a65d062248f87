// Package config loads server configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr         string
	LocalDomain  uint32
	Owner        string
	CallerSecret string
	GapScanCap   uint64

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// RedisConfig configures the optional shared compose queue backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional durable event store.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the optional event sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables with development
// defaults. The caller secret must be overridden in production.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         envOr("LANEGATE_ADDR", ":8080"),
		Owner:        envOr("LANEGATE_OWNER", "owner"),
		CallerSecret: envOr("LANEGATE_CALLER_SECRET", "dev-secret-change-in-production"),
		GapScanCap:   256,
		Redis: RedisConfig{
			URL:          os.Getenv("LANEGATE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("LANEGATE_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Topic: envOr("LANEGATE_KAFKA_TOPIC", "lanegate.events"),
		},
	}

	domain, err := parseUint32(envOr("LANEGATE_LOCAL_DOMAIN", "1"))
	if err != nil || domain == 0 {
		return Config{}, fmt.Errorf("LANEGATE_LOCAL_DOMAIN must be a non-zero uint32")
	}
	cfg.LocalDomain = domain

	if raw := os.Getenv("LANEGATE_GAP_SCAN_CAP"); raw != "" {
		cap64, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || cap64 == 0 {
			return Config{}, fmt.Errorf("LANEGATE_GAP_SCAN_CAP must be a positive integer")
		}
		cfg.GapScanCap = cap64
	}

	if raw := os.Getenv("LANEGATE_KAFKA_BROKERS"); raw != "" {
		cfg.Kafka.Brokers = strings.Split(raw, ",")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
