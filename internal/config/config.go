package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN        string
	HTTPAddr           string
	RedisAddr          string
	KafkaBrokers       []string
	KafkaEventsTopic   string
	KafkaTransferTopic string
	KafkaGroupID       string
	EnsureSchema       bool
	TxTimeout          time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	LogLevel           string
	OTLPEndpoint       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:        getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=bank sslmode=disable"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		KafkaEventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "bank-client-events"),
		KafkaTransferTopic: getEnv("KAFKA_TRANSFER_TOPIC", "transfer-requests"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "bank-client-service"),
		EnsureSchema:       getBool("ENSURE_SCHEMA", true),
		TxTimeout:          getDuration("TX_TIMEOUT", 5*time.Second),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 100),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		cfg.KafkaBrokers = []string{broker}
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"ensure_schema", cfg.EnsureSchema,
		"tx_timeout", cfg.TxTimeout,
		"otlp_endpoint", cfg.OTLPEndpoint,
	)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}
