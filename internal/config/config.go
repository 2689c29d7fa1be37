package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL and BROKER_URL are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Message broker
	BrokerURL          string
	BrokerConnectWait  time.Duration // backoff between connect attempts
	BrokerConnectRetry int           // connect attempts before giving up
	BrokerRequestWait  time.Duration // publish/consume channel operation timeout
	ConsumerQueue      string
	ConsumerPrefetch   int

	// Redis (duplicate-delivery guard); empty address disables the guard
	RedisAddr string
	DedupTTL  time.Duration

	// Auth
	JWTSecret string

	// Delivery workers
	DeliveryWorkers int
	PushRate        int // per delivery kind, tokens per second

	// WebSocket gateway
	WSWriteWait   time.Duration
	WSPongWait    time.Duration
	WSMaxMsgBytes int64
	AllowedOrigin string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	brokerURL := os.Getenv("BROKER_URL")
	if brokerURL == "" {
		return nil, fmt.Errorf("BROKER_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		BrokerURL:          brokerURL,
		BrokerConnectWait:  getDuration("BROKER_CONNECT_WAIT", 300*time.Millisecond),
		BrokerConnectRetry: getInt("BROKER_CONNECT_RETRY", 5),
		BrokerRequestWait:  getDuration("BROKER_REQUEST_WAIT", 25*time.Second),
		ConsumerQueue:      getEnv("CONSUMER_QUEUE", "notifications-service"),
		ConsumerPrefetch:   getInt("CONSUMER_PREFETCH", 50),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		DedupTTL:  getDuration("DEDUP_TTL", 24*time.Hour),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		DeliveryWorkers: getInt("DELIVERY_WORKERS", 5),
		PushRate:        getInt("PUSH_RATE_PER_KIND", 100),

		WSWriteWait:   getDuration("WS_WRITE_WAIT", 10*time.Second),
		WSPongWait:    getDuration("WS_PONG_WAIT", 60*time.Second),
		WSMaxMsgBytes: int64(getInt("WS_MAX_MSG_BYTES", 4096)),
		AllowedOrigin: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
