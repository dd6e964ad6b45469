// Package config loads service configuration from the environment so main
// stays lean. Empty values disable the optional subsystems (Postgres falls
// back to memory stores, Redis and Kafka stay off).
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	LogLevel string
}

type Server struct {
	Addr           string
	RequestTimeout time.Duration
}

type Postgres struct {
	DSN string
}

type Redis struct {
	URL          string
	RelatedTTL   time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers    []string
	AuditTopic string
}

type Auth struct {
	// JWTSigningKey enables bearer-token auth on write routes when set.
	JWTSigningKey string
	// APIKeyHash is a bcrypt hash of the accepted API key; an alternative to
	// JWT for machine callers.
	APIKeyHash string
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           getenv("REGISTRAR_ADDR", ":8080"),
			RequestTimeout: getduration("REGISTRAR_REQUEST_TIMEOUT", 30*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("REGISTRAR_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REGISTRAR_REDIS_URL"),
			RelatedTTL:   getduration("REGISTRAR_REDIS_RELATED_TTL", 30*time.Second),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Brokers:    splitList(os.Getenv("REGISTRAR_KAFKA_BROKERS")),
			AuditTopic: getenv("REGISTRAR_AUDIT_TOPIC", "registrar.audit"),
		},
		Auth: Auth{
			JWTSigningKey: os.Getenv("REGISTRAR_JWT_SIGNING_KEY"),
			APIKeyHash:    os.Getenv("REGISTRAR_API_KEY_HASH"),
		},
		LogLevel: getenv("REGISTRAR_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
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

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
