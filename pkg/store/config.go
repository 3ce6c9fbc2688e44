package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the persistent-cache database configuration (§4.9,
// §6 DATABASE_URL).
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoadConfigFromEnv reads DATABASE_URL and the connection pool tuning
// variables. An empty DATABASE_URL means the persistent cache is
// disabled; callers should fall back to memcache.LRU in that case
// rather than treat it as an error.
func LoadConfigFromEnv() (Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Config{}, nil
	}

	maxOpen, err := atoiOrDefault("STORE_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiOrDefault("STORE_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lifetime, err := time.ParseDuration(getOrDefault("STORE_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STORE_CONN_MAX_LIFETIME: %w", err)
	}

	return Config{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
	}, nil
}

// Enabled reports whether a DSN was configured.
func (c Config) Enabled() bool { return c.DSN != "" }

func getOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiOrDefault(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
