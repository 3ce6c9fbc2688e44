// Package config loads the server's environment-variable configuration
// (§6) and its optional YAML settings file (stop-string rule sets,
// notification settings — §2 ambient additions).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the three tunables the adapter may default and the
// environment may override (§6), plus the ambient domain-stack
// settings (persistent cache, alerting, MCP bridge).
type Config struct {
	LanguageModel string
	Threads       int
	BatchSize     int
	CacheSize     int
	HTTPPort      string

	SlackWebhookURL  string
	MCPBridgeEnabled bool
}

// Load reads configuration from the environment, first loading envPath
// (if present) via godotenv the way the teacher's cmd/tarsy/main.go
// loads its .env file — missing files are not fatal, malformed integer
// overrides are (§6: "malformed values fail startup").
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading %s: %w", envPath, err)
		}
	}

	cfg := &Config{
		LanguageModel:    os.Getenv("LANGUAGE_MODEL"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
		MCPBridgeEnabled: os.Getenv("MCP_BRIDGE_ENABLED") == "true",
	}

	var err error
	if cfg.Threads, err = getEnvInt("THREADS", 1); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", 8); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getEnvInt("CACHE_SIZE", 0); err != nil {
		return nil, err
	}

	if cfg.LanguageModel == "" {
		return nil, fmt.Errorf("config: LANGUAGE_MODEL is required")
	}

	return cfg, nil
}

// ApplyAdapterDefaults overrides Threads/BatchSize/CacheSize with the
// adapter's PREFERRED_SETTINGS wherever the corresponding environment
// variable was not set (§6): the environment always wins when present.
func (c *Config) ApplyAdapterDefaults(threads, batchSize, cacheSize int) {
	applyDefault("THREADS", &c.Threads, threads)
	applyDefault("BATCH_SIZE", &c.BatchSize, batchSize)
	applyDefault("CACHE_SIZE", &c.CacheSize, cacheSize)
}

func applyDefault(envVar string, current *int, preferred int) {
	if preferred == 0 {
		return
	}
	if _, set := os.LookupEnv(envVar); !set {
		*current = preferred
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, set := os.LookupEnv(key)
	if !set || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, raw)
	}
	return v, nil
}
