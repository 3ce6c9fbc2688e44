package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresLanguageModel(t *testing.T) {
	t.Setenv("LANGUAGE_MODEL", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LANGUAGE_MODEL", "dummy")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dummy", cfg.LanguageModel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 0, cfg.CacheSize)
}

func TestLoadRejectsMalformedInteger(t *testing.T) {
	t.Setenv("LANGUAGE_MODEL", "dummy")
	t.Setenv("BATCH_SIZE", "not-a-number")
	_, err := Load("")
	assert.ErrorContains(t, err, "BATCH_SIZE")
}

func TestLoadRespectsExplicitOverrides(t *testing.T) {
	t.Setenv("LANGUAGE_MODEL", "dummy")
	t.Setenv("THREADS", "4")
	t.Setenv("CACHE_SIZE", "1000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 1000, cfg.CacheSize)
}

func TestApplyAdapterDefaultsYieldsToEnvironment(t *testing.T) {
	t.Setenv("LANGUAGE_MODEL", "dummy")
	t.Setenv("THREADS", "4")
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.ApplyAdapterDefaults(16, 32, 500)
	assert.Equal(t, 4, cfg.Threads, "explicit THREADS must win over the adapter's preference")
	assert.Equal(t, 32, cfg.BatchSize, "unset BATCH_SIZE takes the adapter's preference")
	assert.Equal(t, 500, cfg.CacheSize)
}
