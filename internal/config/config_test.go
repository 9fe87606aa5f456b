package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tonal/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, config.ModeLocal, cfg.Mode)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, config.TransformerMock, cfg.Transformer)
	require.Equal(t, 30*time.Second, cfg.TransformTimeout)
	require.Equal(t, config.InFlightCommit, cfg.InFlightPolicy)
	require.Equal(t, 0, cfg.MaxHistory)
	require.Equal(t, config.CacheMemory, cfg.CacheBackend)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, 2*time.Second, cfg.CacheTimeout)
	require.Equal(t, "tonal:cache:", cfg.RedisKeyPrefix)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TONAL_PORT", "9090")
	t.Setenv("TONAL_TRANSFORM_TIMEOUT", "2s")
	t.Setenv("TONAL_MAX_HISTORY", "50")
	t.Setenv("TONAL_INFLIGHT_POLICY", "discard")
	t.Setenv("TONAL_CACHE_BACKEND", "redis")
	t.Setenv("TONAL_TRANSFORMER", "mistral")
	t.Setenv("MISTRAL_API_KEY", "k")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Addr())
	require.Equal(t, 2*time.Second, cfg.TransformTimeout)
	require.Equal(t, 50, cfg.MaxHistory)
	require.Equal(t, config.InFlightDiscard, cfg.InFlightPolicy)
	require.Equal(t, config.CacheRedis, cfg.CacheBackend)
	require.Equal(t, config.TransformerMistral, cfg.Transformer)
}

func TestGCPModeDefaultsToVertexAndNeedsProject(t *testing.T) {
	t.Setenv("TONAL_MODE", "gcp")

	_, err := config.Load()
	require.ErrorContains(t, err, "TONAL_GCP_PROJECT")

	t.Setenv("TONAL_GCP_PROJECT", "my-project")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.TransformerVertex, cfg.Transformer)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := config.Config{
		Mode:             "cloud",
		Transformer:      "gpt",
		CacheBackend:     "disk",
		InFlightPolicy:   "maybe",
		TransformTimeout: 0,
		MaxHistory:       -1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"TONAL_MODE", "TONAL_TRANSFORMER", "TONAL_CACHE_BACKEND", "TONAL_INFLIGHT_POLICY", "TONAL_TRANSFORM_TIMEOUT", "TONAL_MAX_HISTORY"} {
		require.ErrorContains(t, err, want)
	}
}
