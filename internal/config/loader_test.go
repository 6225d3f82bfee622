package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"WAVEMEET_CONFIG_FILE",
	"WAVEMEET_HTTP_PORT",
	"WAVEMEET_SQLITE_DSN",
	"WAVEMEET_JWT_SECRET",
	"WAVEMEET_LOG_LEVEL",
	"WAVEMEET_PRESENCE_TTL",
	"WAVEMEET_WAVE_TTL",
	"WAVEMEET_WAVE_DEFAULT_THRESHOLD",
	"WAVEMEET_NEARBY_RADIUS_KM",
	"WAVEMEET_NEARBY_LIMIT",
	"WAVEMEET_INCLUDE_CREATOR_IN_CHAT",
	"WAVEMEET_PROFILE_CACHE_TTL",
	"WAVEMEET_PROFILE_CACHE_SIZE",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVEMEET_JWT_SECRET", "super-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "data/wavemeet.db", cfg.SQLitePath)
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.PresenceTTL)
	assert.Equal(t, 8*time.Hour, cfg.WaveTTL)
	assert.Equal(t, 3, cfg.WaveDefaultThreshold)
	assert.InDelta(t, 5.0, cfg.NearbyRadiusKm, 1e-9)
	assert.Equal(t, 20, cfg.NearbyLimit)
	assert.False(t, cfg.IncludeCreatorInChat)
	assert.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, 1024, cfg.ProfileCacheSize)
}

func TestLoadReadsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVEMEET_JWT_SECRET", "s")
	t.Setenv("WAVEMEET_HTTP_PORT", "9090")
	t.Setenv("WAVEMEET_LOG_LEVEL", "debug")
	t.Setenv("WAVEMEET_WAVE_TTL", "90m")
	t.Setenv("WAVEMEET_WAVE_DEFAULT_THRESHOLD", "4")
	t.Setenv("WAVEMEET_NEARBY_RADIUS_KM", "2.5")
	t.Setenv("WAVEMEET_INCLUDE_CREATOR_IN_CHAT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 90*time.Minute, cfg.WaveTTL)
	assert.Equal(t, 4, cfg.WaveDefaultThreshold)
	assert.InDelta(t, 2.5, cfg.NearbyRadiusKm, 1e-9)
	assert.True(t, cfg.IncludeCreatorInChat)
}

func TestLoadReportsMissingSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVEMEET_HTTP_PORT", "nope")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "required environment variables are not set: WAVEMEET_JWT_SECRET", err.Error())
}

func TestLoadAggregatesInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVEMEET_JWT_SECRET", "s")
	t.Setenv("WAVEMEET_HTTP_PORT", "0")
	t.Setenv("WAVEMEET_WAVE_TTL", "25h")
	t.Setenv("WAVEMEET_WAVE_DEFAULT_THRESHOLD", "1")
	t.Setenv("WAVEMEET_NEARBY_RADIUS_KM", "51")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t,
		"invalid environment variable values: WAVEMEET_HTTP_PORT, WAVEMEET_NEARBY_RADIUS_KM, WAVEMEET_WAVE_DEFAULT_THRESHOLD, WAVEMEET_WAVE_TTL",
		err.Error(),
	)
}

func TestLoadReadsConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wavemeet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: from-file\nnearby_limit: 7\nhttp_port: 7000\n"), 0o600))
	t.Setenv("WAVEMEET_CONFIG_FILE", path)
	t.Setenv("WAVEMEET_HTTP_PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 7, cfg.NearbyLimit)
	assert.Equal(t, 7001, cfg.HTTPPort, "environment wins over the file")
}
