package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/config"
	"github.com/example/wavemeet/internal/testfixtures"
)

func testConfig() config.Config {
	return config.Config{
		HTTPPort:             8080,
		JWTSecret:            "main-test-secret",
		PresenceTTL:          2 * time.Hour,
		WaveTTL:              8 * time.Hour,
		WaveDefaultThreshold: 3,
		NearbyRadiusKm:       5,
		NearbyLimit:          20,
		ProfileCacheTTL:      time.Minute,
		ProfileCacheSize:     8,
	}
}

func TestBuildAppServesHealthAndProtectedRoutes(t *testing.T) {
	cfg := testConfig()
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator(t.Name())
	storage := testfixtures.NewSQLiteStorage(t)

	app := buildApp(cfg, storage, clock.NowFunc(), ids.NextFunc(), testfixtures.DiscardLogger())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/chats", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/chats", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
