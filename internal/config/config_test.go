package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultSync().Validate())

	srv := DefaultServer()
	assert.Error(t, srv.Validate(), "secret has no default")
	srv.JWTSecret = "0123456789abcdef"
	require.NoError(t, srv.Validate())
}

func TestSync_Validate(t *testing.T) {
	tests := []struct {
		mutate func(*Sync)
		name   string
	}{
		{name: "relative server url", mutate: func(s *Sync) { s.ServerURL = "localhost:8080" }},
		{name: "empty db path", mutate: func(s *Sync) { s.DBPath = "" }},
		{name: "zero page size", mutate: func(s *Sync) { s.PageSize = 0 }},
		{name: "zero gate attempts", mutate: func(s *Sync) { s.Gate.MaxAttempts = 0 }},
		{name: "zero gate window", mutate: func(s *Sync) { s.Gate.Window = 0 }},
		{name: "stale exceeds ttl", mutate: func(s *Sync) { s.CacheStale = time.Minute; s.CacheTTL = time.Second }},
		{name: "negative debounce", mutate: func(s *Sync) { s.Debounce = -time.Second }},
		{name: "unknown log level", mutate: func(s *Sync) { s.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSync()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSync_ApplyEnv(t *testing.T) {
	cfg := DefaultSync()
	err := cfg.ApplyEnv(env(map[string]string{
		"CAMPUS_SERVER_URL":        "https://campus.example",
		"CAMPUS_PAGE_SIZE":         "50",
		"CAMPUS_GATE_WINDOW":       "3s",
		"CAMPUS_GATE_MAX_ATTEMPTS": "2",
		"CAMPUS_DB":                "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://campus.example", cfg.ServerURL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Gate.Window)
	assert.Equal(t, 2, cfg.Gate.MaxAttempts)
	assert.Equal(t, DefaultSync().DBPath, cfg.DBPath, "empty value keeps the default")
}

func TestSync_ApplyEnvErrors(t *testing.T) {
	cfg := DefaultSync()
	err := cfg.ApplyEnv(env(map[string]string{
		"CAMPUS_PAGE_SIZE": "many",
		"CAMPUS_CACHE_TTL": "forever",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPUS_PAGE_SIZE")
	assert.Contains(t, err.Error(), "CAMPUS_CACHE_TTL")
	assert.Equal(t, 20, cfg.PageSize)
}

func TestServer_ApplyEnv(t *testing.T) {
	cfg := DefaultServer()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{
		"CAMPUS_ADDR":       ":9090",
		"CAMPUS_JWT_SECRET": "super-secret-key-1",
		"CAMPUS_RATE_LIMIT": "10",

		"CAMPUS_SESSION_RATE_LIMIT": "3",
	})))

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "super-secret-key-1", cfg.JWTSecret)
	assert.Equal(t, 10, cfg.RateLimit.MaxAttempts)
	assert.Equal(t, 3, cfg.SessionRateLimit.MaxAttempts)
	require.NoError(t, cfg.Validate())

	cfg.SessionRateLimit.Window = 0
	assert.ErrorContains(t, cfg.Validate(), "session rate limit")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_NonTerminalWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "entity_id", "p1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "p1", rec["entity_id"])
}
