package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadBindsUnderscoreKeys(t *testing.T) {
	writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
  write_timeout: 7s
whatsapp:
  base_url: https://graph.example.com
  api_version: v19.0
  phone_number_id: "109876543210"
  timeout: 20s
payment:
  link_expiry: 3m
  poll_interval: 30s
redis:
  url: redis://localhost:6379/1
  pool_size: 4
  min_idle_conns: 1
rate_limit:
  requests_per_second: 2.5
  burst: 5
`)

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "https://graph.example.com", cfg.WhatsApp.BaseURL)
	assert.Equal(t, "v19.0", cfg.WhatsApp.APIVersion)
	assert.Equal(t, "109876543210", cfg.WhatsApp.PhoneNumberID)
	assert.Equal(t, 20*time.Second, cfg.WhatsApp.Timeout)
	assert.Equal(t, 3*time.Minute, cfg.Payment.LinkExpiry)
	assert.Equal(t, 30*time.Second, cfg.Payment.PollInterval)
	assert.Equal(t, 4, cfg.Redis.PoolSize)
	assert.Equal(t, 1, cfg.Redis.MinIdleConns)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadAppliesDefaults(t *testing.T) {
	writeConfig(t, "database:\n  host: localhost\n")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 10*time.Minute, cfg.Payment.LinkExpiry)
	assert.Equal(t, time.Minute, cfg.Payment.PollInterval)
	assert.Equal(t, "bookingbot", cfg.Metrics.Namespace)
}
