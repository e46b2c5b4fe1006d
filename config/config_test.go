package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		val, ok := vars[key]
		return val, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 200, cfg.NVD.PageSize)
	assert.Equal(t, 6*time.Hour, time.Duration(cfg.Sync.IncrementalInterval))
	assert.Equal(t, 24*time.Hour, time.Duration(cfg.Sync.FullInterval))
	assert.Equal(t, "arango", cfg.Store.Backend)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	cfg, err := LoadWith(env(map[string]string{
		"MS_PORT":                   "8080",
		"NVD_PAGE_SIZE":             "50",
		"NVD_TIMEOUT":               "15s",
		"SYNC_INCREMENTAL_INTERVAL": "30m",
		"SYNC_FULL_INTERVAL":        "12h",
		"SYNC_ON_STARTUP":           "true",
		"CVE_STORE":                 "memory",
		"ARANGO_HOST":               "arangodb",
		"KAFKA_BROKERS":             "kafka-1:9092, kafka-2:9092,",
		"LOG_LEVEL":                 "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.NVD.PageSize)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.NVD.Timeout))
	assert.Equal(t, 30*time.Minute, time.Duration(cfg.Sync.IncrementalInterval))
	assert.Equal(t, 12*time.Hour, time.Duration(cfg.Sync.FullInterval))
	assert.True(t, cfg.Sync.OnStartup)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "http://arangodb:8529", cfg.Store.URL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
nvd:
  page_size: 100
sync:
  incremental_interval: 2h
  full_interval: 48h
store:
  backend: memory
`), 0o600))

	cfg, err := LoadWith(env(map[string]string{
		"CVESYNC_CONFIG":     path,
		"SYNC_FULL_INTERVAL": "36h",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 100, cfg.NVD.PageSize)
	assert.Equal(t, 2*time.Hour, time.Duration(cfg.Sync.IncrementalInterval))
	assert.Equal(t, 36*time.Hour, time.Duration(cfg.Sync.FullInterval))
	assert.Equal(t, "memory", cfg.Store.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, "cve-sync-events", cfg.Kafka.EventsTopic)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want error
	}{
		{"zero incremental interval", map[string]string{"SYNC_INCREMENTAL_INTERVAL": "0s"}, ErrInvalidIncrementalInterval},
		{"negative full interval", map[string]string{"SYNC_FULL_INTERVAL": "-1h"}, ErrInvalidFullInterval},
		{"page size too large", map[string]string{"NVD_PAGE_SIZE": "500"}, ErrInvalidPageSize},
		{"page size zero", map[string]string{"NVD_PAGE_SIZE": "0"}, ErrInvalidPageSize},
		{"unknown store", map[string]string{"CVE_STORE": "mongo"}, ErrInvalidStore},
		{"empty port", map[string]string{"MS_PORT": ""}, ErrMissingPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWith(env(tt.vars))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	_, err := LoadWith(env(map[string]string{"SYNC_FULL_INTERVAL": "daily"}))
	assert.Error(t, err)

	_, err = LoadWith(env(map[string]string{"NVD_PAGE_SIZE": "many"}))
	assert.Error(t, err)

	_, err = LoadWith(env(map[string]string{"CVESYNC_CONFIG": filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, err)
}
