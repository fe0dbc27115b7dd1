package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  socket_url: ws://staging:8001/socket
tracking:
  distance_filter_meters: 25
  min_interval: 2s
  proximity_threshold_meters: 75
storage:
  data_dir: /var/lib/driver
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://staging:8001/socket", cfg.Server.SocketURL)
	// untouched fields keep their defaults
	assert.Equal(t, "http://localhost:8000", cfg.Server.APIBaseURL)
	assert.Equal(t, 25.0, cfg.Tracking.DistanceFilterMeters)
	assert.Equal(t, 2*time.Second, cfg.Tracking.MinInterval)
	assert.Equal(t, 10*time.Second, cfg.Tracking.MaxSampleAge)
	assert.Equal(t, 75.0, cfg.Tracking.ProximityThresholdMeters)
	assert.Equal(t, "/var/lib/driver", cfg.Storage.DataDir)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  socket_url: ws://file:8001\n"), 0o600))

	t.Setenv("DRIVER_SOCKET_URL", "ws://env:8001/socket")
	t.Setenv("DRIVER_API_URL", "http://env:8000")
	t.Setenv("DRIVER_DATA_DIR", "/tmp/env-data")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://env:8001/socket", cfg.Server.SocketURL)
	assert.Equal(t, "http://env:8000", cfg.Server.APIBaseURL)
	assert.Equal(t, "/tmp/env-data", cfg.Storage.DataDir)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults valid", func(c *Config) {}, nil},
		{"missing socket url", func(c *Config) { c.Server.SocketURL = "" }, ErrMissingSocketURL},
		{"missing api url", func(c *Config) { c.Server.APIBaseURL = "" }, ErrMissingAPIBaseURL},
		{"negative distance filter", func(c *Config) { c.Tracking.DistanceFilterMeters = -1 }, ErrBadDistanceFilter},
		{"zero threshold", func(c *Config) { c.Tracking.ProximityThresholdMeters = 0 }, ErrBadThreshold},
		{"negative min interval", func(c *Config) { c.Tracking.MinInterval = -time.Second }, ErrBadMinInterval},
		{"zero max age", func(c *Config) { c.Tracking.MaxSampleAge = 0 }, ErrBadMaxSampleAge},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, ErrMissingDataDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Equal(t, tt.wantErr, cfg.Validate())
		})
	}
}

func TestZeroDistanceFilterAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracking.DistanceFilterMeters = 0
	cfg.Tracking.MinInterval = 0
	assert.NoError(t, cfg.Validate())
}
