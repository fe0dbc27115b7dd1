// Package config loads the tracker configuration from YAML with
// environment overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete tracker configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tracking TrackingConfig `yaml:"tracking"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig points the client at its backend.
type ServerConfig struct {
	// SocketURL is the persistent socket endpoint (ws:// or wss://).
	SocketURL string `yaml:"socket_url"`
	// APIBaseURL is the base URL for the HTTP collaborator endpoints.
	APIBaseURL string `yaml:"api_base_url"`
}

// TrackingConfig holds the sampling and proximity knobs. The defaults are
// the background tracker's production values; all of them are overridable
// so ops can tune without a client release.
type TrackingConfig struct {
	// HighAccuracy requests the provider's high-accuracy mode.
	HighAccuracy bool `yaml:"high_accuracy"`
	// DistanceFilterMeters suppresses samples closer than this to the last
	// emitted one, unless MinInterval has elapsed.
	DistanceFilterMeters float64 `yaml:"distance_filter_meters"`
	// MinInterval is the minimum time between emitted samples.
	MinInterval time.Duration `yaml:"min_interval"`
	// MaxSampleAge rejects provider fixes older than this.
	MaxSampleAge time.Duration `yaml:"max_sample_age"`
	// ProximityThresholdMeters is the distance at which a driver counts as
	// "at" a waypoint (inclusive).
	ProximityThresholdMeters float64 `yaml:"proximity_threshold_meters"`
	// MirrorRetries bounds retry attempts when mirroring a visit to the
	// backend (0 disables retry).
	MirrorRetries uint64 `yaml:"mirror_retries"`
}

// StorageConfig locates the device-local durable store.
type StorageConfig struct {
	// DataDir is the directory holding the JSON state slots.
	DataDir string `yaml:"data_dir"`
}

var (
	ErrMissingSocketURL   = errors.New("server.socket_url is required")
	ErrMissingAPIBaseURL  = errors.New("server.api_base_url is required")
	ErrBadDistanceFilter  = errors.New("tracking.distance_filter_meters cannot be negative")
	ErrBadThreshold       = errors.New("tracking.proximity_threshold_meters must be positive")
	ErrBadMinInterval     = errors.New("tracking.min_interval cannot be negative")
	ErrBadMaxSampleAge    = errors.New("tracking.max_sample_age must be positive")
	ErrMissingDataDir     = errors.New("storage.data_dir is required")
)

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			SocketURL:  "ws://localhost:8001/socket",
			APIBaseURL: "http://localhost:8000",
		},
		Tracking: TrackingConfig{
			HighAccuracy:             true,
			DistanceFilterMeters:     10,
			MinInterval:              5 * time.Second,
			MaxSampleAge:             10 * time.Second,
			ProximityThresholdMeters: 50,
			MirrorRetries:            3,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
	}
}

// Load reads a YAML config file, fills defaults, applies environment
// overrides and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// optional .env bootstrap; absence is not an error
	_ = godotenv.Load(".env")

	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides maps environment variables over the loaded values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DRIVER_SOCKET_URL"); v != "" {
		cfg.Server.SocketURL = v
	}
	if v := os.Getenv("DRIVER_API_URL"); v != "" {
		cfg.Server.APIBaseURL = v
	}
	if v := os.Getenv("DRIVER_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
}

// Validate checks required fields and value ranges.
func (cfg *Config) Validate() error {
	if cfg.Server.SocketURL == "" {
		return ErrMissingSocketURL
	}
	if cfg.Server.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if cfg.Tracking.DistanceFilterMeters < 0 {
		return ErrBadDistanceFilter
	}
	if cfg.Tracking.ProximityThresholdMeters <= 0 {
		return ErrBadThreshold
	}
	if cfg.Tracking.MinInterval < 0 {
		return ErrBadMinInterval
	}
	if cfg.Tracking.MaxSampleAge <= 0 {
		return ErrBadMaxSampleAge
	}
	if cfg.Storage.DataDir == "" {
		return ErrMissingDataDir
	}
	return nil
}
