package tracker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"driver-client/internal/backend"
	"driver-client/internal/common/config"
	"driver-client/internal/common/logger"
	"driver-client/internal/credentials"
	"driver-client/internal/geosampler"
	"driver-client/internal/reporter"
	"driver-client/internal/session"
	"driver-client/internal/socket"
	"driver-client/internal/storage"
	"driver-client/internal/visitstore"
)

// Options configure a tracker run.
type Options struct {
	// ConfigPath locates the YAML config; missing file means defaults.
	ConfigPath string
	// SamplesPath is an NDJSON location-fix file replayed as the GPS
	// provider; "-" reads stdin.
	SamplesPath string
	// ReplayInterval paces the replayed fixes.
	ReplayInterval time.Duration
}

// Run wires the tracking core and drives it until ctx is cancelled or the
// session signs out.
func Run(ctx context.Context, opts Options) error {
	log := logger.New("driver-tracker")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err,
			map[string]any{"path": opts.ConfigPath})
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		log.Error(ctx, "storage_open_failed", "Failed to open local storage", err,
			map[string]any{"dir": cfg.Storage.DataDir})
		return err
	}

	creds := credentials.NewStore(store)

	conn := socket.NewManager(ctx, cfg.Server.SocketURL, socket.NewDialer(), creds, log)
	defer conn.Close()

	fixes, closeFixes, err := openSamples(opts.SamplesPath)
	if err != nil {
		log.Error(ctx, "samples_open_failed", "Failed to open location fix source", err,
			map[string]any{"path": opts.SamplesPath})
		return err
	}
	defer closeFixes()

	provider := geosampler.NewReplayProvider(fixes)
	provider.Interval = opts.ReplayInterval

	sampler, err := geosampler.New(provider, log)
	if err != nil {
		return err
	}

	sess := session.New(session.Deps{
		Log:      log,
		Tracking: cfg.Tracking,
		Conn:     conn,
		Sampler:  sampler,
		Visits:   visitstore.New(store, log),
		Reporter: reporter.New(store, log),
		Backend: backend.New(cfg.Server.APIBaseURL, creds, log,
			backend.WithMirrorRetries(cfg.Tracking.MirrorRetries)),
		Creds: creds,
	})

	log.Info(ctx, "tracker_started", "Driver tracking core started", map[string]any{
		"socket_url": cfg.Server.SocketURL,
		"api_url":    cfg.Server.APIBaseURL,
		"threshold":  cfg.Tracking.ProximityThresholdMeters,
	})

	if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error(ctx, "session_failed", "Session loop terminated with error", err, nil)
		return err
	}
	return nil
}

// openSamples resolves the fix source. Stdin is never closed.
func openSamples(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open samples: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
