// Package geosampler turns the device location provider into a lazy,
// restartable stream of filtered location samples.
package geosampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"driver-client/internal/common/logger"
	"driver-client/internal/domain/geo"
)

// Event is one item of the sample stream: either a sample or an in-band
// provider error. Errors do not terminate the stream.
type Event struct {
	Sample *geo.LocationSample
	Err    error
}

// Config controls filtering of the raw fix stream.
type Config struct {
	HighAccuracy bool
	// DistanceFilterMeters drops fixes closer than this to the last
	// emitted sample, unless MinInterval has elapsed since it.
	DistanceFilterMeters float64
	// MinInterval is the minimum time between emitted samples; a fix that
	// moved at least DistanceFilterMeters is emitted regardless.
	MinInterval time.Duration
	// MaxSampleAge drops fixes whose timestamp is older than this.
	MaxSampleAge time.Duration
}

var ErrNilProvider = errors.New("geosampler: provider is required")

// Sampler owns at most one provider subscription per process. Starting a
// second stream implicitly stops the first, so listeners never leak.
type Sampler struct {
	provider Provider
	log      *logger.Logger

	mu     sync.Mutex
	active *stream
}

type stream struct {
	sub  Subscription
	out  chan Event
	stop chan struct{}
	done chan struct{}
}

// New returns a Sampler over the given provider.
func New(provider Provider, log *logger.Logger) (*Sampler, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	return &Sampler{provider: provider, log: log}, nil
}

// Start subscribes to the provider and returns the filtered event stream.
// The returned channel is closed on Stop. If a stream is already active it
// is stopped first.
func (s *Sampler) Start(ctx context.Context, cfg Config) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.stopLocked()
	}

	sub, err := s.provider.Subscribe(Options{HighAccuracy: cfg.HighAccuracy})
	if err != nil {
		return nil, err
	}

	st := &stream{
		sub:  sub,
		out:  make(chan Event, 16),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.active = st

	go s.pump(logger.WithNewRequestID(context.WithoutCancel(ctx)), st, cfg)
	return st.out, nil
}

// Stop cancels the active subscription and closes its stream. Safe to call
// when nothing is active.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sampler) stopLocked() {
	if s.active == nil {
		return
	}
	close(s.active.stop)
	s.active.sub.Unsubscribe()
	<-s.active.done
	s.active = nil
}

// pump filters raw fixes into the outbound stream.
func (s *Sampler) pump(ctx context.Context, st *stream, cfg Config) {
	defer close(st.done)
	defer close(st.out)

	var last *geo.LocationSample
	for {
		select {
		case <-st.stop:
			return

		case fix, ok := <-st.sub.Fixes():
			if !ok {
				return
			}
			sample, reason := s.accept(fix, last, cfg)
			if sample == nil {
				s.log.Debug(ctx, "sample_filtered", "Dropped provider fix", map[string]any{
					"reason": reason, "lat": fix.Lat, "lng": fix.Lng, "timestamp_ms": fix.TimestampMs,
				})
				continue
			}
			last = sample
			select {
			case st.out <- Event{Sample: sample}:
			case <-st.stop:
				return
			}

		case err, ok := <-st.sub.Errors():
			if !ok {
				return
			}
			s.log.Error(ctx, "provider_error", "Location provider reported an error", err, nil)
			select {
			case st.out <- Event{Err: err}:
			case <-st.stop:
				return
			}
		}
	}
}

// accept applies validation, freshness and the distance/interval filters.
// It returns the sample to emit, or nil with a drop reason.
func (s *Sampler) accept(fix geo.LocationSample, last *geo.LocationSample, cfg Config) (*geo.LocationSample, string) {
	if err := fix.Validate(); err != nil {
		return nil, "invalid: " + err.Error()
	}
	if cfg.MaxSampleAge > 0 && fix.Age(time.Now()) > cfg.MaxSampleAge {
		return nil, "stale"
	}
	if last != nil {
		moved := geo.DistanceMeters(last.Coordinate, fix.Coordinate)
		elapsed := time.Duration(fix.TimestampMs-last.TimestampMs) * time.Millisecond
		if moved < cfg.DistanceFilterMeters && elapsed < cfg.MinInterval {
			return nil, "filtered"
		}
	}
	out := fix
	return &out, ""
}
