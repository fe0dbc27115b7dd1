package session

import (
	"context"
	"errors"

	"driver-client/internal/common/logger"
	"driver-client/internal/credentials"
	"driver-client/internal/domain/ride"
	"driver-client/internal/geosampler"
	"driver-client/internal/proximity"
	"driver-client/internal/socket"
)

// Run executes the dispatch loop until ctx is cancelled or SignOut is
// requested. GPS samples, socket events, lifecycle transitions and
// commands are all processed one at a time here.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.deps.Sampler.Stop()

	ctx = logger.WithNewRequestID(ctx)
	s.bootstrap(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-s.samples:
			if !ok {
				s.samples = nil
				continue
			}
			s.onSampleEvent(ctx, ev)

		case ev := <-s.deps.Conn.Events():
			s.onSocketEvent(ctx, ev)

		case lc := <-s.lifecycle:
			s.onLifecycle(ctx, lc)

		case cmd := <-s.cmds:
			if quit := s.onCommand(ctx, cmd); quit {
				return nil
			}
		}
	}
}

// bootstrap restores identity, connects, adopts any assigned ride and
// starts sampling. Each step is independent: a failed connect still
// leaves tracking running, with recovery on the next foreground
// transition.
func (s *Session) bootstrap(ctx context.Context) {
	log := s.deps.Log

	identity, err := s.deps.Creds.Identity()
	if err != nil {
		log.Error(ctx, "identity_unavailable", "No usable stored credentials", err, nil)
	}
	s.driverID = identity.DriverID

	profile, err := s.deps.Creds.Profile()
	if errors.Is(err, credentials.ErrNoProfile) {
		if profile, err = s.deps.Backend.Me(ctx); err == nil {
			if err := s.deps.Creds.SaveProfile(profile); err != nil {
				log.Error(ctx, "profile_persist_failed", "Failed to persist fetched profile", err, nil)
			}
		}
	}
	if err != nil {
		log.Error(ctx, "profile_unavailable", "Could not resolve driver profile", err, nil)
	}
	s.riderID = profile.ID

	if handle, err := s.deps.Conn.Get(ctx, socket.RoleDriver); err != nil {
		log.Error(ctx, "initial_connect_failed", "Socket unavailable at startup", err, nil)
	} else {
		s.handle = handle
	}

	if rides, err := s.deps.Backend.AssignedRides(ctx); err != nil {
		log.Error(ctx, "assigned_rides_failed", "Failed to fetch assigned rides", err, nil)
	} else if len(rides) > 0 {
		s.assigned = rides
		s.adoptRide(ctx, &rides[0])
	}

	samples, err := s.deps.Sampler.Start(ctx, geosampler.Config{
		HighAccuracy:         s.deps.Tracking.HighAccuracy,
		DistanceFilterMeters: s.deps.Tracking.DistanceFilterMeters,
		MinInterval:          s.deps.Tracking.MinInterval,
		MaxSampleAge:         s.deps.Tracking.MaxSampleAge,
	})
	if err != nil {
		log.Error(ctx, "sampler_start_failed", "Failed to start location sampling", err, nil)
		return
	}
	s.samples = samples
}

// adoptRide makes r the current ride. A new ride id clears the previous
// ride's visit state; the same id is a no-op.
func (s *Session) adoptRide(ctx context.Context, r *ride.Ride) {
	if s.current != nil && s.current.ID == r.ID {
		return
	}
	if s.current != nil {
		s.deps.Visits.Clear(ctx, s.current.ID)
	}

	adopted := *r
	adopted.Waypoints = append([]ride.Waypoint(nil), r.Waypoints...)
	if adopted.Status == ride.StatusAssigned {
		_ = adopted.Activate()
	}
	s.current = &adopted

	// reload persisted visits so an app restart mid-ride keeps progress
	s.deps.Visits.Load(ctx, adopted.ID)
	s.recompute()

	s.deps.Log.Info(logger.WithRideID(ctx, adopted.ID), "ride_adopted", "Tracking ride",
		map[string]any{"ride_id": adopted.ID, "waypoints": len(adopted.Waypoints)})
}

func (s *Session) onSampleEvent(ctx context.Context, ev geosampler.Event) {
	if ev.Err != nil {
		// already logged by the sampler; the stream continues
		return
	}
	s.lastSample = ev.Sample
	s.recompute()
	s.deps.Reporter.Report(ctx, s.handle, *ev.Sample, s.current, s.riderID)
}

func (s *Session) onSocketEvent(ctx context.Context, ev socket.Event) {
	switch ev.Kind {
	case socket.EventNewRide:
		s.upsertAssigned(*ev.Ride)
		s.adoptRide(ctx, ev.Ride)

	case socket.EventConnected:
		if handle, ok := s.deps.Conn.Handle(); ok {
			s.handle = handle
		}

	case socket.EventDisconnected:
		s.handle = nil

	case socket.EventConnectError:
		// reported by the manager; recovery comes from foreground
	}
}

func (s *Session) onLifecycle(ctx context.Context, ev LifecycleEvent) {
	switch ev {
	case LifecycleBackground:
		s.deps.Conn.ClearSocket()
		s.handle = nil
		s.deps.Log.Info(ctx, "app_backgrounded", "Socket released for background", nil)

	case LifecycleForeground:
		if s.deps.Conn.Connected() {
			return
		}
		handle, err := s.deps.Conn.Get(ctx, socket.RoleDriver)
		if err != nil {
			s.deps.Log.Error(ctx, "reconnect_failed", "Foreground reconnect failed", err, nil)
			return
		}
		s.handle = handle
	}
}

// recompute refreshes the proximity projection from the current inputs.
// Pure; runs on every accepted sample and every visit mutation.
func (s *Session) recompute() {
	if s.current == nil || s.lastSample == nil {
		s.prox = nil
		return
	}
	s.prox = proximity.Evaluate(
		*s.lastSample,
		s.current.Waypoints,
		s.deps.Visits.Get(s.current.ID),
		s.deps.Tracking.ProximityThresholdMeters,
	)
}

// upsertAssigned replaces or appends a ride in the assigned set.
func (s *Session) upsertAssigned(r ride.Ride) {
	for i := range s.assigned {
		if s.assigned[i].ID == r.ID {
			s.assigned[i] = r
			return
		}
	}
	s.assigned = append(s.assigned, r)
}

// removeAssigned drops a ride from the assigned set.
func (s *Session) removeAssigned(rideID string) {
	for i := range s.assigned {
		if s.assigned[i].ID == rideID {
			s.assigned = append(s.assigned[:i], s.assigned[i+1:]...)
			return
		}
	}
}

func (s *Session) onCommand(ctx context.Context, cmd command) (quit bool) {
	switch cmd.kind {
	case cmdSnapshot:
		cmd.reply <- cmdResult{snap: s.snapshot()}

	case cmdMarkVisited:
		record, err := s.markVisited(ctx, cmd.index)
		cmd.reply <- cmdResult{record: record, err: err}

	case cmdComplete:
		cmd.reply <- cmdResult{err: s.completeRide(ctx)}

	case cmdSignOut:
		s.signOut(ctx)
		cmd.reply <- cmdResult{}
		return true
	}
	return false
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Assigned:  append([]ride.Ride(nil), s.assigned...),
		Connected: s.deps.Conn.Connected(),
	}
	if s.current != nil {
		current := *s.current
		current.Waypoints = append([]ride.Waypoint(nil), s.current.Waypoints...)
		snap.Ride = &current
	}
	if s.lastSample != nil {
		sample := *s.lastSample
		snap.LastSample = &sample
	}
	if s.prox != nil {
		snap.Proximity = make(map[int]proximity.Status, len(s.prox))
		for idx, status := range s.prox {
			snap.Proximity[idx] = status
		}
	}
	return snap
}

func (s *Session) signOut(ctx context.Context) {
	s.deps.Sampler.Stop()
	s.deps.Conn.ClearSocket()
	s.handle = nil

	if err := s.deps.Creds.Clear(); err != nil {
		s.deps.Log.Error(ctx, "credentials_clear_failed", "Failed to clear stored credentials", err, nil)
	}
	if s.current != nil {
		s.deps.Visits.Clear(ctx, s.current.ID)
	}
	s.current = nil
	s.assigned = nil
	s.prox = nil
	s.deps.Log.Info(ctx, "signed_out", "Session ended by sign-out", nil)
}
