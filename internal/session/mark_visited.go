package session

import (
	"context"
	"time"

	"driver-client/internal/common/logger"
	"driver-client/internal/domain/ride"
)

// markVisited guards and records a waypoint visit. Runs on the dispatch
// goroutine. The visit is locally authoritative: the backend mirror is
// detached and its failure only logged.
func (s *Session) markVisited(ctx context.Context, index int) (ride.VisitRecord, error) {
	if s.current == nil {
		return ride.VisitRecord{}, ErrNoActiveRide
	}
	ctx = logger.WithRideID(ctx, s.current.ID)

	if _, ok := s.current.Waypoint(index); !ok {
		return ride.VisitRecord{}, ErrUnknownWaypoint
	}

	// idempotent re-mark: return the original record regardless of the
	// driver's current position
	visits := s.deps.Visits.Get(s.current.ID)
	if existing, ok := visits[index]; ok {
		return existing, nil
	}

	if s.lastSample == nil {
		return ride.VisitRecord{}, ErrNoLocationFix
	}
	status, ok := s.prox[index]
	if !ok || !status.IsNearby {
		s.deps.Log.Info(ctx, "visit_rejected", "Mark-visited rejected: driver not within threshold",
			map[string]any{"waypoint_index": index, "distance_meters": status.DistanceMeters})
		return ride.VisitRecord{}, ErrNotNearby
	}

	record, created, err := s.deps.Visits.MarkVisited(ctx, s.current.ID, index, time.Now().UnixMilli())
	if err != nil {
		return ride.VisitRecord{}, err
	}
	s.recompute()

	if created {
		s.deps.Log.Info(ctx, "visit_marked", "Waypoint marked visited",
			map[string]any{"waypoint_index": index, "visited_at_ms": record.VisitedAtMs})
		s.mirrorVisit(ctx, record)
	}
	return record, nil
}

// mirrorVisit reports the visit to the backend on a detached context so
// the caller's cancellation never strands the mirror mid-flight.
func (s *Session) mirrorVisit(ctx context.Context, record ride.VisitRecord) {
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	go func() {
		defer cancel()
		err := s.deps.Backend.MirrorVisit(mirrorCtx, record.RideID, record.WaypointIndex, record.VisitedAtMs)
		if err != nil {
			s.deps.Log.Error(mirrorCtx, "visit_mirror_failed", "Failed to mirror visit to backend", err,
				map[string]any{"waypoint_index": record.WaypointIndex})
			return
		}
		s.deps.Log.Info(mirrorCtx, "visit_mirrored", "Visit mirrored to backend",
			map[string]any{"waypoint_index": record.WaypointIndex})
	}()
}
