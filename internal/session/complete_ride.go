package session

import (
	"context"

	"driver-client/internal/common/logger"
	"driver-client/internal/socket"
)

// completeRide finishes the active ride: announce over the socket, mirror
// over HTTP, then clear session state. Both announcements are best-effort;
// the local transition to COMPLETED is what counts and is terminal.
func (s *Session) completeRide(ctx context.Context) error {
	if s.current == nil {
		return ErrNoActiveRide
	}
	ctx = logger.WithRideID(ctx, s.current.ID)

	if err := s.current.Complete(); err != nil {
		return err
	}

	if s.handle != nil {
		payload := map[string]string{"rideId": s.current.ID, "userId": s.current.UserID}
		if err := s.handle.Emit(socket.WireRideComplete, payload); err != nil {
			s.deps.Log.Error(ctx, "ride_complete_emit_failed", "Failed to emit ride-complete", err, nil)
		}
	}

	s.mirrorCompletion(ctx, s.current.ID)

	s.deps.Visits.Clear(ctx, s.current.ID)
	s.removeAssigned(s.current.ID)
	s.deps.Log.Info(ctx, "ride_completed", "Ride completed",
		map[string]any{"remaining_assigned": len(s.assigned)})

	s.current = nil
	s.prox = nil
	return nil
}

// mirrorCompletion updates the ride status on the backend, detached from
// the caller's context.
func (s *Session) mirrorCompletion(ctx context.Context, rideID string) {
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	go func() {
		defer cancel()
		if err := s.deps.Backend.CompleteRide(mirrorCtx, rideID); err != nil {
			s.deps.Log.Error(mirrorCtx, "ride_complete_mirror_failed",
				"Failed to report completion to backend", err, map[string]any{"ride_id": rideID})
		}
	}()
}
