// Package reporter forwards accepted location samples to the backend over
// the socket, falling back to a durable latest-wins "last known location"
// slot while disconnected. Only the most recent unsent sample is kept:
// stale position data has no value once superseded.
package reporter

import (
	"context"
	"errors"

	"driver-client/internal/common/logger"
	"driver-client/internal/domain/geo"
	"driver-client/internal/domain/ride"
	"driver-client/internal/socket"
	"driver-client/internal/storage"
)

// Update is the driver-location payload, in the backend's wire format.
type Update struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	RiderID   string  `json:"riderId"`
	RideID    string  `json:"rideId"`
	UserID    string  `json:"userId"`
	Timestamp int64   `json:"timestamp"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Speed     float64 `json:"speed"`
}

// Reporter emits location updates and owns the last-known-location slot.
type Reporter struct {
	db  *storage.Store
	log *logger.Logger
}

// New returns a Reporter over the durable storage.
func New(db *storage.Store, log *logger.Logger) *Reporter {
	return &Reporter{db: db, log: log}
}

// Report handles one accepted sample. With an active ride and a live
// handle it emits driver-location; otherwise it overwrites the persisted
// last known location. Failures are logged, never propagated: the next
// sample supersedes this one anyway.
func (r *Reporter) Report(ctx context.Context, handle *socket.Handle, sample geo.LocationSample, current *ride.Ride, riderID string) {
	update := Update{
		Lat:       sample.Lat,
		Lng:       sample.Lng,
		RiderID:   riderID,
		Timestamp: sample.TimestampMs,
		Accuracy:  sample.AccuracyMeters,
		Speed:     sample.SpeedMPS,
	}
	if current != nil {
		update.RideID = current.ID
		update.UserID = current.UserID
	}

	if current != nil && handle != nil && handle.Live() {
		if err := handle.Emit(socket.WireDriverLocation, update); err == nil {
			return
		} else if !errors.Is(err, socket.ErrNotConnected) {
			r.log.Error(ctx, "location_emit_failed", "Failed to emit driver-location", err,
				map[string]any{"ride_id": update.RideID})
		}
	}

	r.storeLastKnown(ctx, update)
}

// LastKnown returns the persisted last known location, if any.
func (r *Reporter) LastKnown() (Update, bool) {
	var update Update
	if err := r.db.Get(storage.KeyLastLocation, &update); err != nil {
		return Update{}, false
	}
	return update, true
}

// storeLastKnown overwrites the slot; latest wins.
func (r *Reporter) storeLastKnown(ctx context.Context, update Update) {
	if err := r.db.Put(storage.KeyLastLocation, update); err != nil {
		r.log.Error(ctx, "last_location_persist_failed", "Failed to persist last known location", err, nil)
	}
}
