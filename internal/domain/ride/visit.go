package ride

import "errors"

// VisitRecord is the durable fact that the driver confirmed arrival at one
// waypoint of a ride. Created exactly once per (ride, waypoint); never
// mutated after creation.
type VisitRecord struct {
	RideID        string `json:"ride_id"`
	WaypointIndex int    `json:"waypoint_index"`
	VisitedAtMs   int64  `json:"visited_at_ms"`
}

var (
	ErrVisitRideIDRequired = errors.New("visit ride id is required")
	ErrVisitBadTimestamp   = errors.New("visit timestamp must be positive")
)

// NewVisitRecord constructs a validated VisitRecord.
func NewVisitRecord(rideID string, waypointIndex int, visitedAtMs int64) (VisitRecord, error) {
	record := VisitRecord{
		RideID:        rideID,
		WaypointIndex: waypointIndex,
		VisitedAtMs:   visitedAtMs,
	}
	if err := record.Validate(); err != nil {
		return VisitRecord{}, err
	}
	return record, nil
}

// Validate checks invariants of the VisitRecord.
func (record VisitRecord) Validate() error {
	if record.RideID == "" {
		return ErrVisitRideIDRequired
	}
	if record.WaypointIndex < 0 {
		return ErrNegativeWaypointIndex
	}
	if record.VisitedAtMs <= 0 {
		return ErrVisitBadTimestamp
	}
	return nil
}
