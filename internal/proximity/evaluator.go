// Package proximity computes the per-waypoint nearby/visited projection.
// Evaluate is a pure function: it is re-run on every accepted sample and
// every visit mutation, and never mutates its inputs.
package proximity

import (
	"driver-client/internal/domain/geo"
	"driver-client/internal/domain/ride"
)

// Status is the ephemeral proximity snapshot for one waypoint.
type Status struct {
	WaypointIndex  int     `json:"waypoint_index"`
	DistanceMeters float64 `json:"distance_meters"`
	IsNearby       bool    `json:"is_nearby"`
	Visited        bool    `json:"visited"`
	VisitedAtMs    *int64  `json:"visited_at_ms,omitempty"`
}

// Evaluate computes the status of every waypoint independently.
// A waypoint is nearby when its distance is within thresholdMeters
// (inclusive). Visited reflects only the visit set: once a waypoint is
// visited it stays visited regardless of current position.
func Evaluate(current geo.LocationSample, waypoints []ride.Waypoint, visits map[int]ride.VisitRecord, thresholdMeters float64) map[int]Status {
	statuses := make(map[int]Status, len(waypoints))
	for _, wp := range waypoints {
		distance := geo.DistanceMeters(current.Coordinate, wp.Coordinate)
		status := Status{
			WaypointIndex:  wp.Index,
			DistanceMeters: distance,
			IsNearby:       distance <= thresholdMeters,
		}
		if record, ok := visits[wp.Index]; ok {
			status.Visited = true
			visitedAt := record.VisitedAtMs
			status.VisitedAtMs = &visitedAt
		}
		statuses[wp.Index] = status
	}
	return statuses
}
