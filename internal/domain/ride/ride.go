package ride

import (
	"errors"
	"strings"
)

// Ride is a ride as pushed by the backend over the socket. The JSON tags
// mirror the server's wire format.
type Ride struct {
	ID        string     `json:"_id"`
	UserID    string     `json:"user"`
	DriverID  string     `json:"driver,omitempty"`
	Waypoints []Waypoint `json:"waypoints"`
	Fare      float64    `json:"fare,omitempty"`
	Status    Status     `json:"status"`
}

var (
	ErrRideIDRequired          = errors.New("ride id is required")
	ErrUserIDRequired          = errors.New("user id is required")
	ErrNoWaypoints             = errors.New("ride must have at least one waypoint")
	ErrWaypointOrder           = errors.New("waypoint indexes must be contiguous from 0")
	ErrInvalidStatusTransition = errors.New("invalid ride status transition")
)

// Validate checks invariants of a ride received from the backend.
func (ride *Ride) Validate() error {
	if strings.TrimSpace(ride.ID) == "" {
		return ErrRideIDRequired
	}
	if strings.TrimSpace(ride.UserID) == "" {
		return ErrUserIDRequired
	}
	if !ride.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(ride.Waypoints) == 0 {
		return ErrNoWaypoints
	}
	for i, wp := range ride.Waypoints {
		if err := wp.Validate(); err != nil {
			return err
		}
		if wp.Index != i {
			return ErrWaypointOrder
		}
	}
	return nil
}

// Activate transitions ASSIGNED -> ACTIVE.
func (ride *Ride) Activate() error {
	if ride.Status != StatusAssigned {
		return ErrInvalidStatusTransition
	}
	ride.Status = StatusActive
	return nil
}

// Complete transitions ACTIVE -> COMPLETED. Terminal.
func (ride *Ride) Complete() error {
	if ride.Status != StatusActive {
		return ErrInvalidStatusTransition
	}
	ride.Status = StatusCompleted
	return nil
}

// Waypoint returns the waypoint at index, or false when out of range.
func (ride *Ride) Waypoint(index int) (Waypoint, bool) {
	if index < 0 || index >= len(ride.Waypoints) {
		return Waypoint{}, false
	}
	return ride.Waypoints[index], true
}
