package ride

import (
	"errors"
	"strings"

	"driver-client/internal/domain/geo"
)

// WaypointLabel classifies a stop within the ride itinerary.
type WaypointLabel string

const (
	LabelPickup      WaypointLabel = "PICKUP"
	LabelStop        WaypointLabel = "STOP"
	LabelDestination WaypointLabel = "DESTINATION"
)

var ErrInvalidWaypointLabel = errors.New("invalid waypoint label")

// ParseWaypointLabel normalizes and validates a label string.
func ParseWaypointLabel(input string) (WaypointLabel, error) {
	label := WaypointLabel(strings.ToUpper(strings.TrimSpace(input)))
	if label.Valid() {
		return label, nil
	}
	return "", ErrInvalidWaypointLabel
}

// Valid reports whether label is one of the allowed constants.
func (label WaypointLabel) Valid() bool {
	switch label {
	case LabelPickup, LabelStop, LabelDestination:
		return true
	default:
		return false
	}
}

// String returns the string representation of the WaypointLabel.
func (label WaypointLabel) String() string {
	return string(label)
}

// Waypoint is one stop in a ride's ordered itinerary. Index 0 is the
// pickup, the last index is the destination; the order is fixed for the
// ride's lifetime.
type Waypoint struct {
	geo.Coordinate
	Index int           `json:"index"`
	Label WaypointLabel `json:"label"`
}

var ErrNegativeWaypointIndex = errors.New("waypoint index cannot be negative")

// Validate checks invariants of the Waypoint.
func (waypoint Waypoint) Validate() error {
	if err := waypoint.Coordinate.Validate(); err != nil {
		return err
	}
	if waypoint.Index < 0 {
		return ErrNegativeWaypointIndex
	}
	if !waypoint.Label.Valid() {
		return ErrInvalidWaypointLabel
	}
	return nil
}
