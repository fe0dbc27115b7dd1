package socket

import (
	"encoding/json"

	"driver-client/internal/domain/ride"
)

// State of the managed connection.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	// StateAuthPending is the sub-state between transport connect and a
	// completed login handshake.
	StateAuthPending State = "AUTH_PENDING"
	StateConnected   State = "CONNECTED"
)

// Roles the client can log in as.
const (
	RoleDriver = "driver"
	RoleRider  = "rider"
)

// EventKind tags inbound notifications from the connection.
type EventKind string

const (
	EventConnected    EventKind = "connect"
	EventConnectError EventKind = "connect_error"
	EventDisconnected EventKind = "disconnect"
	EventNewRide      EventKind = "new-ride"
)

// Event is one tagged inbound notification. Ride is set for EventNewRide,
// Err for EventConnectError and EventDisconnected.
type Event struct {
	Kind EventKind
	Ride *ride.Ride
	Err  error
}

// Wire event names shared with the backend.
const (
	WireNewRide        = "new-ride"
	WireDriverLocation = "driver-location"
	WireRideComplete   = "ride-complete"
)

// frame is the JSON envelope for every socket message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
