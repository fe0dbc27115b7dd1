package ride

import (
	"errors"
	"strings"
)

// Status is the client-side lifecycle of a ride.
type Status string

const (
	StatusAssigned  Status = "ASSIGNED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

var ErrInvalidStatus = errors.New("invalid ride status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(input string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(input)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed constants.
func (status Status) Valid() bool {
	switch status {
	case StatusAssigned, StatusActive, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (status Status) Terminal() bool {
	return status == StatusCompleted
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}
