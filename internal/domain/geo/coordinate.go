package geo

import (
	"errors"
	"math"
)

// Coordinate is a WGS84 lat/lng pair as exchanged with the backend.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewCoordinate constructs a validated Coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	coordinate := Coordinate{Lat: lat, Lng: lng}
	if err := coordinate.Validate(); err != nil {
		return Coordinate{}, err
	}
	return coordinate, nil
}

// Validate checks the lat/lng ranges.
func (coordinate Coordinate) Validate() error {
	if coordinate.Lat < -90 || coordinate.Lat > 90 || math.IsNaN(coordinate.Lat) {
		return ErrInvalidLatitude
	}
	if coordinate.Lng < -180 || coordinate.Lng > 180 || math.IsNaN(coordinate.Lng) {
		return ErrInvalidLongitude
	}
	return nil
}
