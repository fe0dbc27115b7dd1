package geo

import (
	"errors"
	"math"
	"time"
)

// LocationSample is one fix from the device's location provider.
// Immutable once created.
type LocationSample struct {
	Coordinate
	AccuracyMeters float64 `json:"accuracy,omitempty"`
	SpeedMPS       float64 `json:"speed"`
	TimestampMs    int64   `json:"timestamp"`
}

var (
	ErrNegativeAccuracy = errors.New("accuracy_meters cannot be negative")
	ErrNegativeSpeed    = errors.New("speed cannot be negative")
	ErrZeroTimestamp    = errors.New("timestamp must be a valid epoch time")
)

// NewLocationSample constructs a validated sample. A zero timestamp is
// filled with the current time (some providers omit it on the first fix).
func NewLocationSample(lat, lng, accuracyMeters, speedMPS float64, timestampMs int64) (LocationSample, error) {
	if timestampMs == 0 {
		timestampMs = time.Now().UnixMilli()
	}

	sample := LocationSample{
		Coordinate:     Coordinate{Lat: lat, Lng: lng},
		AccuracyMeters: accuracyMeters,
		SpeedMPS:       speedMPS,
		TimestampMs:    timestampMs,
	}
	if err := sample.Validate(); err != nil {
		return LocationSample{}, err
	}
	return sample, nil
}

// Validate checks invariants of the sample.
func (sample LocationSample) Validate() error {
	if err := sample.Coordinate.Validate(); err != nil {
		return err
	}
	if sample.AccuracyMeters < 0 || math.IsNaN(sample.AccuracyMeters) {
		return ErrNegativeAccuracy
	}
	if sample.SpeedMPS < 0 || math.IsNaN(sample.SpeedMPS) {
		return ErrNegativeSpeed
	}
	if sample.TimestampMs <= 0 {
		return ErrZeroTimestamp
	}
	return nil
}

// Time returns the sample timestamp as time.Time.
func (sample LocationSample) Time() time.Time {
	return time.UnixMilli(sample.TimestampMs)
}

// Age reports how old the sample is relative to now.
func (sample LocationSample) Age(now time.Time) time.Duration {
	return now.Sub(sample.Time())
}
