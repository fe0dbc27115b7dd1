package ride

import (
	"encoding/json"
	"testing"

	"driver-client/internal/domain/geo"
)

func validRide() Ride {
	return Ride{
		ID:     "ride_001",
		UserID: "rider_001",
		Waypoints: []Waypoint{
			{Coordinate: geo.Coordinate{Lat: 12.90, Lng: 77.60}, Index: 0, Label: LabelPickup},
			{Coordinate: geo.Coordinate{Lat: 12.91, Lng: 77.61}, Index: 1, Label: LabelStop},
			{Coordinate: geo.Coordinate{Lat: 12.92, Lng: 77.62}, Index: 2, Label: LabelDestination},
		},
		Fare:   320,
		Status: StatusAssigned,
	}
}

func TestRideValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Ride)
		wantErr error
	}{
		{"valid", func(r *Ride) {}, nil},
		{"missing id", func(r *Ride) { r.ID = " " }, ErrRideIDRequired},
		{"missing user", func(r *Ride) { r.UserID = "" }, ErrUserIDRequired},
		{"no waypoints", func(r *Ride) { r.Waypoints = nil }, ErrNoWaypoints},
		{"bad status", func(r *Ride) { r.Status = "PAUSED" }, ErrInvalidStatus},
		{"gap in indexes", func(r *Ride) { r.Waypoints[2].Index = 5 }, ErrWaypointOrder},
		{"duplicate index", func(r *Ride) { r.Waypoints[1].Index = 0 }, ErrWaypointOrder},
		{"bad coordinate", func(r *Ride) { r.Waypoints[0].Lat = 91 }, geo.ErrInvalidLatitude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRide()
			tt.mutate(&r)
			if err := r.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRideTransitions(t *testing.T) {
	r := validRide()
	if err := r.Complete(); err != ErrInvalidStatusTransition {
		t.Fatalf("Complete from ASSIGNED = %v, want ErrInvalidStatusTransition", err)
	}
	if err := r.Activate(); err != nil {
		t.Fatalf("Activate from ASSIGNED: %v", err)
	}
	if err := r.Activate(); err != ErrInvalidStatusTransition {
		t.Fatalf("Activate from ACTIVE = %v, want ErrInvalidStatusTransition", err)
	}
	if err := r.Complete(); err != nil {
		t.Fatalf("Complete from ACTIVE: %v", err)
	}
	if !r.Status.Terminal() {
		t.Fatal("COMPLETED must be terminal")
	}
	if err := r.Activate(); err != ErrInvalidStatusTransition {
		t.Fatalf("Activate from COMPLETED = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestRideWaypointLookup(t *testing.T) {
	r := validRide()
	wp, ok := r.Waypoint(1)
	if !ok || wp.Label != LabelStop {
		t.Fatalf("Waypoint(1) = %v, %v", wp, ok)
	}
	if _, ok := r.Waypoint(-1); ok {
		t.Fatal("Waypoint(-1) must not resolve")
	}
	if _, ok := r.Waypoint(3); ok {
		t.Fatal("Waypoint(3) must not resolve")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"ASSIGNED", StatusAssigned, false},
		{" active ", StatusActive, false},
		{"completed", StatusCompleted, false},
		{"cancelled", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRideWireFormat(t *testing.T) {
	payload := []byte(`{
		"_id": "665f1c",
		"user": "rider_42",
		"driver": "drv_7",
		"fare": 250.5,
		"status": "ASSIGNED",
		"waypoints": [
			{"lat": 12.90, "lng": 77.60, "index": 0, "label": "PICKUP"},
			{"lat": 12.92, "lng": 77.62, "index": 1, "label": "DESTINATION"}
		]
	}`)
	var r Ride
	if err := json.Unmarshal(payload, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("validate decoded ride: %v", err)
	}
	if r.ID != "665f1c" || r.UserID != "rider_42" || r.DriverID != "drv_7" {
		t.Fatalf("decoded identity fields wrong: %+v", r)
	}
	if r.Waypoints[1].Lat != 12.92 {
		t.Fatalf("embedded coordinate not decoded: %+v", r.Waypoints[1])
	}
}

func TestNewVisitRecord(t *testing.T) {
	record, err := NewVisitRecord("ride_001", 2, 1700000000000)
	if err != nil {
		t.Fatalf("NewVisitRecord: %v", err)
	}
	if record.WaypointIndex != 2 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if _, err := NewVisitRecord("", 0, 1); err != ErrVisitRideIDRequired {
		t.Errorf("missing ride id = %v", err)
	}
	if _, err := NewVisitRecord("r", -1, 1); err != ErrNegativeWaypointIndex {
		t.Errorf("negative index = %v", err)
	}
	if _, err := NewVisitRecord("r", 0, 0); err != ErrVisitBadTimestamp {
		t.Errorf("zero timestamp = %v", err)
	}
}
