package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "\n") {
		t.Fatalf("expected a single line, got %q", line)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, line)
	}
	return entry
}

func TestInfoWritesSingleJSONLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("driver-tracker", &buf)

	ctx := WithRideID(WithRequestID(context.Background(), "req_123"), "ride_001")
	log.Info(ctx, "visit_marked", "Waypoint visit recorded", map[string]any{"index": 2})

	entry := decodeLine(t, &buf)
	if entry["level"] != "INFO" || entry["action"] != "visit_marked" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["service"] != "driver-tracker" {
		t.Fatalf("service = %v", entry["service"])
	}
	if entry["request_id"] != "req_123" || entry["ride_id"] != "ride_001" {
		t.Fatalf("context fields missing: %v", entry)
	}
	details, ok := entry["details"].(map[string]any)
	if !ok || details["index"] != float64(2) {
		t.Fatalf("details = %v", entry["details"])
	}
	if _, present := entry["error"]; present {
		t.Fatal("info entry must not carry an error object")
	}
}

func TestErrorAttachesErrorObject(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("driver-tracker", &buf)

	log.Error(context.Background(), "visit_mirror_failed", "Mirror failed", errors.New("boom"), nil)

	entry := decodeLine(t, &buf)
	if entry["level"] != "ERROR" {
		t.Fatalf("level = %v", entry["level"])
	}
	errObj, ok := entry["error"].(map[string]any)
	if !ok {
		t.Fatalf("error object missing: %v", entry)
	}
	if errObj["msg"] != "boom" {
		t.Fatalf("error msg = %v", errObj["msg"])
	}
	if errObj["stack"] == "" {
		t.Fatal("stack must be populated")
	}
}

func TestEmitRecoversFromUnmarshalableDetails(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("driver-tracker", &buf)

	// channels cannot be marshalled; the entry must still be written
	log.Info(context.Background(), "odd_details", "Detail payload dropped", map[string]any{"ch": make(chan int)})

	entry := decodeLine(t, &buf)
	if entry["action"] != "odd_details" {
		t.Fatalf("entry lost: %v", entry)
	}
	if _, present := entry["details"]; present {
		t.Fatal("unmarshalable details must be dropped")
	}
}

func TestWithNewRequestIDGeneratesDistinctIDs(t *testing.T) {
	a := RequestID(WithNewRequestID(context.Background()))
	b := RequestID(WithNewRequestID(context.Background()))
	if a == "" || b == "" || a == b {
		t.Fatalf("request ids not distinct: %q %q", a, b)
	}
	if !strings.HasPrefix(a, "req_") {
		t.Fatalf("request id missing prefix: %q", a)
	}
}

func TestContextHelpersIgnoreBlankValues(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(WithRequestID(ctx, "  ")); got != "" {
		t.Fatalf("blank request id stored: %q", got)
	}
	if got := RideID(WithRideID(ctx, "")); got != "" {
		t.Fatalf("blank ride id stored: %q", got)
	}
}
