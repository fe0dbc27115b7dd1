package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrorObject is attached only to error logs.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// Entry is the single-line JSON format written to the output.
type Entry struct {
	Timestamp string       `json:"timestamp"`            // ISO 8601 (UTC)
	Level     string       `json:"level"`                // DEBUG | INFO | ERROR
	Service   string       `json:"service"`              // e.g. "driver-tracker"
	Action    string       `json:"action"`               // event name, e.g. "visit_marked"
	Message   string       `json:"message"`              // human-readable description
	Hostname  string       `json:"hostname"`             // device hostname
	RequestID string       `json:"request_id,omitempty"` // correlation ID
	RideID    string       `json:"ride_id,omitempty"`    // ride identifier (when applicable)
	Details   any          `json:"details,omitempty"`    // extra fields (map or struct)
	Error     *ErrorObject `json:"error,omitempty"`      // error details
}

// Logger writes structured single-line JSON entries.
type Logger struct {
	service  string
	hostname string
	mu       sync.Mutex
	out      io.Writer
}

// New creates a structured logger for the given service, writing to stdout.
func New(service string) *Logger {
	return NewWithOutput(service, os.Stdout)
}

// NewWithOutput creates a logger writing to an explicit output (tests).
func NewWithOutput(service string, out io.Writer) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}
	return &Logger{service: service, hostname: hn, out: out}
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.emit(ctx, "DEBUG", action, msg, details, nil)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.emit(ctx, "INFO", action, msg, details, nil)
}

// Error writes an ERROR line and attaches the error with a stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	l.emit(ctx, "ERROR", action, msg, details, &ErrorObject{
		Msg:   strings.TrimSpace(err.Error()),
		Stack: string(debug.Stack()),
	})
}

// emit marshals and writes one JSON line.
func (l *Logger) emit(ctx context.Context, level, action, msg string, details any, errObj *ErrorObject) {
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Service:   l.service,
		Action:    safeAction(action),
		Message:   strings.TrimSpace(msg),
		Hostname:  l.hostname,
		RequestID: RequestID(ctx),
		RideID:    RideID(ctx),
		Details:   details,
		Error:     errObj,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(entry)
	if err != nil {
		// retry once without Details (common source of marshal errors)
		entry.Details = nil
		if b, err = json.Marshal(entry); err != nil {
			fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
			return
		}
	}
	fmt.Fprintln(l.out, string(b))
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "driverclient_request_id"
	ctxKeyRideID    ctxKey = "driverclient_ride_id"
)

// WithNewRequestID returns a context carrying a freshly minted request_id.
func WithNewRequestID(ctx context.Context) context.Context {
	return WithRequestID(ctx, "req_"+uuid.NewString())
}

// WithRequestID returns a context carrying request_id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if strings.TrimSpace(reqID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

// WithRideID returns a context carrying ride_id.
func WithRideID(ctx context.Context, rideID string) context.Context {
	if strings.TrimSpace(rideID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRideID, rideID)
}

// RequestID extracts request_id from ctx (if any).
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// RideID extracts ride_id from ctx (if any).
func RideID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxKeyRideID).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
