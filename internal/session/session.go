// Package session aggregates the tracking components into one ride
// lifecycle: accept, track, visit waypoints, complete. All session state
// is owned by a single dispatch goroutine; callers interact through
// commands, so no locks guard the ride, the visit set or the proximity
// snapshot.
package session

import (
	"context"
	"errors"
	"time"

	"driver-client/internal/backend"
	"driver-client/internal/common/config"
	"driver-client/internal/common/logger"
	"driver-client/internal/credentials"
	"driver-client/internal/domain/geo"
	"driver-client/internal/domain/ride"
	"driver-client/internal/geosampler"
	"driver-client/internal/proximity"
	"driver-client/internal/reporter"
	"driver-client/internal/socket"
	"driver-client/internal/visitstore"
)

var (
	ErrNoActiveRide    = errors.New("session: no active ride")
	ErrUnknownWaypoint = errors.New("session: waypoint index out of range")
	ErrNoLocationFix   = errors.New("session: no location fix yet")
	ErrNotNearby       = errors.New("session: too far from waypoint to mark it visited")
	ErrClosed          = errors.New("session: closed")
)

// mirrorTimeout bounds the detached visit/completion mirror calls.
const mirrorTimeout = 30 * time.Second

// Deps are the collaborators a Session coordinates.
type Deps struct {
	Log      *logger.Logger
	Tracking config.TrackingConfig
	Conn     *socket.Manager
	Sampler  *geosampler.Sampler
	Visits   *visitstore.Store
	Reporter *reporter.Reporter
	Backend  *backend.Client
	Creds    *credentials.Store
}

// LifecycleEvent is an app lifecycle transition fed into the loop.
type LifecycleEvent string

const (
	LifecycleForeground LifecycleEvent = "foreground"
	LifecycleBackground LifecycleEvent = "background"
)

// Snapshot is the read-only projection exposed to the UI layer.
type Snapshot struct {
	Ride       *ride.Ride
	Assigned   []ride.Ride
	Proximity  map[int]proximity.Status
	LastSample *geo.LocationSample
	Connected  bool
}

// Session drives the ride lifecycle. Create with New, run with Run.
type Session struct {
	deps Deps

	cmds      chan command
	lifecycle chan LifecycleEvent
	done      chan struct{}

	// loop-owned state; touched only by the Run goroutine
	driverID   string
	riderID    string
	current    *ride.Ride
	assigned   []ride.Ride
	handle     *socket.Handle
	samples    <-chan geosampler.Event
	lastSample *geo.LocationSample
	prox       map[int]proximity.Status
}

// New wires a Session from its collaborators.
func New(deps Deps) *Session {
	return &Session{
		deps:      deps,
		cmds:      make(chan command),
		lifecycle: make(chan LifecycleEvent, 4),
		done:      make(chan struct{}),
	}
}

type cmdKind int

const (
	cmdSnapshot cmdKind = iota
	cmdMarkVisited
	cmdComplete
	cmdSignOut
)

type command struct {
	kind  cmdKind
	index int
	reply chan cmdResult
}

type cmdResult struct {
	record ride.VisitRecord
	snap   Snapshot
	err    error
}

// send routes a command through the dispatch loop.
func (s *Session) send(ctx context.Context, c command) (cmdResult, error) {
	c.reply = make(chan cmdResult, 1)
	select {
	case s.cmds <- c:
	case <-s.done:
		return cmdResult{}, ErrClosed
	case <-ctx.Done():
		return cmdResult{}, ctx.Err()
	}
	select {
	case res := <-c.reply:
		return res, res.err
	case <-s.done:
		return cmdResult{}, ErrClosed
	case <-ctx.Done():
		return cmdResult{}, ctx.Err()
	}
}

// MarkVisited confirms arrival at the given waypoint. Rejected with
// ErrNotNearby when the driver is outside the proximity threshold;
// repeated calls return the original record (first-write-wins).
func (s *Session) MarkVisited(ctx context.Context, index int) (ride.VisitRecord, error) {
	res, err := s.send(ctx, command{kind: cmdMarkVisited, index: index})
	return res.record, err
}

// Complete finishes the active ride. Completion is always explicit; the
// session never auto-completes on the destination visit.
func (s *Session) Complete(ctx context.Context) error {
	_, err := s.send(ctx, command{kind: cmdComplete})
	return err
}

// SignOut clears credentials, stops tracking and ends the session loop.
func (s *Session) SignOut(ctx context.Context) error {
	_, err := s.send(ctx, command{kind: cmdSignOut})
	return err
}

// Snapshot returns the current session projection.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := s.send(ctx, command{kind: cmdSnapshot})
	return res.snap, err
}

// Foreground signals the app-foreground transition. Non-blocking; a
// coalesced event is enough since the loop re-checks connection state.
func (s *Session) Foreground() { s.pushLifecycle(LifecycleForeground) }

// Background signals the app-background transition.
func (s *Session) Background() { s.pushLifecycle(LifecycleBackground) }

func (s *Session) pushLifecycle(ev LifecycleEvent) {
	select {
	case s.lifecycle <- ev:
	default:
	}
}
