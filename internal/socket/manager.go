// Package socket owns the single persistent connection to the backend.
// Exactly one live connection exists per Manager: consumers read status and
// emit through the handle they were given, but only the Manager creates or
// destroys the connection.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"driver-client/internal/common/logger"
	"driver-client/internal/credentials"
	"driver-client/internal/domain/ride"
)

var (
	ErrClosed       = errors.New("socket: manager closed")
	ErrNotConnected = errors.New("socket: not connected")
	ErrInvalidRole  = errors.New("socket: role must be driver or rider")
)

// Manager is the connection state machine:
// DISCONNECTED -> CONNECTING -> AUTH_PENDING -> CONNECTED -> DISCONNECTED.
// Reconnection is never automatic; the caller triggers it (app foreground)
// by calling Get again.
type Manager struct {
	url    string
	dialer Dialer
	creds  *credentials.Store
	log    *logger.Logger
	logCtx context.Context

	events chan Event
	closed chan struct{}

	// writeMu serializes frame writes; gorilla connections do not support
	// concurrent writers.
	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	conn    Conn
	handle  *Handle
	gen     int
	attempt chan struct{} // non-nil while a connect attempt is in flight
}

// NewManager creates a disconnected manager. ctx scopes the manager's own
// logging, not any connection.
func NewManager(ctx context.Context, url string, dialer Dialer, creds *credentials.Store, log *logger.Logger) *Manager {
	return &Manager{
		url:    url,
		dialer: dialer,
		creds:  creds,
		log:    log,
		logCtx: context.WithoutCancel(ctx),
		events: make(chan Event, 32),
		closed: make(chan struct{}),
		state:  StateDisconnected,
	}
}

// Events is the stream of tagged inbound notifications.
func (m *Manager) Events() <-chan Event { return m.events }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the login handshake has completed.
func (m *Manager) Connected() bool { return m.State() == StateConnected }

// Handle returns the current live handle, if any.
func (m *Manager) Handle() (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnected && m.handle != nil {
		return m.handle, true
	}
	return nil, false
}

// Get returns the live handle, creating the connection if necessary.
// Concurrent calls during an in-flight attempt share it (single-flight)
// instead of opening a second connection.
func (m *Manager) Get(ctx context.Context, role string) (*Handle, error) {
	if role != RoleDriver && role != RoleRider {
		return nil, ErrInvalidRole
	}

	for {
		m.mu.Lock()
		select {
		case <-m.closed:
			m.mu.Unlock()
			return nil, ErrClosed
		default:
		}

		if m.state == StateConnected && m.handle != nil {
			h := m.handle
			m.mu.Unlock()
			return h, nil
		}

		if m.attempt != nil {
			wait := m.attempt
			m.mu.Unlock()
			select {
			case <-wait:
				continue // attempt settled; re-check state
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-m.closed:
				return nil, ErrClosed
			}
		}

		attempt := make(chan struct{})
		m.attempt = attempt
		m.state = StateConnecting
		m.mu.Unlock()

		h, err := m.connect(ctx, role)

		m.mu.Lock()
		m.attempt = nil
		m.mu.Unlock()
		close(attempt)

		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// connect dials, performs the role login handshake and installs the
// connection. Called with the attempt slot held.
func (m *Manager) connect(ctx context.Context, role string) (*Handle, error) {
	conn, err := m.dialer.DialContext(ctx, m.url)
	if err != nil {
		m.setDisconnected()
		m.log.Error(m.logCtx, "socket_connect_failed", "Failed to establish socket connection", err,
			map[string]any{"url": m.url})
		m.publish(Event{Kind: EventConnectError, Err: err})
		return nil, fmt.Errorf("socket: connect: %w", err)
	}

	m.mu.Lock()
	select {
	case <-m.closed:
		m.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	default:
	}
	m.state = StateAuthPending
	m.conn = conn
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	// login handshake: associate this socket with the stored identity.
	// A missing token is an auth error; no automatic retry.
	token, err := m.creds.Token()
	if err != nil {
		m.discard(gen)
		m.log.Error(m.logCtx, "socket_login_failed", "Login handshake failed: no stored token", err, nil)
		m.publish(Event{Kind: EventConnectError, Err: err})
		return nil, fmt.Errorf("socket: login handshake: %w", err)
	}
	if err := m.writeFrame(conn, role+"-login", token); err != nil {
		m.discard(gen)
		m.log.Error(m.logCtx, "socket_login_failed", "Failed to emit login event", err,
			map[string]any{"role": role})
		m.publish(Event{Kind: EventConnectError, Err: err})
		return nil, fmt.Errorf("socket: emit %s-login: %w", role, err)
	}

	m.mu.Lock()
	m.state = StateConnected
	h := &Handle{m: m, conn: conn, gen: gen}
	m.handle = h
	m.mu.Unlock()

	go m.readPump(conn, gen)

	m.log.Info(m.logCtx, "socket_connected", "Socket connected and logged in",
		map[string]any{"role": role})
	m.publish(Event{Kind: EventConnected})
	return h, nil
}

// ClearSocket forcibly disconnects and discards the handle. Safe to call
// when already disconnected; the next Get creates a fresh connection.
func (m *Manager) ClearSocket() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.handle = nil
	m.state = StateDisconnected
	m.gen++ // invalidate the read pump of the discarded connection
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		m.log.Info(m.logCtx, "socket_cleared", "Socket connection discarded", nil)
	}
}

// Close shuts the manager down for good.
func (m *Manager) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	m.ClearSocket()
}

// readPump consumes inbound frames until the connection drops.
func (m *Manager) readPump(conn Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			current := m.gen == gen
			if current {
				m.conn = nil
				m.handle = nil
				m.state = StateDisconnected
			}
			m.mu.Unlock()

			// a stale pump belongs to a connection ClearSocket already
			// discarded; only the current one reports the transport drop
			if current {
				m.log.Error(m.logCtx, "socket_disconnected", "Socket connection lost", err, nil)
				m.publish(Event{Kind: EventDisconnected, Err: err})
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.log.Error(m.logCtx, "socket_bad_frame", "Failed to decode inbound frame", err,
				map[string]any{"size": len(data)})
			continue
		}

		switch f.Event {
		case WireNewRide:
			var r ride.Ride
			if err := json.Unmarshal(f.Data, &r); err != nil {
				m.log.Error(m.logCtx, "new_ride_bad_payload", "Failed to decode new-ride payload", err, nil)
				continue
			}
			if r.Status == "" {
				r.Status = ride.StatusAssigned
			}
			if err := r.Validate(); err != nil {
				m.log.Error(m.logCtx, "new_ride_invalid", "Rejected invalid new-ride payload", err,
					map[string]any{"ride_id": r.ID})
				continue
			}
			m.publish(Event{Kind: EventNewRide, Ride: &r})

		default:
			m.log.Debug(m.logCtx, "socket_event_ignored", "Ignored unknown inbound event",
				map[string]any{"event": f.Event})
		}
	}
}

// publish enqueues an event without blocking the pump. If the consumer is
// not keeping up the event is dropped and logged.
func (m *Manager) publish(ev Event) {
	select {
	case m.events <- ev:
	case <-m.closed:
	default:
		m.log.Error(m.logCtx, "socket_event_dropped", "Inbound event dropped: consumer not keeping up",
			fmt.Errorf("event %s dropped", ev.Kind), nil)
	}
}

// writeFrame serializes and sends one outbound frame.
func (m *Manager) writeFrame(conn Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("socket: marshal %s payload: %w", event, err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(frame{Event: event, Data: payload})
}

// discard tears down the connection installed by generation gen.
func (m *Manager) discard(gen int) {
	m.mu.Lock()
	var conn Conn
	if m.gen == gen {
		conn = m.conn
		m.conn = nil
		m.handle = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) setDisconnected() {
	m.mu.Lock()
	m.state = StateDisconnected
	m.mu.Unlock()
}

// Handle is a reference to the live connection. It becomes inert when the
// manager tears the connection down; it never recreates one.
type Handle struct {
	m    *Manager
	conn Conn
	gen  int
}

// Live reports whether this handle still refers to the current connection.
func (h *Handle) Live() bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return h.m.gen == h.gen && h.m.state == StateConnected
}

// Emit sends one event frame over the connection.
func (h *Handle) Emit(event string, data any) error {
	if !h.Live() {
		return ErrNotConnected
	}
	return h.m.writeFrame(h.conn, event, data)
}
