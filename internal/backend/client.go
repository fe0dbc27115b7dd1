// Package backend is the HTTP collaborator client. Every call carries the
// stored bearer token; the visit mirror retries with capped backoff since
// local visit state is authoritative and the server route is idempotent.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"driver-client/internal/common/logger"
	"driver-client/internal/credentials"
	"driver-client/internal/domain/ride"
)

// Client talks to the ride-hail backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *credentials.Store
	log     *logger.Logger

	mirrorRetries   uint64
	mirrorBackoffFn func() backoff.BackOff
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMirrorRetries bounds visit-mirror retry attempts (0 disables retry).
func WithMirrorRetries(n uint64) Option {
	return func(c *Client) { c.mirrorRetries = n }
}

// New returns a Client for the given base URL.
func New(baseURL string, creds *credentials.Store, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		http:          &http.Client{Timeout: 10 * time.Second},
		creds:         creds,
		log:           log,
		mirrorRetries: 3,
		mirrorBackoffFn: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 200 * time.Millisecond
			bo.MaxInterval = 2 * time.Second
			return bo
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssignedRides fetches the driver's currently assigned rides.
func (c *Client) AssignedRides(ctx context.Context) ([]ride.Ride, error) {
	var rides []ride.Ride
	if err := c.do(ctx, http.MethodGet, "/driver/assigned-rides", nil, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

// CompleteRide reports ride completion to the backend.
func (c *Client) CompleteRide(ctx context.Context, rideID string) error {
	body := map[string]any{"status": "completed"}
	return c.do(ctx, http.MethodPut, "/driver/change-ride-status/"+rideID, body, nil)
}

// MirrorVisit mirrors a waypoint visit to the backend, retrying transient
// failures with exponential backoff. The caller treats any final error as
// non-fatal: the local visit record stands either way.
func (c *Client) MirrorVisit(ctx context.Context, rideID string, waypointIndex int, timestampMs int64) error {
	body := map[string]any{
		"status":        true,
		"locationIndex": waypointIndex,
		"timestamp":     timestampMs,
	}

	op := func() error {
		return c.do(ctx, http.MethodPut, "/bookings/status/"+rideID, body, nil)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(c.mirrorBackoffFn(), c.mirrorRetries), ctx)
	return backoff.Retry(op, bo)
}

// Me fetches the signed-in profile.
func (c *Client) Me(ctx context.Context) (credentials.Profile, error) {
	var p credentials.Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &p); err != nil {
		return credentials.Profile{}, err
	}
	return p, nil
}

// do performs one authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.creds.Token()
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: marshal %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("backend: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}
