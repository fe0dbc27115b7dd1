// Package credentials manages the stored bearer token and driver profile.
// The client never verifies token signatures (it has no secret); it reads
// claims to learn its own identity and to spot an expired session early.
package credentials

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"driver-client/internal/storage"
)

var (
	ErrNoToken      = errors.New("credentials: no stored token")
	ErrNoProfile    = errors.New("credentials: no stored profile")
	ErrTokenExpired = errors.New("credentials: stored token is expired")
)

// Profile is the signed-in user as returned by GET /api/auth/me.
type Profile struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Identity is what the client knows about itself from the token claims.
type Identity struct {
	DriverID  string
	Role      string
	ExpiresAt time.Time
}

// Store persists the token and profile slots.
type Store struct {
	db *storage.Store
}

// NewStore returns a credential store over the durable storage.
func NewStore(db *storage.Store) *Store {
	return &Store{db: db}
}

// SaveToken durably replaces the bearer token.
func (s *Store) SaveToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoToken
	}
	return s.db.Put(storage.KeyToken, token)
}

// Token returns the stored bearer token, or ErrNoToken.
func (s *Store) Token() (string, error) {
	var token string
	if err := s.db.Get(storage.KeyToken, &token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveProfile durably replaces the stored profile.
func (s *Store) SaveProfile(p Profile) error {
	return s.db.Put(storage.KeyProfile, p)
}

// Profile returns the stored profile, or ErrNoProfile.
func (s *Store) Profile() (Profile, error) {
	var p Profile
	if err := s.db.Get(storage.KeyProfile, &p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Profile{}, ErrNoProfile
		}
		return Profile{}, err
	}
	return p, nil
}

// Clear removes both slots. Called on sign-out; idempotent.
func (s *Store) Clear() error {
	if err := s.db.Delete(storage.KeyToken); err != nil {
		return err
	}
	return s.db.Delete(storage.KeyProfile)
}

// Identity reads claims from the stored token without verifying the
// signature. Returns ErrTokenExpired when the token's exp is in the past.
func (s *Store) Identity() (Identity, error) {
	token, err := s.Token()
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentity(token)
}

// ParseIdentity extracts the identity claims from a raw token string.
func ParseIdentity(token string) (Identity, error) {
	var claims Claims
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("credentials: parse token: %w", err)
	}

	id := Identity{
		DriverID: claims.Subject,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if time.Now().After(id.ExpiresAt) {
			return id, ErrTokenExpired
		}
	}
	return id, nil
}
