package credentials

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the canonical JWT claims payload issued by the backend.
type Claims struct {
	Role string `json:"role"` // "driver" or "rider"
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewDriverClaims constructs driver claims for a dev-minted token.
func NewDriverClaims(driverID string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: "driver",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   driverID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// IssueDriverToken mints a signed HS256 driver token. Dev/test only; the
// production token comes from the sign-in flow.
func IssueDriverToken(secret, driverID string, ttl time.Duration) (string, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("credentials: empty signing secret")
	}
	claims := NewDriverClaims(driverID, ttl)
	tkn := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tkn.SignedString([]byte(s))
}
