package cli

import (
	"fmt"
	"strings"
	"time"

	"driver-client/internal/credentials"
)

// GenerateDriverToken mints a short-lived driver JWT for local testing
// against a dev backend.
//
// Typical use (dev-only):
//
//	token, err := cli.GenerateDriverToken("dev-secret", "drv_001", 2*time.Hour)
//
// Keep this dev/internal only; production tokens come from the sign-in flow.
func GenerateDriverToken(secret, driverID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(driverID) == "" {
		return "", fmt.Errorf("driver id is required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	token, err := credentials.IssueDriverToken(secret, driverID, ttl)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
