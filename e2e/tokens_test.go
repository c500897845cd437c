//go:build e2e
// +build e2e

package e2e

import (
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-remittance/app/auth"
)

const (
	defaultJWTSecret    = "remittance-e2e-secret"
	defaultClientUserID = 7
)

func jwtSecret() string {
	if value := strings.TrimSpace(os.Getenv("REMITTANCE_JWT_SECRET")); value != "" {
		return value
	}
	return defaultJWTSecret
}

func clientUserID() uint64 {
	if value := strings.TrimSpace(os.Getenv("REMITTANCE_CLIENT_USER_ID")); value != "" {
		if id, err := strconv.ParseUint(value, 10, 64); err == nil {
			return id
		}
	}
	return defaultClientUserID
}

func mintToken(t *testing.T, userID uint64, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.Claims{
		UserID: userID,
		Email:  "e2e-" + role + "@example.com",
		Role:   role,
	}, jwtSecret(), time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	return token
}

func clientToken(t *testing.T) string {
	return mintToken(t, clientUserID(), "client")
}

func adminToken(t *testing.T) string {
	return mintToken(t, 1, "admin")
}

func envUint(name string) (uint64, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
