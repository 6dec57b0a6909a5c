package authservice

import (
	"context"
	"time"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
)

// Service defines the authentication service interface.
type Service interface {
	// IssueToken signs a bearer token for identity. An empty role means player.
	IssueToken(ctx context.Context, identity string, role authdomain.Role) (*TokenResponse, error)

	// ValidateToken validates a JWT token and returns the claims if valid.
	ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error)
}

// TokenResponse represents the response for token issuance.
type TokenResponse struct {
	Token     string          `json:"token"`
	Identity  string          `json:"identity"`
	Role      authdomain.Role `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}
