package authdomain

import (
	"time"
)

// Claims represents the domain model for authentication claims.
type Claims struct {
	Identity  string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IsExpired checks if the claims have expired.
func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsOperator reports whether the claims carry the operator role.
func (c *Claims) IsOperator() bool {
	return c.Role == RoleOperator
}
