package authservice

import (
	"time"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/jwt"
)

// ------------------------
// Fake JWT Provider
// ------------------------

type FakeJWTProvider struct {
	trace []string

	GenerateTokenFunc func(identity string, role authdomain.Role, ttl time.Duration) (string, error)
	ValidateTokenFunc func(tokenString string) (*authdomain.Claims, error)
}

func (f *FakeJWTProvider) Trace() []string {
	return f.trace
}

func (f *FakeJWTProvider) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeJWTProvider) GenerateToken(identity string, role authdomain.Role, ttl time.Duration) (string, error) {
	f.record("GenerateToken")
	if f.GenerateTokenFunc != nil {
		return f.GenerateTokenFunc(identity, role, ttl)
	}
	return "fake-token", nil
}

func (f *FakeJWTProvider) ValidateToken(tokenString string) (*authdomain.Claims, error) {
	f.record("ValidateToken")
	if f.ValidateTokenFunc != nil {
		return f.ValidateTokenFunc(tokenString)
	}
	return &authdomain.Claims{
		Identity: "test-player",
		Role:     authdomain.RolePlayer,
	}, nil
}

var _ authjwt.Provider = (*FakeJWTProvider)(nil)
