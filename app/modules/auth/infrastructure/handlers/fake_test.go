package authhandlers

import (
	"context"

	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
)

// ------------------------
// Fake Service
// ------------------------

type FakeService struct {
	trace []string

	IssueTokenFunc    func(ctx context.Context, identity string, role authdomain.Role) (*authservice.TokenResponse, error)
	ValidateTokenFunc func(ctx context.Context, tokenString string) (*authdomain.Claims, error)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) IssueToken(ctx context.Context, identity string, role authdomain.Role) (*authservice.TokenResponse, error) {
	f.trace = append(f.trace, "IssueToken")
	if f.IssueTokenFunc != nil {
		return f.IssueTokenFunc(ctx, identity, role)
	}
	return &authservice.TokenResponse{Token: "fake-token", Identity: identity, Role: role}, nil
}

func (f *FakeService) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error) {
	f.trace = append(f.trace, "ValidateToken")
	if f.ValidateTokenFunc != nil {
		return f.ValidateTokenFunc(ctx, tokenString)
	}
	return &authdomain.Claims{Identity: "test-player", Role: authdomain.RolePlayer}, nil
}

var _ authservice.Service = (*FakeService)(nil)
