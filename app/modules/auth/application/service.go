package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/jwt"
)

// Config holds the configuration for the auth service.
type Config struct {
	DefaultTTL time.Duration
	Operator   string
}

// service implements the Service interface.
type service struct {
	jwtProvider authjwt.Provider
	config      Config
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewService creates a new auth service.
func NewService(
	jwtProvider authjwt.Provider,
	config Config,
	logger *slog.Logger,
	tracer trace.Tracer,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		jwtProvider: jwtProvider,
		config:      config,
		logger:      logger,
		tracer:      tracer,
		now:         time.Now,
	}
}

const DefaultTokenTTL = 24 * time.Hour

// IssueToken signs a bearer token for identity.
func (s *service) IssueToken(ctx context.Context, identity string, role authdomain.Role) (*TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.IssueToken")
	defer span.End()

	if identity == "" {
		return nil, ErrMissingIdentity
	}
	if role == "" {
		role = authdomain.RolePlayer
	}
	if !role.IsValid() {
		s.logger.WarnContext(ctx, "Invalid role specified",
			"identity", identity,
			"role", role.String(),
		)
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if role == authdomain.RoleOperator && identity != s.config.Operator {
		s.logger.WarnContext(ctx, "Operator token requested for another identity",
			"identity", identity,
		)
		return nil, ErrNotOperator
	}

	ttl := s.config.DefaultTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	token, err := s.jwtProvider.GenerateToken(identity, role, ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to generate token",
			"identity", identity,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerateToken, err)
	}

	s.logger.InfoContext(ctx, "Token issued",
		"identity", identity,
		"role", role.String(),
	)

	return &TokenResponse{
		Token:     token,
		Identity:  identity,
		Role:      role,
		ExpiresAt: s.now().Add(ttl).UTC(),
	}, nil
}

// ValidateToken validates a JWT token and returns the claims if valid.
func (s *service) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ValidateToken")
	defer span.End()

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.jwtProvider.ValidateToken(tokenString)
	if err != nil {
		s.logger.WarnContext(ctx, "Token validation failed",
			"error", err,
		)
		if errors.Is(err, authjwt.ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	// The operator role is only honoured for the current operator identity.
	if claims.IsOperator() && claims.Identity != s.config.Operator {
		s.logger.WarnContext(ctx, "Stale operator token rejected",
			"identity", claims.Identity,
		)
		return nil, ErrInvalidToken
	}

	return claims, nil
}
