package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
	authhandlers "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/jwt"
	authrouter "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/router"
	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// Module represents the unified auth module.
type Module struct {
	config     *config.Config
	service    authservice.Service
	handlers   authhandlers.Handlers
	router     *authrouter.Router
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates a new auth module. nc and httpRouter may be nil.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	nc *nats.Conn,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "Initializing auth module")

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret must be set")
	}

	jwtProvider := authjwt.NewProvider(cfg.Auth.Secret)

	service := authservice.NewService(
		jwtProvider,
		authservice.Config{
			DefaultTTL: cfg.Auth.DefaultTTL,
			Operator:   cfg.Game.Operator,
		},
		logger,
		tracer,
	)

	handlers := authhandlers.NewAuthHandlers(service, logger, cfg.Auth.DevTokens)
	router := authrouter.NewRouter(handlers, nc)

	// Register HTTP routes
	if httpRouter != nil {
		limiter := authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.RatePerSecond), cfg.HTTP.RateBurst)
		httpRouter.Route("/api/auth", func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(authhandlers.RateLimitMiddleware(limiter))

			// Public routes
			r.Post("/token", handlers.HandleHTTPToken)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authhandlers.BearerAuth(service))
				r.Get("/me", handlers.HandleHTTPWhoAmI)
			})
		})
	}

	return &Module{
		config:   cfg,
		service:  service,
		handlers: handlers,
		router:   router,
		logger:   logger,
	}, nil
}

// Run starts the auth module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting auth module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.router.Start(); err != nil {
		m.logger.ErrorContext(ctx, "Failed to start auth router",
			"error", err,
		)
		return
	}

	m.logger.InfoContext(ctx, "Auth module started",
		"validate_subject", authrouter.ValidateRequestSubject,
		"dev_tokens", m.config.Auth.DevTokens,
	)

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Auth module goroutine stopped")
}

// Close stops the auth module.
func (m *Module) Close() error {
	m.logger.Info("Stopping auth module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.router != nil {
		if err := m.router.Stop(); err != nil {
			m.logger.Error("Error stopping auth router", "error", err)
			return fmt.Errorf("error stopping router: %w", err)
		}
	}

	m.logger.Info("Auth module stopped")
	return nil
}

// GetService returns the auth service for use by other modules.
func (m *Module) GetService() authservice.Service {
	return m.service
}
