package round

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"

	authhandlers "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/handlers"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/entropy"
	roundhandlers "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/handlers"
	roundhttp "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/httpapi"
	roundnotifier "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/notifier"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	roundrouter "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/router"
	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/internal/eventbus"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// Module represents the round module.
type Module struct {
	EventBus      eventbus.EventBus
	RoundService  roundservice.Service
	Engine        *roundservice.RoundService
	RoundRouter   *roundrouter.RoundRouter
	config        *config.Config
	observability *observability.Observability
	cancelFunc    context.CancelFunc
}

// Deps are the collaborators the round module borrows from other modules.
type Deps struct {
	Repo         rounddb.Repository
	DB           *bun.DB
	Ledger       roundservice.Ledger
	EventBus     eventbus.EventBus
	Router       *message.Router
	HTTPRouter   chi.Router
	Authenticate func(http.Handler) http.Handler
	Tokens       roundhandlers.TokenValidator
}

// NewRoundModule creates a new instance of the Round module. The engine
// resumes after the last round in history.
func NewRoundModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	deps Deps,
) (*Module, error) {
	logger := obs.Logger
	metrics := obs.RoundMetrics
	tracer := obs.Tracer

	logger.InfoContext(ctx, "round.NewRoundModule called")

	if deps.Tokens == nil {
		return nil, fmt.Errorf("round module requires a token validator")
	}

	source, err := NewEntropySource(cfg.Game)
	if err != nil {
		return nil, err
	}

	operator := roundtypes.Identity(cfg.Game.Operator)
	engine := roundservice.NewRoundService(
		roundservice.Settings{
			EntryFee: roundtypes.Amount(cfg.Game.EntryFee),
			Operator: operator,
		},
		deps.Repo,
		deps.Ledger,
		source,
		roundnotifier.New(deps.EventBus, logger),
		logger,
		metrics,
		tracer,
		deps.DB,
	)
	if err := engine.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap round engine: %w", err)
	}

	guard := roundservice.NewGuard(engine, operator, roundservice.DefaultGuardWait, logger, metrics)

	roundRouter := roundrouter.NewRoundRouter(logger, deps.Router, deps.EventBus, deps.EventBus, tracer, metrics, obs.Registry)
	if err := roundRouter.Configure(ctx, roundhandlers.NewRoundHandlers(guard, deps.Tokens, logger)); err != nil {
		return nil, fmt.Errorf("failed to configure round router: %w", err)
	}

	if deps.HTTPRouter != nil {
		limiter := authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.RatePerSecond), cfg.HTTP.RateBurst)
		handlers := roundhttp.NewRoundHandlers(guard, roundtypes.Amount(cfg.Game.EntryFee), logger)
		deps.HTTPRouter.Group(func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(authhandlers.RateLimitMiddleware(limiter))
			roundhttp.Routes(handlers, deps.Authenticate)(r)
		})
	}

	return &Module{
		EventBus:      deps.EventBus,
		RoundService:  guard,
		Engine:        engine,
		RoundRouter:   roundRouter,
		config:        cfg,
		observability: obs,
	}, nil
}

// NewEntropySource builds the source selected by game.entropy_mode.
func NewEntropySource(cfg config.GameConfig) (roundservice.EntropySource, error) {
	switch cfg.EntropyMode {
	case "hash":
		return entropy.NewHashSource([]byte(cfg.EntropySecret))
	case "vrf":
		return entropy.NewVRFSource([]byte(cfg.EntropySecret))
	default:
		return nil, fmt.Errorf("unsupported entropy mode %q", cfg.EntropyMode)
	}
}

// Run starts the round module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting round module",
		"round_id", int64(m.RoundService.CurrentRound(ctx).ID),
	)

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Round module goroutine stopped")
}

// Close stops the round module and cleans up resources.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping round module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.RoundRouter != nil {
		if err := m.RoundRouter.Close(); err != nil {
			logger.Error("Error closing RoundRouter from module", "error", err)
			return fmt.Errorf("error closing RoundRouter: %w", err)
		}
	}

	logger.Info("Round module stopped")
	return nil
}
