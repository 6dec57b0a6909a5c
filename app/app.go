package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Black-And-White-Club/spinboard/app/modules/auth"
	authhandlers "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/handlers"
	"github.com/Black-And-White-Club/spinboard/app/modules/ledger"
	"github.com/Black-And-White-Club/spinboard/app/modules/round"
	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/db/bundb"
	"github.com/Black-And-White-Club/spinboard/internal/eventbus"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// App holds every long-lived component of the service.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bundb.DBService
	EventBus      *eventbus.Bus
	Router        *message.Router
	HTTPRouter    chi.Router

	AuthModule   *auth.Module
	LedgerModule *ledger.Module
	RoundModule  *round.Module

	httpServer    *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// Initialize builds the app from cfg. Migrations run before the round
// engine restores its counters from history.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	app.Config = cfg

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	app.Observability = obs
	logger := obs.Logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database service: %w", err)
	}
	app.DB = dbService

	if err := bundb.MigrateAll(ctx, dbService.GetDB(), logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	bus, err := eventbus.New(eventbus.Config{
		NATSEnabled: cfg.NATS.Enabled,
		NATSURL:     cfg.NATS.URL,
		QueueGroup:  "spinboard",
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create Watermill router: %w", err)
	}
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)
	app.Router = router

	httpRouter := chi.NewRouter()
	httpRouter.Use(chimiddleware.RequestID)
	httpRouter.Use(chimiddleware.RealIP)
	httpRouter.Use(chimiddleware.Recoverer)
	httpRouter.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	app.HTTPRouter = httpRouter

	if err := app.initializeModules(ctx); err != nil {
		return err
	}

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httpRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Observability.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
		app.metricsServer = &http.Server{
			Addr:              cfg.Observability.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return nil
}

func (app *App) initializeModules(ctx context.Context) error {
	cfg := app.Config
	obs := app.Observability

	authModule, err := auth.NewModule(ctx, cfg, obs, app.EventBus.Conn, app.HTTPRouter)
	if err != nil {
		return fmt.Errorf("failed to initialize auth module: %w", err)
	}
	app.AuthModule = authModule

	ledgerModule, err := ledger.NewLedgerModule(ctx, cfg, obs, app.DB.LedgerDB, app.DB.GetDB(), app.EventBus.Conn)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger module: %w", err)
	}
	app.LedgerModule = ledgerModule

	roundModule, err := round.NewRoundModule(ctx, cfg, obs, round.Deps{
		Repo:         app.DB.RoundDB,
		DB:           app.DB.GetDB(),
		Ledger:       ledgerModule.LedgerService,
		EventBus:     app.EventBus,
		Router:       app.Router,
		HTTPRouter:   app.HTTPRouter,
		Authenticate: authhandlers.BearerAuth(authModule.GetService()),
		Tokens:       authModule.GetService(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize round module: %w", err)
	}
	app.RoundModule = roundModule

	return nil
}

// Run starts the modules, the Watermill router and the HTTP listeners, and
// blocks until ctx is canceled or a listener fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.wg.Add(3)
	go app.AuthModule.Run(ctx, &app.wg)
	go app.LedgerModule.Run(ctx, &app.wg)
	go app.RoundModule.Run(ctx, &app.wg)

	errCh := make(chan error, 3)

	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("watermill router stopped: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	if app.metricsServer != nil {
		go func() {
			logger.Info("Metrics server listening", "address", app.metricsServer.Addr)
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server failed: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		logger.Error("Component failed", "error", err)
		return err
	}
}

// Close shuts the app down in reverse order of Initialize.
func (app *App) Close() {
	logger := app.Observability.Logger
	logger.Info("Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{app.httpServer, app.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down HTTP server", "address", srv.Addr, "error", err)
		}
	}

	// Run cancels the module goroutines before returning.
	app.wg.Wait()

	if app.RoundModule != nil {
		if err := app.RoundModule.Close(); err != nil {
			logger.Error("Error closing round module", "error", err)
		}
	}
	if app.LedgerModule != nil {
		if err := app.LedgerModule.Close(); err != nil {
			logger.Error("Error closing ledger module", "error", err)
		}
	}
	if app.AuthModule != nil {
		if err := app.AuthModule.Close(); err != nil {
			logger.Error("Error closing auth module", "error", err)
		}
	}

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			logger.Error("Error closing Watermill router", "error", err)
		}
	}

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			logger.Error("Error closing event bus", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.GetDB().Close(); err != nil {
			logger.Error("Error closing database", "error", err)
		}
	}

	if err := app.Observability.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down observability", "error", err)
	}

	logger.Info("Application shut down gracefully")
}
