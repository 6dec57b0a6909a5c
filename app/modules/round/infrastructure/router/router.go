package roundrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundhandlers "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/handlers"
	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// RoundRouter subscribes the round command handlers.
type RoundRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
	metrics    observability.OperationMetrics

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewRoundRouter creates a RoundRouter. A nil registry disables router metrics.
func NewRoundRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics observability.OperationMetrics,
	registry *prometheus.Registry,
) *RoundRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "spinboard", "router")
		metricsBuilder = &b
	}

	return &RoundRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metrics:        handlerMetrics,
		metricsBuilder: metricsBuilder,
	}
}

// Configure registers every round handler on the router.
func (r *RoundRouter) Configure(_ context.Context, handlers roundhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    observability.OperationMetrics
}

// registerHandler registers a pure transformation-pattern handler with typed payload
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "round." + topic

	deps.router.AddNoPublisherHandler(
		handlerName,
		topic,
		deps.subscriber,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.publisher,
			deps.metrics,
			handler,
		),
	)
}

func (r *RoundRouter) registerHandlers(h roundhandlers.Handlers) {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, roundevents.JoinRequestedV1, h.HandleJoinRequested)
	registerHandler(deps, roundevents.DrawRequestedV1, h.HandleDrawRequested)
	registerHandler(deps, roundevents.ForceResolveRequestedV1, h.HandleForceResolveRequested)
}

// Close stops the router.
func (r *RoundRouter) Close() error {
	return r.Router.Close()
}
