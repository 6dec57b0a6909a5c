// Package observability wires logging, metrics and tracing for the service.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the observability settings derived from the application config.
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	LogFormat      string
	MetricsAddress string
	OTLPEndpoint   string
}

// Observability bundles the logger, tracer and metric sinks handed to modules.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry

	RoundMetrics  RoundMetrics
	LedgerMetrics LedgerMetrics

	shutdown []func(context.Context) error
}

// Init builds the observability stack. The returned value must be shut down.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	logger := NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat).With(
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := NewPrometheusMetrics(registry, "spinboard")
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	tracer, shutdownTracing, err := newTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return &Observability{
		Logger:        logger,
		Tracer:        tracer,
		Registry:      registry,
		RoundMetrics:  metrics,
		LedgerMetrics: metrics,
		shutdown:      []func(context.Context) error{shutdownTracing},
	}, nil
}

// NewNoop returns an Observability that records nothing; used by tests and tools.
func NewNoop() *Observability {
	return &Observability{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:        noopTracer(),
		Registry:      prometheus.NewRegistry(),
		RoundMetrics:  NoOpMetrics{},
		LedgerMetrics: NoOpMetrics{},
	}
}

// Shutdown flushes exporters.
func (o *Observability) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range o.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds a slog logger writing to w.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
