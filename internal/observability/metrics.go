package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics is the per-operation telemetry every service records.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation, reason string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
}

// RoundMetrics records round engine activity.
type RoundMetrics interface {
	OperationMetrics
	RecordRejection(ctx context.Context, operation, reason string)
	RecordInvariantFailure(ctx context.Context, operation string)
	RecordRoundResolved(ctx context.Context, playerCount int, forced bool)
}

// LedgerMetrics records escrow and payout activity.
type LedgerMetrics interface {
	OperationMetrics
	RecordInvariantFailure(ctx context.Context, operation string)
	RecordPayout(ctx context.Context, kind string, amount int64)
	RecordHeldBalance(ctx context.Context, amount int64)
}

// PrometheusMetrics implements RoundMetrics and LedgerMetrics.
type PrometheusMetrics struct {
	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	invariants *prometheus.CounterVec
	resolved   *prometheus.CounterVec
	roundSize  prometheus.Histogram
	payouts    *prometheus.CounterVec
	held       prometheus.Gauge
}

// NewPrometheusMetrics registers all collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that committed.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Service operations that failed.",
		}, []string{"operation", "reason"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "rejections_total",
			Help:      "Caller requests rejected by the round engine.",
		}, []string{"operation", "reason"}),
		invariants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_failures_total",
			Help:      "Internal invariant violations. Any non-zero value is a defect.",
		}, []string{"operation"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "resolved_total",
			Help:      "Rounds resolved.",
		}, []string{"trigger"}),
		roundSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "players",
			Help:      "Players per resolved round.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "paid_amount_total",
			Help:      "Amount disbursed per recipient kind.",
		}, []string{"kind"}),
		held: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "held_balance",
			Help:      "Funds currently held in escrow.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.attempts, m.successes, m.failures, m.durations, m.rejections,
		m.invariants, m.resolved, m.roundSize, m.payouts, m.held,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation string) {
	m.attempts.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation string) {
	m.successes.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, reason string) {
	m.failures.WithLabelValues(operation, reason).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation string, duration time.Duration) {
	m.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRejection(_ context.Context, operation, reason string) {
	m.rejections.WithLabelValues(operation, reason).Inc()
}

func (m *PrometheusMetrics) RecordInvariantFailure(_ context.Context, operation string) {
	m.invariants.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordRoundResolved(_ context.Context, playerCount int, forced bool) {
	trigger := "draw"
	if forced {
		trigger = "force"
	}
	m.resolved.WithLabelValues(trigger).Inc()
	m.roundSize.Observe(float64(playerCount))
}

func (m *PrometheusMetrics) RecordPayout(_ context.Context, kind string, amount int64) {
	m.payouts.WithLabelValues(kind).Add(float64(amount))
}

func (m *PrometheusMetrics) RecordHeldBalance(_ context.Context, amount int64) {
	m.held.Set(float64(amount))
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)         {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordRejection(context.Context, string, string)                {}
func (NoOpMetrics) RecordInvariantFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordRoundResolved(context.Context, int, bool)                 {}
func (NoOpMetrics) RecordPayout(context.Context, string, int64)                    {}
func (NoOpMetrics) RecordHeldBalance(context.Context, int64)                       {}

var (
	_ RoundMetrics  = (*PrometheusMetrics)(nil)
	_ LedgerMetrics = (*PrometheusMetrics)(nil)
	_ RoundMetrics  = NoOpMetrics{}
	_ LedgerMetrics = NoOpMetrics{}
)
