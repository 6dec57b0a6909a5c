package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg, "test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "Join")
	m.RecordOperationAttempt(ctx, "Join")
	m.RecordOperationSuccess(ctx, "Join")
	m.RecordOperationFailure(ctx, "Join", "wrong_fee")
	m.RecordOperationDuration(ctx, "Join", 10*time.Millisecond)
	m.RecordRejection(ctx, "Join", "wrong_fee")
	m.RecordRoundResolved(ctx, 3, false)
	m.RecordRoundResolved(ctx, 2, true)
	m.RecordPayout(ctx, "winner", 50)
	m.RecordPayout(ctx, "operator", 50)
	m.RecordHeldBalance(ctx, 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("Join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("Join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Join", "wrong_fee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("Join", "wrong_fee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolved.WithLabelValues("draw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolved.WithLabelValues("force")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.payouts.WithLabelValues("winner")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.held))

	t.Run("double registration fails", func(t *testing.T) {
		_, err := NewPrometheusMetrics(reg, "test")
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&buf, "warn", "json").Info("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, "debug", "text").Debug("shown", "k", "v")
	assert.True(t, strings.Contains(buf.String(), "k=v"))
}

func TestInitWithoutExporter(t *testing.T) {
	obs, err := Init(context.Background(), Config{ServiceName: "spinboard", LogLevel: "error"})
	require.NoError(t, err)
	assert.NotNil(t, obs.Tracer)
	assert.NoError(t, obs.Shutdown(context.Background()))
}
