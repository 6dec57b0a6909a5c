package roundrouter

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/jwt"
	ledgerservice "github.com/Black-And-White-Club/spinboard/app/modules/ledger/application"
	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/wallet"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/entropy"
	roundhandlers "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/handlers"
	roundnotifier "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/notifier"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
	"github.com/Black-And-White-Club/spinboard/internal/testutils"
)

const fee roundtypes.Amount = 50

func publish(t *testing.T, pub message.Publisher, topic, correlationID string, payload any) {
	t.Helper()
	msg, err := handlerwrapper.NewMessage(nil, handlerwrapper.Result{Topic: topic, Payload: payload})
	require.NoError(t, err)
	middleware.SetCorrelationID(correlationID, msg)
	require.NoError(t, pub.Publish(topic, msg))
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRoundRouter_CommandsEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()
	tracer := noop.NewTracerProvider().Tracer("test")
	wmLogger := watermill.NewSlogLogger(logger)
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
	defer pubsub.Close()

	db := testutils.NewSQLiteDB(t, (*ledgerdb.Entry)(nil), (*rounddb.ResolvedRound)(nil))
	w := wallet.NewMemory()
	ledger := ledgerservice.NewLedgerService(ledgerdb.NewRepository(db), w, logger, observability.NoOpMetrics{}, tracer, db)
	source, err := entropy.NewHashSource([]byte("router-test"))
	require.NoError(t, err)
	engine := roundservice.NewRoundService(
		roundservice.Settings{EntryFee: fee, Operator: "house"},
		rounddb.NewRepository(db), ledger, source, roundnotifier.New(pubsub, logger),
		logger, observability.NoOpMetrics{}, tracer, db,
	)
	guard := roundservice.NewGuard(engine, "house", time.Second, logger, observability.NoOpMetrics{})

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	require.NoError(t, err)
	router.AddMiddleware(middleware.CorrelationID, middleware.Recoverer)

	auth := authservice.NewService(
		authjwt.NewProvider("router-test-secret-at-least-32-chars!"),
		authservice.Config{DefaultTTL: time.Hour, Operator: "house"},
		logger, tracer,
	)
	token := func(identity string) string {
		resp, err := auth.IssueToken(ctx, identity, authdomain.RolePlayer)
		require.NoError(t, err)
		return resp.Token
	}

	rr := NewRoundRouter(logger, router, pubsub, pubsub, tracer, observability.NoOpMetrics{}, prometheus.NewRegistry())
	require.NoError(t, rr.Configure(ctx, roundhandlers.NewRoundHandlers(guard, auth, logger)))

	joined, err := pubsub.Subscribe(ctx, roundevents.JoinAcceptedV1)
	require.NoError(t, err)
	rejected, err := pubsub.Subscribe(ctx, roundevents.JoinRejectedV1)
	require.NoError(t, err)
	drawn, err := pubsub.Subscribe(ctx, roundevents.DrawAcceptedV1)
	require.NoError(t, err)
	resolved, err := pubsub.Subscribe(ctx, roundevents.RoundResolvedV1)
	require.NoError(t, err)

	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()
	defer rr.Close()

	publish(t, pubsub, roundevents.JoinRequestedV1, "c-alice", roundevents.JoinRequestedPayloadV1{Token: token("alice"), Amount: fee})
	msg := receive(t, joined)
	assert.Equal(t, "c-alice", middleware.MessageCorrelationID(msg))

	publish(t, pubsub, roundevents.JoinRequestedV1, "c-cheap", roundevents.JoinRequestedPayloadV1{Token: token("bob"), Amount: fee - 1})
	msg = receive(t, rejected)
	var rejection roundevents.RejectedPayloadV1
	require.NoError(t, json.Unmarshal(msg.Payload, &rejection))
	assert.Equal(t, "WrongFee", rejection.Code)
	assert.Equal(t, "c-cheap", middleware.MessageCorrelationID(msg))

	publish(t, pubsub, roundevents.JoinRequestedV1, "c-forged", roundevents.JoinRequestedPayloadV1{Identity: "bob", Amount: fee})
	msg = receive(t, rejected)
	require.NoError(t, json.Unmarshal(msg.Payload, &rejection))
	assert.Equal(t, "Unauthorized", rejection.Code)

	publish(t, pubsub, roundevents.JoinRequestedV1, "c-bob", roundevents.JoinRequestedPayloadV1{Token: token("bob"), Amount: fee})
	receive(t, joined)

	publish(t, pubsub, roundevents.DrawRequestedV1, "c-d1", roundevents.DrawRequestedPayloadV1{Token: token("alice")})
	receive(t, drawn)
	publish(t, pubsub, roundevents.DrawRequestedV1, "c-d2", roundevents.DrawRequestedPayloadV1{Token: token("bob"), Identity: "bob", RoundID: 1})
	receive(t, drawn)

	msg = receive(t, resolved)
	var payload roundevents.RoundResolvedPayloadV1
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.EqualValues(t, 1, payload.RoundID)
	assert.Equal(t, fee, payload.TotalPrize)
	assert.Equal(t, "c-d2", middleware.MessageCorrelationID(msg), "notifications carry the triggering command's correlation id")

	assert.Equal(t, fee, w.Balance(payload.Winner))
	assert.Equal(t, fee, w.Balance("house"))
	assert.EqualValues(t, 2, guard.CurrentRound(ctx).ID)
}
