package roundservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// DefaultGuardWait bounds how long a mutation waits for the one in flight.
const DefaultGuardWait = 5 * time.Second

// guardKey marks a context as running inside a guarded mutation. The key
// is per guard so independent engines never see each other's marker.
type guardKey struct{ g *Guard }

// Guard authorizes and serializes the mutating surface of a Service. A call
// made with a context that is already inside a guarded mutation, such as
// from a wallet transfer during payout, is rejected instead of queued.
// Reentry is only recognised through that context: a callback that starts
// from a fresh context waits like any other caller and gets ErrGuardTimeout.
// Reads pass straight through.
type Guard struct {
	next     Service
	operator roundtypes.Identity
	sem      chan struct{}
	wait     time.Duration
	logger   *slog.Logger
	metrics  observability.RoundMetrics
}

// NewGuard wraps next. A non-positive wait uses DefaultGuardWait.
func NewGuard(next Service, operator roundtypes.Identity, wait time.Duration, logger *slog.Logger, metrics observability.RoundMetrics) *Guard {
	if wait <= 0 {
		wait = DefaultGuardWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		next:     next,
		operator: operator,
		sem:      make(chan struct{}, 1),
		wait:     wait,
		logger:   logger,
		metrics:  metrics,
	}
}

func (g *Guard) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	return guarded(g, ctx, "Join", req.Identity, func(ctx context.Context) (JoinResult, error) {
		return g.next.Join(ctx, req)
	})
}

func (g *Guard) Draw(ctx context.Context, req DrawRequest) (DrawResult, error) {
	return guarded(g, ctx, "Draw", req.Identity, func(ctx context.Context) (DrawResult, error) {
		return g.next.Draw(ctx, req)
	})
}

func (g *Guard) ForceResolve(ctx context.Context, req ForceResolveRequest) (ResolveResult, error) {
	if req.Caller == "" || req.Caller != g.operator {
		g.rejected(ctx, "ForceResolve", req.Caller, ErrUnauthorized)
		return reject[roundtypes.ResolvedRound](ErrUnauthorized), nil
	}
	return guarded(g, ctx, "ForceResolve", req.Caller, func(ctx context.Context) (ResolveResult, error) {
		return g.next.ForceResolve(ctx, req)
	})
}

func (g *Guard) CurrentRound(ctx context.Context) roundtypes.RoundSnapshot {
	return g.next.CurrentRound(ctx)
}

func (g *Guard) PlayerInfo(ctx context.Context, identity roundtypes.Identity) roundtypes.PlayerInfo {
	return g.next.PlayerInfo(ctx, identity)
}

func (g *Guard) Stats(ctx context.Context) roundtypes.Stats {
	return g.next.Stats(ctx)
}

func (g *Guard) GetRound(ctx context.Context, id roundtypes.RoundID) (ResolveResult, error) {
	return g.next.GetRound(ctx, id)
}

func (g *Guard) RoundPlayers(ctx context.Context, id roundtypes.RoundID) (PlayersResult, error) {
	return g.next.RoundPlayers(ctx, id)
}

// guarded runs fn holding the guard. The guard is released when fn returns
// or panics.
func guarded[S any](
	g *Guard,
	ctx context.Context,
	operationName string,
	identity roundtypes.Identity,
	fn func(ctx context.Context) (results.OperationResult[S, error], error),
) (results.OperationResult[S, error], error) {
	if identity == "" {
		g.rejected(ctx, operationName, identity, ErrUnauthorized)
		return reject[S](fmt.Errorf("%w: missing caller identity", ErrUnauthorized)), nil
	}

	if holder, ok := ctx.Value(guardKey{g}).(string); ok {
		err := fmt.Errorf("%w: %s called during %s", ErrReentrancyDetected, operationName, holder)
		g.rejected(ctx, operationName, identity, err)
		return reject[S](err), nil
	}

	timer := time.NewTimer(g.wait)
	defer timer.Stop()
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return results.OperationResult[S, error]{}, ctx.Err()
	case <-timer.C:
		return results.OperationResult[S, error]{}, fmt.Errorf("%w after %s", ErrGuardTimeout, g.wait)
	}
	defer func() { <-g.sem }()

	return fn(context.WithValue(ctx, guardKey{g}, operationName))
}

func (g *Guard) rejected(ctx context.Context, operationName string, identity roundtypes.Identity, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrReentrancyDetected) {
		level = slog.LevelError
	}
	g.logger.Log(ctx, level, "Guard rejected call",
		"operation", operationName,
		"identity", identity.String(),
		"code", Code(err),
		"error", err,
	)
	if g.metrics != nil {
		g.metrics.RecordRejection(ctx, operationName, Code(err))
	}
}

var _ Service = (*Guard)(nil)
