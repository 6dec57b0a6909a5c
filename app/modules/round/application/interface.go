package roundservice

import (
	"context"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// Result aliases keep the generic signatures readable.
type (
	JoinResult    = results.OperationResult[roundtypes.JoinReceipt, error]
	DrawResult    = results.OperationResult[roundtypes.DrawReceipt, error]
	ResolveResult = results.OperationResult[roundtypes.ResolvedRound, error]
	PlayersResult = results.OperationResult[[]roundtypes.PlayerEntry, error]
)

// JoinRequest is a paid request to enter the current round. A zero RoundID
// means "whatever round is current".
type JoinRequest struct {
	Identity roundtypes.Identity
	Paid     roundtypes.Amount
	RoundID  roundtypes.RoundID
}

// DrawRequest asks for the caller's draw in the current round.
type DrawRequest struct {
	Identity roundtypes.Identity
	RoundID  roundtypes.RoundID
}

// ForceResolveRequest asks to resolve the current round among the players
// that have drawn so far.
type ForceResolveRequest struct {
	Caller  roundtypes.Identity
	RoundID roundtypes.RoundID
}

// Service is the round engine surface. Mutations report caller mistakes as
// a Failure and infrastructure or invariant failures as the error.
type Service interface {
	Join(ctx context.Context, req JoinRequest) (JoinResult, error)
	Draw(ctx context.Context, req DrawRequest) (DrawResult, error)
	ForceResolve(ctx context.Context, req ForceResolveRequest) (ResolveResult, error)

	CurrentRound(ctx context.Context) roundtypes.RoundSnapshot
	PlayerInfo(ctx context.Context, identity roundtypes.Identity) roundtypes.PlayerInfo
	Stats(ctx context.Context) roundtypes.Stats
	GetRound(ctx context.Context, id roundtypes.RoundID) (ResolveResult, error)
	RoundPlayers(ctx context.Context, id roundtypes.RoundID) (PlayersResult, error)
}
