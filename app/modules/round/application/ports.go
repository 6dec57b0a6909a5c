package roundservice

import (
	"context"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// EntropySource produces a draw in [1, BoardRange] for a draw context.
type EntropySource interface {
	Draw(ctx context.Context, dc roundtypes.DrawContext) (roundtypes.DrawValue, error)
}

// Ledger is the part of the escrow ledger the engine drives.
type Ledger interface {
	Escrow(ctx context.Context, roundID roundtypes.RoundID, from roundtypes.Identity, amount roundtypes.Amount) error
	Disburse(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (ledgertypes.Settlement, error)
	Revert(ctx context.Context, settlement ledgertypes.Settlement) error
	Restore(ctx context.Context) (roundtypes.Amount, error)
	Deposits(ctx context.Context, roundID roundtypes.RoundID) ([]ledgertypes.Deposit, error)
}

// Notifier publishes state-change notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, topic string, payload any) error
}
