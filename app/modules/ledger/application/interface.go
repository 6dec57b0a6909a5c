package ledgerservice

import (
	"context"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// Service is the escrow ledger. It is the only component allowed to move funds.
type Service interface {
	// Escrow records amount paid in by from against roundID.
	Escrow(ctx context.Context, roundID roundtypes.RoundID, from roundtypes.Identity, amount roundtypes.Amount) error

	// Disburse pays every payout in order. Either all transfers settle or
	// every settled transfer is reversed and an error is returned.
	Disburse(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (ledgertypes.Settlement, error)

	// Revert reverses a settlement that could not be committed upstream and
	// returns its funds to escrow.
	Revert(ctx context.Context, settlement ledgertypes.Settlement) error

	// HeldBalance is the amount currently in escrow.
	HeldBalance() roundtypes.Amount

	// Restore reloads the held balance from the journal.
	Restore(ctx context.Context) (roundtypes.Amount, error)

	// Deposits lists the escrow entries journaled against roundID, oldest first.
	Deposits(ctx context.Context, roundID roundtypes.RoundID) ([]ledgertypes.Deposit, error)
}

// Transferer moves funds out of the ledger to an external account.
type Transferer interface {
	Transfer(ctx context.Context, transfer ledgertypes.Transfer) (ledgertypes.Receipt, error)
	Reverse(ctx context.Context, receipt ledgertypes.Receipt) error
}
