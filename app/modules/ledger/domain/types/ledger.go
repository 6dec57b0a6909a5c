package ledgertypes

import (
	"time"

	"github.com/google/uuid"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// EntryKind classifies a journal entry.
type EntryKind string

const (
	EntryEscrow   EntryKind = "escrow"
	EntryPayout   EntryKind = "payout"
	EntryReversal EntryKind = "reversal"
)

// Transfer is one outgoing fund movement.
type Transfer struct {
	RoundID   roundtypes.RoundID    `json:"round_id"`
	Recipient roundtypes.Identity   `json:"recipient"`
	Amount    roundtypes.Amount     `json:"amount"`
	Kind      roundtypes.PayoutKind `json:"kind"`
}

// Receipt proves a transfer settled.
type Receipt struct {
	ID        uuid.UUID `json:"id"`
	Transfer  Transfer  `json:"transfer"`
	SettledAt time.Time `json:"settled_at"`
}

// Deposit is one escrowed entry fee, as journaled.
type Deposit struct {
	RoundID roundtypes.RoundID  `json:"round_id"`
	From    roundtypes.Identity `json:"from"`
	Amount  roundtypes.Amount   `json:"amount"`
	At      time.Time           `json:"at"`
}

// Settlement is the set of receipts for one disbursement, in payment order.
type Settlement struct {
	RoundID  roundtypes.RoundID `json:"round_id"`
	Receipts []Receipt          `json:"receipts"`
}

// Total sums the settled amounts.
func (s Settlement) Total() roundtypes.Amount {
	var total roundtypes.Amount
	for _, r := range s.Receipts {
		total += r.Transfer.Amount
	}
	return total
}
