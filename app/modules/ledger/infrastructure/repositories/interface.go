package ledgerdb

import (
	"context"

	"github.com/uptrace/bun"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// Repository defines the contract for the ledger journal.
type Repository interface {
	// InsertEntries appends entries in a single statement.
	InsertEntries(ctx context.Context, db bun.IDB, entries []Entry) error

	// ListByRound returns a round's entries oldest first.
	ListByRound(ctx context.Context, db bun.IDB, roundID roundtypes.RoundID) ([]Entry, error)

	// Balance returns escrowed minus paid out plus reversed over the whole journal.
	Balance(ctx context.Context, db bun.IDB) (roundtypes.Amount, error)
}
