package rounddb

import (
	"context"

	"github.com/uptrace/bun"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// Totals summarizes history for engine bootstrap.
type Totals struct {
	Resolved  int64
	Fees      roundtypes.Amount
	LastRound roundtypes.RoundID
}

// Repository is the append-only round history.
//
// Error semantics:
//   - ErrDuplicateRound: Append was called twice for the same id
//   - ErrNotFound: Get found no resolved round with that id
//   - Other errors: infrastructure failures
type Repository interface {
	// Append stores a resolved round.
	Append(ctx context.Context, db bun.IDB, round roundtypes.ResolvedRound) error

	// Get returns a resolved round by id.
	Get(ctx context.Context, db bun.IDB, id roundtypes.RoundID) (roundtypes.ResolvedRound, error)

	// Totals returns the count, pooled fees and highest id of stored rounds.
	Totals(ctx context.Context, db bun.IDB) (Totals, error)
}
