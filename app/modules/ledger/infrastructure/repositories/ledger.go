package ledgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ErrNoEntries is returned when InsertEntries is called with nothing to write.
var ErrNoEntries = errors.New("no ledger entries to insert")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new ledger repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// InsertEntries appends entries to the journal.
func (r *Impl) InsertEntries(ctx context.Context, db bun.IDB, entries []Entry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(&entries).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert ledger entries: %w", err)
	}
	return nil
}

// ListByRound returns every entry recorded against roundID.
func (r *Impl) ListByRound(ctx context.Context, db bun.IDB, roundID roundtypes.RoundID) ([]Entry, error) {
	db = r.resolveDB(db)
	var entries []Entry
	err := db.NewSelect().
		Model(&entries).
		Where("round_id = ?", roundID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Balance sums the journal into the amount still held in escrow.
func (r *Impl) Balance(ctx context.Context, db bun.IDB) (roundtypes.Amount, error) {
	db = r.resolveDB(db)
	var balance int64
	err := db.NewSelect().
		Model((*Entry)(nil)).
		ColumnExpr("COALESCE(SUM(CASE WHEN kind = ? THEN -amount ELSE amount END), 0)", ledgertypes.EntryPayout).
		Scan(ctx, &balance)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger balance: %w", err)
	}
	return roundtypes.Amount(balance), nil
}
