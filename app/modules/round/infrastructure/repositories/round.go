package rounddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

var (
	// ErrNotFound is returned when a round is not in history.
	ErrNotFound = errors.New("round not found")

	// ErrDuplicateRound is returned when a round id is appended twice.
	ErrDuplicateRound = errors.New("round already recorded")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new round history repository.
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

// Append inserts round unless its id is already stored. Callers should pass
// a transaction so the existence check and insert are atomic.
func (r *Impl) Append(ctx context.Context, db bun.IDB, round roundtypes.ResolvedRound) error {
	db = r.resolveDB(db)

	exists, err := db.NewSelect().
		Model((*ResolvedRound)(nil)).
		Where("id = ?", round.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check round history: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrDuplicateRound, round.ID)
	}

	if _, err := db.NewInsert().Model(toDBModel(round)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append round %d: %w", round.ID, err)
	}
	return nil
}

// Get retrieves a resolved round by id.
func (r *Impl) Get(ctx context.Context, db bun.IDB, id roundtypes.RoundID) (roundtypes.ResolvedRound, error) {
	db = r.resolveDB(db)
	model := new(ResolvedRound)
	err := db.NewSelect().
		Model(model).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return roundtypes.ResolvedRound{}, ErrNotFound
		}
		return roundtypes.ResolvedRound{}, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return model.toDomain(), nil
}

// Totals aggregates the history table.
func (r *Impl) Totals(ctx context.Context, db bun.IDB) (Totals, error) {
	db = r.resolveDB(db)
	var (
		count  int64
		fees   int64
		lastID int64
	)
	err := db.NewSelect().
		Model((*ResolvedRound)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(total_pool), 0)").
		ColumnExpr("COALESCE(MAX(id), 0)").
		Scan(ctx, &count, &fees, &lastID)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to total round history: %w", err)
	}
	return Totals{
		Resolved:  count,
		Fees:      roundtypes.Amount(fees),
		LastRound: roundtypes.RoundID(lastID),
	}, nil
}
