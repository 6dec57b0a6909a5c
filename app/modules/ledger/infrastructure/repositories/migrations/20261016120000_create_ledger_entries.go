package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating ledger_entries table...")
			if _, err := db.NewCreateTable().Model((*ledgerdb.Entry)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*ledgerdb.Entry)(nil)).
				Index("ledger_entries_round_id_idx").
				Column("round_id").
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
			fmt.Println("ledger_entries table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping ledger_entries table...")
			if _, err := db.NewDropTable().Model((*ledgerdb.Entry)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("ledger_entries table dropped successfully!")
			return nil
		},
	)
}
