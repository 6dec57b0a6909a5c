package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating round_history table...")
			if _, err := db.NewCreateTable().Model((*rounddb.ResolvedRound)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("round_history table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping round_history table...")
			if _, err := db.NewDropTable().Model((*rounddb.ResolvedRound)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("round_history table dropped successfully!")
			return nil
		},
	)
}
