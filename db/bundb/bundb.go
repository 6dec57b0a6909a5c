package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"

	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
	ledgermigrations "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories/migrations"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	roundmigrations "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/spinboard/config"
)

// DBService bundles the repositories that share one connection pool.
type DBService struct {
	RoundDB  rounddb.Repository
	LedgerDB ledgerdb.Repository
	db       *bun.DB
}

// GetDB returns the underlying database connection pool.
func (dbService *DBService) GetDB() *bun.DB {
	return dbService.db
}

// NewBunDBService opens the configured database and builds the repositories.
func NewBunDBService(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DBService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Initializing database", "driver", cfg.Driver)

	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db.RegisterModel((*rounddb.ResolvedRound)(nil), (*ledgerdb.Entry)(nil))

	return &DBService{
		RoundDB:  rounddb.NewRepository(db),
		LedgerDB: ledgerdb.NewRepository(db),
		db:       db,
	}, nil
}

// Open returns a bun.DB for cfg after checking the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	var db *bun.DB
	switch cfg.Driver {
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite":
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// SQLite allows one writer; a single connection keeps transactions serial.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrators returns one migrator per module. Each keeps its own bookkeeping
// tables so modules roll back independently.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"round": migrate.NewMigrator(db, roundmigrations.Migrations,
			migrate.WithTableName("round_migrations"),
			migrate.WithLocksTableName("round_migration_locks"),
		),
		"ledger": migrate.NewMigrator(db, ledgermigrations.Migrations,
			migrate.WithTableName("ledger_migrations"),
			migrate.WithLocksTableName("ledger_migration_locks"),
		),
	}
}

// MigrateAll initializes and runs every module's pending migrations.
func MigrateAll(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for name, migrator := range Migrators(db) {
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init migrations for %s: %w", name, err)
		}
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to lock migrations for %s: %w", name, err)
		}
		group, err := migrator.Migrate(ctx)
		unlockErr := migrator.Unlock(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", name, err)
		}
		if unlockErr != nil {
			return fmt.Errorf("failed to unlock migrations for %s: %w", name, unlockErr)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", "module", name)
		} else {
			logger.InfoContext(ctx, "Migrated module", "module", name, "group", group.String())
		}
	}
	return nil
}
