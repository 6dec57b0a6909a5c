// Package testutils holds helpers shared by package tests.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// NewSQLiteDB opens a private in-memory SQLite database for t and creates a
// table for every model. It is closed when the test ends.
func NewSQLiteDB(t *testing.T, models ...any) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(context.Background()); err != nil {
			t.Fatalf("create table for %T: %v", m, err)
		}
	}
	return db
}
