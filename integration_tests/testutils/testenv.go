// Package testutils starts the containers the integration suites share.
package testutils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	natsmodule "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/db/bundb"
	"github.com/Black-And-White-Club/spinboard/integration_tests/containers"
	"github.com/Black-And-White-Club/spinboard/internal/eventbus"
)

// TestEnvironment holds one Postgres and one NATS container plus clients.
type TestEnvironment struct {
	PgContainer   *postgres.PostgresContainer
	NatsContainer *natsmodule.NATSContainer

	DSN       string
	NatsURL   string
	DB        *bun.DB
	NC        *nats.Conn
	JetStream jetstream.JetStream
}

// NewTestEnvironment starts the containers and connects to both.
func NewTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	env := &TestEnvironment{}

	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env.PgContainer, env.DSN = pg, dsn

	natsC, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Terminate(ctx)
		return nil, err
	}
	env.NatsContainer, env.NatsURL = natsC, natsURL

	db, err := bundb.Open(ctx, config.DatabaseConfig{Driver: "postgres", DSN: dsn})
	if err != nil {
		env.Terminate(ctx)
		return nil, err
	}
	env.DB = db

	nc, err := nats.Connect(natsURL, nats.Timeout(10*time.Second))
	if err != nil {
		env.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	env.NC = nc

	js, err := jetstream.New(nc)
	if err != nil {
		env.Terminate(ctx)
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	env.JetStream = js

	return env, nil
}

// Reset empties every table and the spinboard stream between tests.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	if err := bundb.MigrateAll(ctx, env.DB, nil); err != nil {
		return err
	}
	for _, table := range []string{"round_history", "ledger_entries"} {
		if _, err := env.DB.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return env.ResetJetStreamState(ctx, eventbus.StreamName)
}

// Terminate closes clients and stops whatever containers started.
func (env *TestEnvironment) Terminate(ctx context.Context) {
	if env.NC != nil {
		env.NC.Close()
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
	var started []testcontainers.Container
	if env.PgContainer != nil {
		started = append(started, env.PgContainer)
	}
	if env.NatsContainer != nil {
		started = append(started, env.NatsContainer)
	}
	for _, c := range started {
		if err := c.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}
}
