package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun"

	ledgerservice "github.com/Black-And-White-Club/spinboard/app/modules/ledger/application"
	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/wallet"
	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// Module represents the ledger module.
type Module struct {
	LedgerService *ledgerservice.LedgerService
	Transferer    ledgerservice.Transferer
	config        *config.Config
	observability *observability.Observability
	cancelFunc    context.CancelFunc
}

// NewLedgerModule creates the ledger and the transferer selected by
// wallet.mode. The NATS wallet needs nc.
func NewLedgerModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	repo ledgerdb.Repository,
	db *bun.DB,
	nc *nats.Conn,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "ledger.NewLedgerModule called", "wallet_mode", cfg.Wallet.Mode)

	var transferer ledgerservice.Transferer
	switch cfg.Wallet.Mode {
	case "nats":
		if nc == nil {
			return nil, fmt.Errorf("wallet mode nats requires a NATS connection")
		}
		transferer = wallet.NewNATS(nc, cfg.Wallet.TransferSubject, cfg.Wallet.ReverseSubject, cfg.Wallet.Timeout)
	case "memory":
		transferer = wallet.NewMemory()
	default:
		return nil, fmt.Errorf("unsupported wallet mode %q", cfg.Wallet.Mode)
	}

	service := ledgerservice.NewLedgerService(repo, transferer, logger, obs.LedgerMetrics, obs.Tracer, db)

	return &Module{
		LedgerService: service,
		Transferer:    transferer,
		config:        cfg,
		observability: obs,
	}, nil
}

// Run starts the ledger module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting ledger module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Ledger module goroutine stopped",
		"held_balance", int64(m.LedgerService.HeldBalance()),
	)
}

// Close stops the ledger module.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping ledger module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	logger.Info("Ledger module stopped")
	return nil
}
