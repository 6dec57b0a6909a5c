package ledgerservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	ledgerdb "github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/repositories"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/invariant"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// LedgerService implements the Service interface.
type LedgerService struct {
	repo       ledgerdb.Repository
	transferer Transferer
	logger     *slog.Logger
	metrics    observability.LedgerMetrics
	tracer     trace.Tracer
	db         *bun.DB
	clock      func() time.Time

	mu   sync.Mutex
	held roundtypes.Amount
}

// NewLedgerService creates a new LedgerService with an empty escrow.
func NewLedgerService(
	repo ledgerdb.Repository,
	transferer Transferer,
	logger *slog.Logger,
	metrics observability.LedgerMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		repo:       repo,
		transferer: transferer,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
		clock:      time.Now,
	}
}

// HeldBalance returns the amount currently in escrow.
func (s *LedgerService) HeldBalance() roundtypes.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// Escrow journals the deposit, then adds it to the held balance.
func (s *LedgerService) Escrow(ctx context.Context, roundID roundtypes.RoundID, from roundtypes.Identity, amount roundtypes.Amount) error {
	result, err := withTelemetry(s, ctx, "Escrow", from.String(), func(ctx context.Context) (results.OperationResult[roundtypes.Amount, error], error) {
		if amount <= 0 {
			return results.FailureResult[roundtypes.Amount, error](fmt.Errorf("%w: escrow of %d", ErrInvalidAmount, amount)), nil
		}

		entry := ledgerdb.Entry{
			ID:        uuid.New(),
			RoundID:   roundID,
			Kind:      ledgertypes.EntryEscrow,
			Account:   from,
			Amount:    amount,
			CreatedAt: s.clock(),
		}
		if err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
			return s.repo.InsertEntries(ctx, db, []ledgerdb.Entry{entry})
		}); err != nil {
			return results.OperationResult[roundtypes.Amount, error]{}, err
		}

		return results.SuccessResult[roundtypes.Amount, error](s.adjustHeld(ctx, amount)), nil
	})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// Disburse pays out in order and journals the settlement. Any failure after
// the first settled transfer reverses what already settled, newest first.
func (s *LedgerService) Disburse(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (ledgertypes.Settlement, error) {
	identifier := fmt.Sprintf("round-%d", roundID)
	result, err := withTelemetry(s, ctx, "Disburse", identifier, func(ctx context.Context) (results.OperationResult[ledgertypes.Settlement, error], error) {
		return s.disburseLogic(ctx, roundID, payouts)
	})
	if err != nil {
		return ledgertypes.Settlement{}, err
	}
	if result.IsFailure() {
		return ledgertypes.Settlement{}, *result.Failure
	}
	return *result.Success, nil
}

func (s *LedgerService) disburseLogic(ctx context.Context, roundID roundtypes.RoundID, payouts []roundtypes.Payout) (results.OperationResult[ledgertypes.Settlement, error], error) {
	var total roundtypes.Amount
	for _, p := range payouts {
		if p.Amount < 0 {
			return results.OperationResult[ledgertypes.Settlement, error]{}, invariant.Wrap("Disburse", fmt.Errorf("%w: payout of %d to %s", ErrInvalidAmount, p.Amount, p.Recipient))
		}
		total += p.Amount
	}
	if held := s.HeldBalance(); total > held {
		if s.metrics != nil {
			s.metrics.RecordInvariantFailure(ctx, "Disburse")
		}
		return results.OperationResult[ledgertypes.Settlement, error]{}, invariant.Wrap("Disburse", fmt.Errorf("%w: requested %d, held %d", ErrInsufficientEscrow, total, held))
	}

	settlement := ledgertypes.Settlement{RoundID: roundID}
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		receipt, err := s.transferer.Transfer(ctx, ledgertypes.Transfer{
			RoundID:   roundID,
			Recipient: p.Recipient,
			Amount:    p.Amount,
			Kind:      p.Kind,
		})
		if err != nil {
			transferErr := fmt.Errorf("%w: %s payout to %s: %v", ErrTransferFailed, p.Kind, p.Recipient, err)
			if compErr := s.compensate(ctx, settlement.Receipts); compErr != nil {
				return results.OperationResult[ledgertypes.Settlement, error]{}, errors.Join(transferErr, compErr)
			}
			return results.OperationResult[ledgertypes.Settlement, error]{}, transferErr
		}
		settlement.Receipts = append(settlement.Receipts, receipt)
	}

	entries := make([]ledgerdb.Entry, 0, len(settlement.Receipts))
	for _, r := range settlement.Receipts {
		entries = append(entries, ledgerdb.Entry{
			ID:        uuid.New(),
			RoundID:   roundID,
			Kind:      ledgertypes.EntryPayout,
			Account:   r.Transfer.Recipient,
			Amount:    r.Transfer.Amount,
			Reference: r.ID,
			CreatedAt: s.clock(),
		})
	}
	if len(entries) > 0 {
		if err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
			return s.repo.InsertEntries(ctx, db, entries)
		}); err != nil {
			if compErr := s.compensate(ctx, settlement.Receipts); compErr != nil {
				return results.OperationResult[ledgertypes.Settlement, error]{}, errors.Join(err, compErr)
			}
			return results.OperationResult[ledgertypes.Settlement, error]{}, fmt.Errorf("failed to journal disbursement: %w", err)
		}
	}

	s.adjustHeld(ctx, -total)
	if s.metrics != nil {
		for _, r := range settlement.Receipts {
			s.metrics.RecordPayout(ctx, string(r.Transfer.Kind), int64(r.Transfer.Amount))
		}
	}
	return results.SuccessResult[ledgertypes.Settlement, error](settlement), nil
}

// Revert reverses a committed settlement and restores its funds to escrow.
func (s *LedgerService) Revert(ctx context.Context, settlement ledgertypes.Settlement) error {
	identifier := fmt.Sprintf("round-%d", settlement.RoundID)
	_, err := withTelemetry(s, ctx, "Revert", identifier, func(ctx context.Context) (results.OperationResult[roundtypes.Amount, error], error) {
		if err := s.compensate(ctx, settlement.Receipts); err != nil {
			return results.OperationResult[roundtypes.Amount, error]{}, err
		}

		entries := make([]ledgerdb.Entry, 0, len(settlement.Receipts))
		for _, r := range settlement.Receipts {
			entries = append(entries, ledgerdb.Entry{
				ID:        uuid.New(),
				RoundID:   settlement.RoundID,
				Kind:      ledgertypes.EntryReversal,
				Account:   r.Transfer.Recipient,
				Amount:    r.Transfer.Amount,
				Reference: r.ID,
				CreatedAt: s.clock(),
			})
		}
		if len(entries) > 0 {
			if err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
				return s.repo.InsertEntries(ctx, db, entries)
			}); err != nil {
				// Funds are already back; the journal gap is logged for reconciliation.
				s.logger.ErrorContext(ctx, "Failed to journal reversal",
					"round_id", settlement.RoundID,
					"error", err,
				)
			}
		}

		return results.SuccessResult[roundtypes.Amount, error](s.adjustHeld(ctx, settlement.Total())), nil
	})
	return err
}

// Restore replaces the in-memory held balance with the journal's. It runs once
// at startup, before any escrow.
func (s *LedgerService) Restore(ctx context.Context) (roundtypes.Amount, error) {
	res, err := withTelemetry(s, ctx, "Restore", "journal", func(ctx context.Context) (results.OperationResult[roundtypes.Amount, error], error) {
		balance, err := s.repo.Balance(ctx, nil)
		if err != nil {
			return results.OperationResult[roundtypes.Amount, error]{}, err
		}
		if balance < 0 {
			if s.metrics != nil {
				s.metrics.RecordInvariantFailure(ctx, "Restore")
			}
			return results.OperationResult[roundtypes.Amount, error]{}, invariant.Wrap("Restore", fmt.Errorf("%w: journal balance %d", ErrInsufficientEscrow, balance))
		}
		s.mu.Lock()
		s.held = balance
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordHeldBalance(ctx, int64(balance))
		}
		return results.SuccessResult[roundtypes.Amount, error](balance), nil
	})
	if err != nil {
		return 0, err
	}
	return *res.Success, nil
}

// Deposits returns the escrow entries of roundID in journal order.
func (s *LedgerService) Deposits(ctx context.Context, roundID roundtypes.RoundID) ([]ledgertypes.Deposit, error) {
	entries, err := s.repo.ListByRound(ctx, nil, roundID)
	if err != nil {
		return nil, err
	}
	deposits := make([]ledgertypes.Deposit, 0, len(entries))
	for _, e := range entries {
		if e.Kind != ledgertypes.EntryEscrow {
			continue
		}
		deposits = append(deposits, ledgertypes.Deposit{
			RoundID: e.RoundID,
			From:    e.Account,
			Amount:  e.Amount,
			At:      e.CreatedAt.UTC(),
		})
	}
	return deposits, nil
}

// compensate reverses receipts newest first. A reversal failure leaves funds
// outside the ledger and is reported as an invariant failure.
func (s *LedgerService) compensate(ctx context.Context, receipts []ledgertypes.Receipt) error {
	var errs []error
	for i := len(receipts) - 1; i >= 0; i-- {
		r := receipts[i]
		if err := s.transferer.Reverse(ctx, r); err != nil {
			s.logger.ErrorContext(ctx, "Failed to reverse transfer",
				"receipt_id", r.ID.String(),
				"recipient", r.Transfer.Recipient.String(),
				"amount", int64(r.Transfer.Amount),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%w: receipt %s: %v", ErrCompensationFailed, r.ID, err))
		}
	}
	if len(errs) > 0 {
		if s.metrics != nil {
			s.metrics.RecordInvariantFailure(ctx, "Compensate")
		}
		return invariant.Wrap("Compensate", errors.Join(errs...))
	}
	return nil
}

func (s *LedgerService) adjustHeld(ctx context.Context, delta roundtypes.Amount) roundtypes.Amount {
	s.mu.Lock()
	s.held += delta
	held := s.held
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordHeldBalance(ctx, int64(held))
	}
	return held
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LedgerService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "ledger."+operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				"identifier", identifier,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "panic")
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		reason := "error"
		if invariant.Is(err) {
			reason = "invariant"
		}
		s.logger.ErrorContext(ctx, "Operation failed with error",
			"operation", operationName,
			"identifier", identifier,
			"invariant", reason == "invariant",
			"error", wrappedErr,
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, reason)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			"operation", operationName,
			"identifier", identifier,
			"failure_payload", *result.Failure,
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "rejected")
		}
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}
	return result, nil
}

// runInTx runs fn in a transaction when a database is configured.
func runInTx(
	s *LedgerService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) error,
) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

var _ Service = (*LedgerService)(nil)
