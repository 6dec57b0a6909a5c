package roundservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/internal/invariant"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// Settings are the deployment constants of one engine.
type Settings struct {
	EntryFee roundtypes.Amount
	Operator roundtypes.Identity
}

// engineState is published whole after every committed transition and never
// mutated afterwards.
type engineState struct {
	round    roundtypes.Round
	resolved int64
	fees     roundtypes.Amount
	drawSeq  uint64
}

func (st *engineState) clone() *engineState {
	next := *st
	next.round = st.round.Clone()
	return &next
}

type notification struct {
	topic   string
	payload any
}

// RoundService implements the Service interface.
type RoundService struct {
	settings Settings
	repo     rounddb.Repository
	ledger   Ledger
	entropy  EntropySource
	notifier Notifier
	logger   *slog.Logger
	metrics  observability.RoundMetrics
	tracer   trace.Tracer
	db       *bun.DB
	clock    func() time.Time

	mu    sync.Mutex
	state atomic.Pointer[engineState]
}

// NewRoundService creates an engine with round 1 open. Call Bootstrap to
// continue from stored history instead.
func NewRoundService(
	settings Settings,
	repo rounddb.Repository,
	ledger Ledger,
	entropy EntropySource,
	notifier Notifier,
	logger *slog.Logger,
	metrics observability.RoundMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RoundService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RoundService{
		settings: settings,
		repo:     repo,
		ledger:   ledger,
		entropy:  entropy,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		db:       db,
		clock:    time.Now,
	}
	s.state.Store(&engineState{round: roundtypes.NewRound(1, s.clock().UTC())})
	return s
}

// Bootstrap restores counters from history and rebuilds the round after the
// last resolved one from its journaled escrows. Draws are not journaled, so
// restored players draw again.
func (s *RoundService) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals, err := s.repo.Totals(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load round history totals: %w", err)
	}
	held, err := s.ledger.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore escrow balance: %w", err)
	}

	round := roundtypes.NewRound(totals.LastRound+1, s.clock().UTC())
	deposits, err := s.ledger.Deposits(ctx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to load escrows of round %d: %w", round.ID, err)
	}
	if len(deposits) > 0 {
		round.OpenedAt = deposits[0].At
	}
	for _, d := range deposits {
		if round.IndexOf(d.From) >= 0 || round.AvailableSlots() == 0 {
			return s.bootstrapFailure(ctx, invariant.Errorf("Bootstrap", "round %d has an unexpected escrow from %s", round.ID, d.From))
		}
		round.Players = append(round.Players, roundtypes.Participant{Identity: d.From, JoinedAt: d.At})
		round.PooledAmount += d.Amount
	}
	if err := s.checkPool("Bootstrap", round); err != nil {
		return s.bootstrapFailure(ctx, err)
	}
	if round.PooledAmount != held {
		return s.bootstrapFailure(ctx, invariant.Errorf("Bootstrap", "held balance %d does not match round %d pool %d", held, round.ID, round.PooledAmount))
	}

	s.state.Store(&engineState{
		round:    round,
		resolved: totals.Resolved,
		fees:     totals.Fees + round.PooledAmount,
	})
	s.logger.InfoContext(ctx, "Round engine bootstrapped",
		"round_id", int64(round.ID),
		"rounds_resolved", totals.Resolved,
		"restored_players", len(round.Players),
		"held_balance", int64(held),
	)
	return nil
}

func (s *RoundService) bootstrapFailure(ctx context.Context, err error) error {
	if s.metrics != nil {
		s.metrics.RecordInvariantFailure(ctx, "Bootstrap")
	}
	s.logger.ErrorContext(ctx, "Round engine bootstrap failed", "error", err)
	return err
}

// current returns the published state. Callers must not mutate it.
func (s *RoundService) current() *engineState {
	return s.state.Load()
}

// checkRound rejects commands aimed at a round other than the open one.
func checkRound(round roundtypes.Round, requested roundtypes.RoundID) error {
	if requested != 0 && requested != round.ID {
		return fmt.Errorf("%w: requested %d, current %d", ErrRoundNotCurrent, requested, round.ID)
	}
	return nil
}

func (s *RoundService) publish(ctx context.Context, events []notification) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := s.notifier.Notify(ctx, ev.topic, ev.payload); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish notification",
				"topic", ev.topic,
				"error", err,
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any] func(ctx context.Context) (results.OperationResult[S, error], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any](
	s *RoundService,
	ctx context.Context,
	operationName string,
	identity roundtypes.Identity,
	op operationFunc[S],
) (result results.OperationResult[S, error], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "round."+operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identity", identity.String()),
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
				"operation", operationName,
				"identity", identity.String(),
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "panic")
			}
			span.RecordError(err)
			result = results.OperationResult[S, error]{}
		}
	}()

	s.logger.InfoContext(ctx, "Operation started",
		"operation", operationName,
		"identity", identity.String(),
	)

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		kind := Classify(err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			"operation", operationName,
			"identity", identity.String(),
			"kind", string(kind),
			"error", wrappedErr,
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, string(kind))
			if kind == KindInvariant {
				s.metrics.RecordInvariantFailure(ctx, operationName)
			}
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		failure := *result.Failure
		s.logger.WarnContext(ctx, "Operation rejected",
			"operation", operationName,
			"identity", identity.String(),
			"code", Code(failure),
			"reason", failure.Error(),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "rejected")
			s.metrics.RecordRejection(ctx, operationName, Code(failure))
		}
		span.SetAttributes(attribute.String("rejection", Code(failure)))
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}
	return result, nil
}

// runInTx runs fn in a transaction when a database is configured.
func runInTx(
	s *RoundService,
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

// reject builds a Failure result for a caller mistake.
func reject[S any](err error) results.OperationResult[S, error] {
	return results.FailureResult[S, error](err)
}

// checkPool verifies the escrow invariant of an open round.
func (s *RoundService) checkPool(op string, round roundtypes.Round) error {
	want := roundtypes.Amount(len(round.Players)) * s.settings.EntryFee
	if round.PooledAmount != want {
		return invariant.Errorf(op, "round %d pool is %d, expected %d for %d players",
			round.ID, round.PooledAmount, want, len(round.Players))
	}
	return nil
}

var _ Service = (*RoundService)(nil)
