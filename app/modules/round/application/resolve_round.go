package roundservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/internal/invariant"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// ForceResolve resolves the current round among the players that have drawn.
// Players that never drew cannot win but their fees stay in the pool.
// Operator authorization is enforced by Guard.
func (s *RoundService) ForceResolve(ctx context.Context, req ForceResolveRequest) (ResolveResult, error) {
	var events []notification
	result, err := withTelemetry(s, ctx, "ForceResolve", req.Caller, func(ctx context.Context) (ResolveResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		cur := s.current()
		round := cur.round
		if err := checkRound(round, req.RoundID); err != nil {
			return reject[roundtypes.ResolvedRound](err), nil
		}
		if !round.CanStartDrawing() {
			return reject[roundtypes.ResolvedRound](fmt.Errorf("%w: %d of %d joined", ErrNotEnoughPlayers, len(round.Players), roundtypes.MinPlayers)), nil
		}
		if round.DrawnCount() == 0 {
			return reject[roundtypes.ResolvedRound](fmt.Errorf("%w: nobody has drawn", ErrNotEnoughPlayers)), nil
		}

		record, next, err := s.resolve(ctx, "ForceResolve", cur.clone(), true)
		if err != nil {
			return ResolveResult{}, err
		}
		s.state.Store(next)
		events = resolutionEvents(record)
		return results.SuccessResult[roundtypes.ResolvedRound, error](record), nil
	})
	if err == nil && result.IsSuccess() {
		s.publish(ctx, events)
	}
	return result, err
}

// resolve pays out st's round, records it and returns the state with the next
// round open. st is not published; on error nothing has changed.
func (s *RoundService) resolve(ctx context.Context, op string, st *engineState, forced bool) (roundtypes.ResolvedRound, *engineState, error) {
	round := st.round
	if err := s.checkPool(op, round); err != nil {
		return roundtypes.ResolvedRound{}, nil, err
	}

	idx, ok := roundtypes.SelectWinner(round.Players)
	if !ok {
		return roundtypes.ResolvedRound{}, nil, invariant.Errorf(op, "round %d has no eligible winner", round.ID)
	}
	winner := round.Players[idx]

	winnerShare, operatorShare := roundtypes.SplitPool(round.PooledAmount)
	if winnerShare+operatorShare != round.PooledAmount {
		return roundtypes.ResolvedRound{}, nil, invariant.Errorf(op, "shares %d+%d do not sum to pool %d", winnerShare, operatorShare, round.PooledAmount)
	}

	settlement, err := s.ledger.Disburse(ctx, round.ID, []roundtypes.Payout{
		{Recipient: winner.Identity, Amount: winnerShare, Kind: roundtypes.PayoutWinner},
		{Recipient: s.settings.Operator, Amount: operatorShare, Kind: roundtypes.PayoutOperator},
	})
	if err != nil {
		return roundtypes.ResolvedRound{}, nil, fmt.Errorf("failed to disburse round %d: %w", round.ID, err)
	}

	now := s.clock().UTC()
	record := roundtypes.ResolvedRound{
		ID:            round.ID,
		Players:       round.Clone().Players,
		TotalPool:     round.PooledAmount,
		WinnerShare:   winnerShare,
		OperatorShare: operatorShare,
		Winner:        winner.Identity,
		WinningValue:  winner.DrawValue,
		Operator:      s.settings.Operator,
		Forced:        forced,
		OpenedAt:      round.OpenedAt,
		ResolvedAt:    now,
	}

	if err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
		return s.repo.Append(ctx, db, record)
	}); err != nil {
		if errors.Is(err, rounddb.ErrDuplicateRound) {
			err = invariant.Wrap(op, err)
		}
		if revertErr := s.ledger.Revert(ctx, settlement); revertErr != nil {
			return roundtypes.ResolvedRound{}, nil, errors.Join(err, revertErr)
		}
		return roundtypes.ResolvedRound{}, nil, fmt.Errorf("failed to record round %d: %w", round.ID, err)
	}

	next := &engineState{
		round:    roundtypes.NewRound(round.ID+1, now),
		resolved: st.resolved + 1,
		fees:     st.fees,
		drawSeq:  st.drawSeq,
	}
	if s.metrics != nil {
		s.metrics.RecordRoundResolved(ctx, len(round.Players), forced)
	}
	s.logger.InfoContext(ctx, "Round resolved",
		"round_id", int64(round.ID),
		"winner", winner.Identity.String(),
		"winning_value", int(winner.DrawValue),
		"pool", int64(round.PooledAmount),
		"forced", forced,
	)
	return record, next, nil
}

func resolutionEvents(record roundtypes.ResolvedRound) []notification {
	return []notification{
		{
			topic: roundevents.RoundResolvedV1,
			payload: roundevents.RoundResolvedPayloadV1{
				RoundID:      record.ID,
				Winner:       record.Winner,
				WinningValue: record.WinningValue,
				TotalPrize:   record.WinnerShare,
				Forced:       record.Forced,
				ResolvedAt:   record.ResolvedAt,
			},
		},
		{
			topic: roundevents.WinnerPaidV1,
			payload: roundevents.WinnerPaidPayloadV1{
				RoundID:  record.ID,
				Identity: record.Winner,
				Amount:   record.WinnerShare,
			},
		},
		{
			topic: roundevents.OperatorPaidV1,
			payload: roundevents.OperatorPaidPayloadV1{
				RoundID: record.ID,
				Amount:  record.OperatorShare,
			},
		},
	}
}
