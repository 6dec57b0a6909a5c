package roundservice

import (
	"context"
	"fmt"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// Join escrows the entry fee and adds the caller to the current round.
func (s *RoundService) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	var events []notification
	result, err := withTelemetry(s, ctx, "Join", req.Identity, func(ctx context.Context) (JoinResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var (
			res JoinResult
			err error
		)
		res, events, err = s.join(ctx, req)
		return res, err
	})
	if err == nil && result.IsSuccess() {
		s.publish(ctx, events)
	}
	return result, err
}

func (s *RoundService) join(ctx context.Context, req JoinRequest) (JoinResult, []notification, error) {
	cur := s.current()
	round := cur.round

	if err := checkRound(round, req.RoundID); err != nil {
		return reject[roundtypes.JoinReceipt](err), nil, nil
	}
	if req.Paid != s.settings.EntryFee {
		return reject[roundtypes.JoinReceipt](fmt.Errorf("%w: paid %d, fee is %d", ErrWrongFee, req.Paid, s.settings.EntryFee)), nil, nil
	}
	if round.IndexOf(req.Identity) >= 0 {
		return reject[roundtypes.JoinReceipt](ErrAlreadyJoined), nil, nil
	}
	if len(round.Players) >= roundtypes.MaxPlayers {
		return reject[roundtypes.JoinReceipt](ErrRoundFull), nil, nil
	}

	next := cur.clone()
	next.round.Players = append(next.round.Players, roundtypes.Participant{
		Identity: req.Identity,
		JoinedAt: s.clock().UTC(),
	})
	next.round.PooledAmount += req.Paid
	next.fees += req.Paid
	if err := s.checkPool("Join", next.round); err != nil {
		return JoinResult{}, nil, err
	}

	if err := s.ledger.Escrow(ctx, round.ID, req.Identity, req.Paid); err != nil {
		return JoinResult{}, nil, fmt.Errorf("failed to escrow entry fee: %w", err)
	}
	s.state.Store(next)

	receipt := roundtypes.JoinReceipt{
		RoundID:      next.round.ID,
		Identity:     req.Identity,
		PlayerCount:  len(next.round.Players),
		PooledAmount: next.round.PooledAmount,
	}
	events := []notification{{
		topic: roundevents.PlayerJoinedV1,
		payload: roundevents.PlayerJoinedPayloadV1{
			RoundID:     receipt.RoundID,
			Identity:    receipt.Identity,
			PlayerCount: receipt.PlayerCount,
		},
	}}
	return results.SuccessResult[roundtypes.JoinReceipt, error](receipt), events, nil
}
