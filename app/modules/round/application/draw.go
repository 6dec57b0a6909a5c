package roundservice

import (
	"context"
	"fmt"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/invariant"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// Draw records the caller's draw. The draw that completes the round also
// resolves it and opens the next one before returning.
func (s *RoundService) Draw(ctx context.Context, req DrawRequest) (DrawResult, error) {
	var events []notification
	result, err := withTelemetry(s, ctx, "Draw", req.Identity, func(ctx context.Context) (DrawResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var (
			res DrawResult
			err error
		)
		res, events, err = s.draw(ctx, req)
		return res, err
	})
	if err == nil && result.IsSuccess() {
		s.publish(ctx, events)
	}
	return result, err
}

func (s *RoundService) draw(ctx context.Context, req DrawRequest) (DrawResult, []notification, error) {
	cur := s.current()
	round := cur.round

	if err := checkRound(round, req.RoundID); err != nil {
		return reject[roundtypes.DrawReceipt](err), nil, nil
	}
	idx := round.IndexOf(req.Identity)
	if idx < 0 {
		return reject[roundtypes.DrawReceipt](ErrNotAPlayer), nil, nil
	}
	if !round.CanStartDrawing() {
		return reject[roundtypes.DrawReceipt](fmt.Errorf("%w: %d of %d joined", ErrNotEnoughPlayers, len(round.Players), roundtypes.MinPlayers)), nil, nil
	}
	if round.Players[idx].HasDrawn() {
		return reject[roundtypes.DrawReceipt](ErrAlreadyDrawn), nil, nil
	}

	now := s.clock().UTC()
	dc := roundtypes.DrawContext{
		RoundID:   round.ID,
		Identity:  req.Identity,
		JoinIndex: idx,
		Sequence:  cur.drawSeq + 1,
		Timestamp: now,
	}
	value, err := s.entropy.Draw(ctx, dc)
	if err != nil {
		return DrawResult{}, nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	if !value.Valid() {
		return DrawResult{}, nil, invariant.Errorf("Draw", "entropy returned %d outside [1, %d]", value, roundtypes.BoardRange)
	}

	next := cur.clone()
	next.drawSeq = dc.Sequence
	next.round.Players[idx].DrawValue = value
	next.round.Players[idx].DrawnAt = now

	receipt := roundtypes.DrawReceipt{
		RoundID:  round.ID,
		Identity: req.Identity,
		Value:    value,
	}
	events := []notification{{
		topic: roundevents.PlayerDrewV1,
		payload: roundevents.PlayerDrewPayloadV1{
			RoundID:  round.ID,
			Identity: req.Identity,
			Value:    value,
		},
	}}

	if next.round.AllDrawn() {
		record, after, err := s.resolve(ctx, "Draw", next, false)
		if err != nil {
			return DrawResult{}, nil, err
		}
		next = after
		receipt.Resolution = &record
		events = append(events, resolutionEvents(record)...)
	}

	s.state.Store(next)
	return results.SuccessResult[roundtypes.DrawReceipt, error](receipt), events, nil
}
