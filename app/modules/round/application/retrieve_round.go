package roundservice

import (
	"context"
	"errors"
	"fmt"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/spinboard/app/modules/round/infrastructure/repositories"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// CurrentRound returns the open round as last committed.
func (s *RoundService) CurrentRound(ctx context.Context) roundtypes.RoundSnapshot {
	return s.current().round.Snapshot()
}

// PlayerInfo reports identity's standing in the current round.
func (s *RoundService) PlayerInfo(ctx context.Context, identity roundtypes.Identity) roundtypes.PlayerInfo {
	round := s.current().round
	info := roundtypes.PlayerInfo{RoundID: round.ID, Identity: identity}
	if idx := round.IndexOf(identity); idx >= 0 {
		p := round.Players[idx]
		info.HasJoined = true
		info.HasDrawn = p.HasDrawn()
		info.DrawValue = p.DrawValue
	}
	return info
}

// Stats returns the aggregate counters.
func (s *RoundService) Stats(ctx context.Context) roundtypes.Stats {
	st := s.current()
	return roundtypes.Stats{
		TotalRoundsResolved: st.resolved,
		TotalFeesCollected:  st.fees,
		CurrentRoundID:      st.round.ID,
		CurrentPlayerCount:  len(st.round.Players),
	}
}

// GetRound returns a resolved round from history.
func (s *RoundService) GetRound(ctx context.Context, id roundtypes.RoundID) (ResolveResult, error) {
	return withTelemetry(s, ctx, "GetRound", "", func(ctx context.Context) (ResolveResult, error) {
		record, err := s.repo.Get(ctx, nil, id)
		if err != nil {
			if errors.Is(err, rounddb.ErrNotFound) {
				return reject[roundtypes.ResolvedRound](fmt.Errorf("%w: %d", ErrRoundNotFound, id)), nil
			}
			return ResolveResult{}, err
		}
		return results.SuccessResult[roundtypes.ResolvedRound, error](record), nil
	})
}

// RoundPlayers lists the players of the current round or of a resolved one.
func (s *RoundService) RoundPlayers(ctx context.Context, id roundtypes.RoundID) (PlayersResult, error) {
	if round := s.current().round; round.ID == id {
		return results.SuccessResult[[]roundtypes.PlayerEntry, error](roundtypes.Entries(round.Players)), nil
	}
	return withTelemetry(s, ctx, "RoundPlayers", "", func(ctx context.Context) (PlayersResult, error) {
		record, err := s.repo.Get(ctx, nil, id)
		if err != nil {
			if errors.Is(err, rounddb.ErrNotFound) {
				return reject[[]roundtypes.PlayerEntry](fmt.Errorf("%w: %d", ErrRoundNotFound, id)), nil
			}
			return PlayersResult{}, err
		}
		return results.SuccessResult[[]roundtypes.PlayerEntry, error](roundtypes.Entries(record.Players)), nil
	})
}
