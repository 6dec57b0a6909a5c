package roundservice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

func TestRoundService_Join(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*testing.T, *harness)
		req         JoinRequest
		wantFailure error
		wantErr     bool
		wantPlayers int
		wantTrace   []string
	}{
		{
			name:        "success",
			req:         JoinRequest{Identity: "alice", Paid: testFee},
			wantPlayers: 1,
			wantTrace:   []string{"Escrow"},
		},
		{
			name:        "success naming the current round",
			req:         JoinRequest{Identity: "alice", Paid: testFee, RoundID: 1},
			wantPlayers: 1,
			wantTrace:   []string{"Escrow"},
		},
		{
			name:        "underpaid",
			req:         JoinRequest{Identity: "alice", Paid: testFee - 1},
			wantFailure: ErrWrongFee,
			wantTrace:   []string{},
		},
		{
			name:        "overpaid",
			req:         JoinRequest{Identity: "alice", Paid: testFee + 1},
			wantFailure: ErrWrongFee,
			wantTrace:   []string{},
		},
		{
			name:        "already joined",
			setup:       func(t *testing.T, h *harness) { h.join(t, "alice") },
			req:         JoinRequest{Identity: "alice", Paid: testFee},
			wantFailure: ErrAlreadyJoined,
			wantPlayers: 1,
			wantTrace:   []string{"Escrow"},
		},
		{
			name: "round full",
			setup: func(t *testing.T, h *harness) {
				for i := 0; i < roundtypes.MaxPlayers; i++ {
					h.join(t, roundtypes.Identity(fmt.Sprintf("p%d", i)))
				}
			},
			req:         JoinRequest{Identity: "late", Paid: testFee},
			wantFailure: ErrRoundFull,
			wantPlayers: roundtypes.MaxPlayers,
		},
		{
			name:        "stale round id",
			req:         JoinRequest{Identity: "alice", Paid: testFee, RoundID: 7},
			wantFailure: ErrRoundNotCurrent,
			wantTrace:   []string{},
		},
		{
			name: "escrow failure aborts the join",
			setup: func(_ *testing.T, h *harness) {
				h.ledger.EscrowFunc = func(context.Context, roundtypes.RoundID, roundtypes.Identity, roundtypes.Amount) error {
					return errors.New("wallet offline")
				}
			},
			req:       JoinRequest{Identity: "alice", Paid: testFee},
			wantErr:   true,
			wantTrace: []string{"Escrow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}
			before := h.svc.CurrentRound(context.Background())
			topicsBefore := len(h.notifier.Topics())

			res, err := h.svc.Join(context.Background(), tt.req)

			switch {
			case tt.wantErr:
				require.Error(t, err)
				assert.Equal(t, before, h.svc.CurrentRound(context.Background()))
			case tt.wantFailure != nil:
				require.NoError(t, err)
				require.True(t, res.IsFailure())
				assert.ErrorIs(t, *res.Failure, tt.wantFailure)
				assert.Equal(t, before, h.svc.CurrentRound(context.Background()))
				assert.Len(t, h.notifier.Topics(), topicsBefore)
			default:
				require.NoError(t, err)
				require.True(t, res.IsSuccess())
				assert.Equal(t, tt.wantPlayers, res.Success.PlayerCount)
				assert.Equal(t, roundtypes.Amount(tt.wantPlayers)*testFee, res.Success.PooledAmount)
				assert.Equal(t, roundevents.PlayerJoinedV1, h.notifier.Topics()[topicsBefore])
			}

			snap := h.svc.CurrentRound(context.Background())
			assert.Equal(t, tt.wantPlayers, snap.PlayerCount)
			if tt.wantTrace != nil {
				assert.Equal(t, tt.wantTrace, h.ledger.Trace())
			}
		})
	}
}

func TestRoundService_JoinKeepsPoolInvariant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 1; i <= roundtypes.MaxPlayers; i++ {
		h.join(t, roundtypes.Identity(fmt.Sprintf("p%d", i)))

		snap := h.svc.CurrentRound(ctx)
		assert.Equal(t, roundtypes.Amount(snap.PlayerCount)*testFee, snap.PooledAmount)
		assert.Equal(t, snap.PooledAmount, h.ledger.Held())
		assert.Equal(t, roundtypes.MaxPlayers-i, snap.AvailableSlots)
	}

	stats := h.svc.Stats(ctx)
	assert.Equal(t, roundtypes.Amount(roundtypes.MaxPlayers)*testFee, stats.TotalFeesCollected)
	assert.Equal(t, roundtypes.MaxPlayers, stats.CurrentPlayerCount)

	res, err := h.svc.Join(ctx, JoinRequest{Identity: "p11", Paid: testFee})
	require.NoError(t, err)
	require.True(t, res.IsFailure())
	assert.ErrorIs(t, *res.Failure, ErrRoundFull)
}

func TestRoundService_JoinPayload(t *testing.T) {
	h := newHarness(t)
	h.join(t, "alice", "bob")

	payloads := h.notifier.Payloads()
	require.Len(t, payloads, 2)
	assert.Equal(t, roundevents.PlayerJoinedPayloadV1{RoundID: 1, Identity: "bob", PlayerCount: 2}, payloads[1])
}
