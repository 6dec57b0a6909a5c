package roundhandlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/spinboard/internal/invariant"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

func TestRoundHandlers_HandleJoinRequested(t *testing.T) {
	payload := &roundevents.JoinRequestedPayloadV1{Token: "t-alice", Amount: 100, RoundID: 4}
	receipt := roundtypes.JoinReceipt{RoundID: 4, Identity: "alice", PlayerCount: 1, PooledAmount: 100}

	tests := []struct {
		name      string
		joinFunc  func(context.Context, roundservice.JoinRequest) (roundservice.JoinResult, error)
		wantErr   bool
		wantTopic string
		wantCode  string
	}{
		{
			name: "accepted",
			joinFunc: func(_ context.Context, req roundservice.JoinRequest) (roundservice.JoinResult, error) {
				assert.Equal(t, roundservice.JoinRequest{Identity: "alice", Paid: 100, RoundID: 4}, req)
				return results.SuccessResult[roundtypes.JoinReceipt, error](receipt), nil
			},
			wantTopic: roundevents.JoinAcceptedV1,
		},
		{
			name: "rejected",
			joinFunc: func(context.Context, roundservice.JoinRequest) (roundservice.JoinResult, error) {
				return results.FailureResult[roundtypes.JoinReceipt, error](roundservice.ErrRoundFull), nil
			},
			wantTopic: roundevents.JoinRejectedV1,
			wantCode:  "RoundFull",
		},
		{
			name: "transient error is retried",
			joinFunc: func(context.Context, roundservice.JoinRequest) (roundservice.JoinResult, error) {
				return roundservice.JoinResult{}, errors.New("db down")
			},
			wantErr: true,
		},
		{
			name: "invariant failure is answered, not retried",
			joinFunc: func(context.Context, roundservice.JoinRequest) (roundservice.JoinResult, error) {
				return roundservice.JoinResult{}, invariant.Errorf("Join", "pool mismatch")
			},
			wantTopic: roundevents.JoinRejectedV1,
			wantCode:  "InvariantViolation",
		},
		{
			name: "empty result",
			joinFunc: func(context.Context, roundservice.JoinRequest) (roundservice.JoinResult, error) {
				return roundservice.JoinResult{}, nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeRoundService()
			svc.JoinFunc = tt.joinFunc
			h := NewRoundHandlers(svc, newTokens(), nil)

			got, err := h.HandleJoinRequested(context.Background(), payload)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantTopic, got[0].Topic)

			if tt.wantCode == "" {
				assert.Equal(t, receipt, got[0].Payload)
				return
			}
			rejected, ok := got[0].Payload.(roundevents.RejectedPayloadV1)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, rejected.Code)
			assert.Equal(t, roundtypes.Identity("alice"), rejected.Identity)
			assert.EqualValues(t, 4, rejected.RoundID)
		})
	}
}

func TestRoundHandlers_HandleDrawRequested(t *testing.T) {
	svc := NewFakeRoundService()
	svc.DrawFunc = func(_ context.Context, req roundservice.DrawRequest) (roundservice.DrawResult, error) {
		if req.Identity == "mallory" {
			return results.FailureResult[roundtypes.DrawReceipt, error](roundservice.ErrNotAPlayer), nil
		}
		return results.SuccessResult[roundtypes.DrawReceipt, error](roundtypes.DrawReceipt{RoundID: 1, Identity: req.Identity, Value: 7}), nil
	}
	h := NewRoundHandlers(svc, newTokens(), nil)

	got, err := h.HandleDrawRequested(context.Background(), &roundevents.DrawRequestedPayloadV1{Token: "t-alice"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, roundevents.DrawAcceptedV1, got[0].Topic)
	assert.Equal(t, roundtypes.Identity("alice"), got[0].Payload.(roundtypes.DrawReceipt).Identity)
	assert.Equal(t, roundtypes.DrawValue(7), got[0].Payload.(roundtypes.DrawReceipt).Value)

	got, err = h.HandleDrawRequested(context.Background(), &roundevents.DrawRequestedPayloadV1{Token: "t-mallory", Identity: "mallory"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, roundevents.DrawRejectedV1, got[0].Topic)
	assert.Equal(t, "NotAPlayer", got[0].Payload.(roundevents.RejectedPayloadV1).Code)

	assert.Equal(t, []string{"Draw", "Draw"}, svc.Trace())
}

func TestRoundHandlers_HandleForceResolveRequested(t *testing.T) {
	svc := NewFakeRoundService()
	svc.ForceResolveFunc = func(_ context.Context, req roundservice.ForceResolveRequest) (roundservice.ResolveResult, error) {
		assert.Equal(t, roundtypes.Identity("house"), req.Caller)
		return results.FailureResult[roundtypes.ResolvedRound, error](roundservice.ErrNotEnoughPlayers), nil
	}
	h := NewRoundHandlers(svc, newTokens(), nil)

	got, err := h.HandleForceResolveRequested(context.Background(), &roundevents.ForceResolveRequestedPayloadV1{Token: "t-house"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, roundevents.ForceResolveRejectedV1, got[0].Topic)
	assert.Equal(t, "NotEnoughPlayers", got[0].Payload.(roundevents.RejectedPayloadV1).Code)
}

func TestRoundHandlers_RefuseUnauthenticatedCommands(t *testing.T) {
	tests := []struct {
		name   string
		handle func(h Handlers) ([]handlerwrapper.Result, error)
		topic  string
	}{
		{
			name: "join without a token",
			handle: func(h Handlers) ([]handlerwrapper.Result, error) {
				return h.HandleJoinRequested(context.Background(), &roundevents.JoinRequestedPayloadV1{Identity: "alice", Amount: 100})
			},
			topic: roundevents.JoinRejectedV1,
		},
		{
			name: "join for someone else",
			handle: func(h Handlers) ([]handlerwrapper.Result, error) {
				return h.HandleJoinRequested(context.Background(), &roundevents.JoinRequestedPayloadV1{Token: "t-mallory", Identity: "alice", Amount: 100})
			},
			topic: roundevents.JoinRejectedV1,
		},
		{
			name: "draw with an unknown token",
			handle: func(h Handlers) ([]handlerwrapper.Result, error) {
				return h.HandleDrawRequested(context.Background(), &roundevents.DrawRequestedPayloadV1{Token: "forged", Identity: "alice"})
			},
			topic: roundevents.DrawRejectedV1,
		},
		{
			name: "force resolve naming the operator without its token",
			handle: func(h Handlers) ([]handlerwrapper.Result, error) {
				return h.HandleForceResolveRequested(context.Background(), &roundevents.ForceResolveRequestedPayloadV1{Identity: "house"})
			},
			topic: roundevents.ForceResolveRejectedV1,
		},
		{
			name: "force resolve with a player token claiming the operator",
			handle: func(h Handlers) ([]handlerwrapper.Result, error) {
				return h.HandleForceResolveRequested(context.Background(), &roundevents.ForceResolveRequestedPayloadV1{Token: "t-mallory", Identity: "house"})
			},
			topic: roundevents.ForceResolveRejectedV1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeRoundService()
			h := NewRoundHandlers(svc, newTokens(), nil)

			got, err := tt.handle(h)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.topic, got[0].Topic)
			rejected, ok := got[0].Payload.(roundevents.RejectedPayloadV1)
			require.True(t, ok)
			assert.Equal(t, "Unauthorized", rejected.Code)
			assert.Empty(t, svc.Trace(), "engine must not be called")
		})
	}
}

func newTokens() *FakeTokenValidator {
	tokens := NewFakeTokenValidator()
	tokens.Issue("t-alice", "alice", authdomain.RolePlayer)
	tokens.Issue("t-mallory", "mallory", authdomain.RolePlayer)
	tokens.Issue("t-house", "house", authdomain.RoleOperator)
	return tokens
}
