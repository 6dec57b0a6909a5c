// Package roundevents defines the round bus topics and their payloads.
package roundevents

import (
	"time"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// Notification topics, one per state change.
const (
	PlayerJoinedV1  = "spinboard.round.player_joined.v1"
	PlayerDrewV1    = "spinboard.round.player_drew.v1"
	RoundResolvedV1 = "spinboard.round.resolved.v1"
	WinnerPaidV1    = "spinboard.round.winner_paid.v1"
	OperatorPaidV1  = "spinboard.round.operator_paid.v1"
)

// Command topics and their replies.
const (
	JoinRequestedV1 = "spinboard.round.join_requested.v1"
	JoinAcceptedV1  = "spinboard.round.join_accepted.v1"
	JoinRejectedV1  = "spinboard.round.join_rejected.v1"

	DrawRequestedV1 = "spinboard.round.draw_requested.v1"
	DrawAcceptedV1  = "spinboard.round.draw_accepted.v1"
	DrawRejectedV1  = "spinboard.round.draw_rejected.v1"

	ForceResolveRequestedV1 = "spinboard.round.force_resolve_requested.v1"
	ForceResolveAcceptedV1  = "spinboard.round.force_resolve_accepted.v1"
	ForceResolveRejectedV1  = "spinboard.round.force_resolve_rejected.v1"
)

// PlayerJoinedPayloadV1 is published after a join commits.
type PlayerJoinedPayloadV1 struct {
	RoundID     roundtypes.RoundID  `json:"round_id"`
	Identity    roundtypes.Identity `json:"identity"`
	PlayerCount int                 `json:"player_count"`
}

// PlayerDrewPayloadV1 is published after a draw commits.
type PlayerDrewPayloadV1 struct {
	RoundID  roundtypes.RoundID   `json:"round_id"`
	Identity roundtypes.Identity  `json:"identity"`
	Value    roundtypes.DrawValue `json:"value"`
}

// RoundResolvedPayloadV1 is published after resolution commits. TotalPrize is
// the winner's share.
type RoundResolvedPayloadV1 struct {
	RoundID      roundtypes.RoundID   `json:"round_id"`
	Winner       roundtypes.Identity  `json:"winner"`
	WinningValue roundtypes.DrawValue `json:"winning_value"`
	TotalPrize   roundtypes.Amount    `json:"total_prize"`
	Forced       bool                 `json:"forced"`
	ResolvedAt   time.Time            `json:"resolved_at"`
}

// WinnerPaidPayloadV1 reports the winner transfer.
type WinnerPaidPayloadV1 struct {
	RoundID  roundtypes.RoundID  `json:"round_id"`
	Identity roundtypes.Identity `json:"identity"`
	Amount   roundtypes.Amount   `json:"amount"`
}

// OperatorPaidPayloadV1 reports the operator transfer.
type OperatorPaidPayloadV1 struct {
	RoundID roundtypes.RoundID `json:"round_id"`
	Amount  roundtypes.Amount  `json:"amount"`
}

// Command payloads carry the caller's bearer token. The engine acts for the
// identity the token was issued to; Identity is optional and must match it.

// JoinRequestedPayloadV1 asks to join. RoundID is optional; when set the
// join is rejected unless it names the current round.
type JoinRequestedPayloadV1 struct {
	Token    string              `json:"token"`
	Identity roundtypes.Identity `json:"identity,omitempty"`
	Amount   roundtypes.Amount   `json:"amount"`
	RoundID  roundtypes.RoundID  `json:"round_id,omitempty"`
}

// DrawRequestedPayloadV1 asks to draw.
type DrawRequestedPayloadV1 struct {
	Token    string              `json:"token"`
	Identity roundtypes.Identity `json:"identity,omitempty"`
	RoundID  roundtypes.RoundID  `json:"round_id,omitempty"`
}

// ForceResolveRequestedPayloadV1 asks to resolve the current round now. Only
// the operator's token is honored.
type ForceResolveRequestedPayloadV1 struct {
	Token    string              `json:"token"`
	Identity roundtypes.Identity `json:"identity,omitempty"`
	RoundID  roundtypes.RoundID  `json:"round_id,omitempty"`
}

// RejectedPayloadV1 answers any command that was refused.
type RejectedPayloadV1 struct {
	Identity roundtypes.Identity `json:"identity"`
	RoundID  roundtypes.RoundID  `json:"round_id,omitempty"`
	Reason   string              `json:"reason"`
	Code     string              `json:"code"`
}
