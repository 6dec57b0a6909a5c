package roundtypes

import "time"

// RoundSnapshot is the read view of a round.
type RoundSnapshot struct {
	ID                   RoundID    `json:"id"`
	Status               Status     `json:"status"`
	Label                Label      `json:"label"`
	PooledAmount         Amount     `json:"pooled_amount"`
	PlayerCount          int        `json:"player_count"`
	Winner               Identity   `json:"winner,omitempty"`
	WinningValue         DrawValue  `json:"winning_value,omitempty"`
	OpenedAt             time.Time  `json:"opened_at"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty"`
	AvailableSlots       int        `json:"available_slots"`
	PlayersNeededToStart int        `json:"players_needed_to_start"`
	CanStartDrawing      bool       `json:"can_start_drawing"`
}

// Snapshot projects the round into its read view.
func (r Round) Snapshot() RoundSnapshot {
	s := RoundSnapshot{
		ID:                   r.ID,
		Status:               r.Status,
		Label:                r.Status.Label(),
		PooledAmount:         r.PooledAmount,
		PlayerCount:          len(r.Players),
		Winner:               r.Winner,
		WinningValue:         r.WinningValue,
		OpenedAt:             r.OpenedAt,
		AvailableSlots:       r.AvailableSlots(),
		PlayersNeededToStart: r.PlayersNeededToStart(),
		CanStartDrawing:      r.CanStartDrawing(),
	}
	if !r.ResolvedAt.IsZero() {
		resolvedAt := r.ResolvedAt
		s.ResolvedAt = &resolvedAt
	}
	return s
}

// PlayerEntry is one row of a round's player list.
type PlayerEntry struct {
	Identity  Identity  `json:"identity"`
	DrawValue DrawValue `json:"draw_value"`
	HasDrawn  bool      `json:"has_drawn"`
}

// Entries lists players in join order.
func Entries(players []Participant) []PlayerEntry {
	out := make([]PlayerEntry, len(players))
	for i, p := range players {
		out[i] = PlayerEntry{Identity: p.Identity, DrawValue: p.DrawValue, HasDrawn: p.HasDrawn()}
	}
	return out
}

// PlayerInfo describes an identity's standing in the current round.
type PlayerInfo struct {
	RoundID   RoundID   `json:"round_id"`
	Identity  Identity  `json:"identity"`
	HasJoined bool      `json:"has_joined"`
	HasDrawn  bool      `json:"has_drawn"`
	DrawValue DrawValue `json:"draw_value"`
}

// ResolvedRound is the immutable record written to history.
type ResolvedRound struct {
	ID            RoundID       `json:"id"`
	Players       []Participant `json:"players"`
	TotalPool     Amount        `json:"total_pool"`
	WinnerShare   Amount        `json:"winner_share"`
	OperatorShare Amount        `json:"operator_share"`
	Winner        Identity      `json:"winner"`
	WinningValue  DrawValue     `json:"winning_value"`
	Operator      Identity      `json:"operator"`
	Forced        bool          `json:"forced"`
	OpenedAt      time.Time     `json:"opened_at"`
	ResolvedAt    time.Time     `json:"resolved_at"`
}

// Snapshot projects the resolved record into the round read view.
func (r ResolvedRound) Snapshot() RoundSnapshot {
	return Round{
		ID:           r.ID,
		Status:       StatusResolved,
		Players:      r.Players,
		Winner:       r.Winner,
		WinningValue: r.WinningValue,
		OpenedAt:     r.OpenedAt,
		ResolvedAt:   r.ResolvedAt,
	}.Snapshot()
}

// Stats are the engine's aggregate counters.
type Stats struct {
	TotalRoundsResolved int64   `json:"total_rounds_resolved"`
	TotalFeesCollected  Amount  `json:"total_fees_collected"`
	CurrentRoundID      RoundID `json:"current_round_id"`
	CurrentPlayerCount  int     `json:"current_player_count"`
}

// JoinReceipt confirms an accepted join.
type JoinReceipt struct {
	RoundID      RoundID  `json:"round_id"`
	Identity     Identity `json:"identity"`
	PlayerCount  int      `json:"player_count"`
	PooledAmount Amount   `json:"pooled_amount"`
}

// DrawReceipt confirms an accepted draw. Resolution is set when the draw
// completed the round.
type DrawReceipt struct {
	RoundID    RoundID        `json:"round_id"`
	Identity   Identity       `json:"identity"`
	Value      DrawValue      `json:"value"`
	Resolution *ResolvedRound `json:"resolution,omitempty"`
}
