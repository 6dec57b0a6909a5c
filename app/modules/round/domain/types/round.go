package roundtypes

import (
	"time"
)

// Fixed game parameters. The entry fee is set per deployment in config.
const (
	MinPlayers         = 2
	MaxPlayers         = 10
	BoardRange         = 10
	WinnerPercentage   = 50
	OperatorPercentage = 50
)

// Identity is an authenticated caller (wallet address, account id).
type Identity string

func (i Identity) String() string { return string(i) }

// RoundID identifies one round. The first round is 1.
type RoundID int64

// Amount is a quantity of the smallest currency unit.
type Amount int64

// DrawValue is a draw in [1, BoardRange]. Zero means not drawn.
type DrawValue int

// Valid reports whether v lies on the board.
func (v DrawValue) Valid() bool { return v >= 1 && v <= BoardRange }

// Status is the lifecycle state of a round.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Label is the three-state display projection kept for older clients.
type Label int

const (
	LabelWaiting   Label = 0
	LabelSpinning  Label = 1
	LabelCompleted Label = 2
)

func (l Label) String() string {
	switch l {
	case LabelWaiting:
		return "Waiting"
	case LabelSpinning:
		return "Spinning"
	case LabelCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Label projects s onto the display labels. Spinning is never produced.
func (s Status) Label() Label {
	if s == StatusResolved {
		return LabelCompleted
	}
	return LabelWaiting
}

// Participant is one player's membership in one round.
type Participant struct {
	Identity  Identity  `json:"identity"`
	DrawValue DrawValue `json:"draw_value"`
	JoinedAt  time.Time `json:"joined_at"`
	DrawnAt   time.Time `json:"drawn_at,omitempty"`
}

// HasDrawn reports whether the participant's draw is set.
func (p Participant) HasDrawn() bool { return p.DrawValue != 0 }

// Round is the engine-owned record of one game instance.
type Round struct {
	ID           RoundID
	Status       Status
	Players      []Participant
	PooledAmount Amount
	Winner       Identity
	WinningValue DrawValue
	OpenedAt     time.Time
	ResolvedAt   time.Time
}

// NewRound opens an empty round.
func NewRound(id RoundID, openedAt time.Time) Round {
	return Round{
		ID:       id,
		Status:   StatusOpen,
		Players:  []Participant{},
		OpenedAt: openedAt,
	}
}

// Clone returns a deep copy so the caller can mutate it freely.
func (r Round) Clone() Round {
	out := r
	out.Players = make([]Participant, len(r.Players))
	copy(out.Players, r.Players)
	return out
}

// IndexOf returns the join position of identity, or -1.
func (r Round) IndexOf(identity Identity) int {
	for i, p := range r.Players {
		if p.Identity == identity {
			return i
		}
	}
	return -1
}

// AllDrawn reports whether every joined player has drawn.
func (r Round) AllDrawn() bool {
	for _, p := range r.Players {
		if !p.HasDrawn() {
			return false
		}
	}
	return len(r.Players) > 0
}

// DrawnCount returns the number of players that have drawn.
func (r Round) DrawnCount() int {
	n := 0
	for _, p := range r.Players {
		if p.HasDrawn() {
			n++
		}
	}
	return n
}

// AvailableSlots is the number of joins still accepted.
func (r Round) AvailableSlots() int { return MaxPlayers - len(r.Players) }

// PlayersNeededToStart is how many more joins are needed before anyone may draw.
func (r Round) PlayersNeededToStart() int {
	if n := MinPlayers - len(r.Players); n > 0 {
		return n
	}
	return 0
}

// CanStartDrawing reports whether draws are accepted.
func (r Round) CanStartDrawing() bool { return len(r.Players) >= MinPlayers }

// SelectWinner returns the join index of the highest draw among players that
// have drawn. Ties go to the earliest joiner. ok is false when nobody drew.
func SelectWinner(players []Participant) (index int, ok bool) {
	index = -1
	var best DrawValue
	for i, p := range players {
		if !p.HasDrawn() {
			continue
		}
		if p.DrawValue > best {
			best = p.DrawValue
			index = i
		}
	}
	return index, index >= 0
}

// Payout is one leg of a disbursement.
type Payout struct {
	Recipient Identity   `json:"recipient"`
	Amount    Amount     `json:"amount"`
	Kind      PayoutKind `json:"kind"`
}

// PayoutKind tags a disbursement leg.
type PayoutKind string

const (
	PayoutWinner   PayoutKind = "winner"
	PayoutOperator PayoutKind = "operator"
)

// SplitPool divides pool between winner and operator. Integer remainder goes
// to the operator so the two shares always sum to pool.
func SplitPool(pool Amount) (winnerShare, operatorShare Amount) {
	winnerShare = pool * WinnerPercentage / 100
	operatorShare = pool - winnerShare
	return winnerShare, operatorShare
}
