package roundtypes

import "time"

// DrawContext is everything an entropy source may derive a draw from.
// Sequence increases with every accepted draw across all rounds, so no two
// draws share a context.
type DrawContext struct {
	RoundID   RoundID
	Identity  Identity
	JoinIndex int
	Sequence  uint64
	Timestamp time.Time
}
