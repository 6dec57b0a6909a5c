package rounddb

import (
	"time"

	"github.com/uptrace/bun"

	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// ResolvedRound is the stored form of a resolved round. Rows are written once.
type ResolvedRound struct {
	bun.BaseModel `bun:"table:round_history,alias:rh"`

	ID            roundtypes.RoundID       `bun:"id,pk"`
	Status        roundtypes.Status        `bun:"status,notnull,type:varchar(16)"`
	TotalPool     roundtypes.Amount        `bun:"total_pool,notnull"`
	WinnerShare   roundtypes.Amount        `bun:"winner_share,notnull"`
	OperatorShare roundtypes.Amount        `bun:"operator_share,notnull"`
	Winner        roundtypes.Identity      `bun:"winner,notnull,type:varchar(128)"`
	WinningValue  roundtypes.DrawValue     `bun:"winning_value,notnull"`
	Operator      roundtypes.Identity      `bun:"operator,notnull,type:varchar(128)"`
	Forced        bool                     `bun:"forced,notnull,default:false"`
	Players       []roundtypes.Participant `bun:"players,type:jsonb"`
	OpenedAt      time.Time                `bun:"opened_at,notnull"`
	ResolvedAt    time.Time                `bun:"resolved_at,notnull"`
}

func toDBModel(r roundtypes.ResolvedRound) *ResolvedRound {
	return &ResolvedRound{
		ID:            r.ID,
		Status:        roundtypes.StatusResolved,
		TotalPool:     r.TotalPool,
		WinnerShare:   r.WinnerShare,
		OperatorShare: r.OperatorShare,
		Winner:        r.Winner,
		WinningValue:  r.WinningValue,
		Operator:      r.Operator,
		Forced:        r.Forced,
		Players:       r.Players,
		OpenedAt:      r.OpenedAt,
		ResolvedAt:    r.ResolvedAt,
	}
}

func (m *ResolvedRound) toDomain() roundtypes.ResolvedRound {
	players := m.Players
	if players == nil {
		players = []roundtypes.Participant{}
	}
	return roundtypes.ResolvedRound{
		ID:            m.ID,
		Players:       players,
		TotalPool:     m.TotalPool,
		WinnerShare:   m.WinnerShare,
		OperatorShare: m.OperatorShare,
		Winner:        m.Winner,
		WinningValue:  m.WinningValue,
		Operator:      m.Operator,
		Forced:        m.Forced,
		OpenedAt:      m.OpenedAt.UTC(),
		ResolvedAt:    m.ResolvedAt.UTC(),
	}
}
