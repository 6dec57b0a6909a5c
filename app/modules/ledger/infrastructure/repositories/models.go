package ledgerdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	ledgertypes "github.com/Black-And-White-Club/spinboard/app/modules/ledger/domain/types"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
)

// Entry is one journaled fund movement. Entries are never updated.
type Entry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID        uuid.UUID             `bun:"id,pk,type:uuid"`
	RoundID   roundtypes.RoundID    `bun:"round_id,notnull"`
	Kind      ledgertypes.EntryKind `bun:"kind,notnull,type:varchar(16)"`
	Account   roundtypes.Identity   `bun:"account,notnull,type:varchar(128)"`
	Amount    roundtypes.Amount     `bun:"amount,notnull"`
	Reference uuid.UUID             `bun:"reference,type:uuid,nullzero"`
	CreatedAt time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
