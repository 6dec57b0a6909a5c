package roundhandlers

import (
	"context"

	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
)

// Handlers turns round command messages into engine calls and replies.
type Handlers interface {
	HandleJoinRequested(ctx context.Context, payload *roundevents.JoinRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleDrawRequested(ctx context.Context, payload *roundevents.DrawRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleForceResolveRequested(ctx context.Context, payload *roundevents.ForceResolveRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
