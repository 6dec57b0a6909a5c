package roundhandlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundevents "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// errEmptyResult is returned when the service reports neither success nor failure.
var errEmptyResult = errors.New("unexpected empty result from round service")

// TokenValidator resolves a bearer token to the claims it was issued with.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*authdomain.Claims, error)
}

// RoundHandlers handles round command messages.
type RoundHandlers struct {
	service roundservice.Service
	tokens  TokenValidator
	logger  *slog.Logger
}

// NewRoundHandlers creates a new RoundHandlers.
func NewRoundHandlers(service roundservice.Service, tokens TokenValidator, logger *slog.Logger) Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundHandlers{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}
}

// authenticate returns the identity token was issued to. A claimed identity
// naming anyone else is refused.
func (h *RoundHandlers) authenticate(ctx context.Context, token string, claimed roundtypes.Identity) (roundtypes.Identity, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", roundservice.ErrUnauthorized)
	}
	claims, err := h.tokens.ValidateToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", roundservice.ErrUnauthorized, err)
	}
	if claims == nil || claims.Identity == "" {
		return "", fmt.Errorf("%w: token has no identity", roundservice.ErrUnauthorized)
	}
	identity := roundtypes.Identity(claims.Identity)
	if claimed != "" && claimed != identity {
		return "", fmt.Errorf("%w: token was not issued to %s", roundservice.ErrUnauthorized, claimed)
	}
	return identity, nil
}

func (h *RoundHandlers) refuse(ctx context.Context, topic string, claimed roundtypes.Identity, roundID roundtypes.RoundID, err error) []handlerwrapper.Result {
	h.logger.WarnContext(ctx, "Command refused before reaching the engine",
		"topic", topic,
		"identity", claimed.String(),
		"error", err,
	)
	return []handlerwrapper.Result{rejection(topic, claimed, roundID, err)}
}

// mapOperationResult routes an engine outcome to the accepted or rejected
// topic. Transient errors are returned so the message is redelivered;
// invariant failures are answered with a rejection and not retried.
func mapOperationResult[S any](
	h *RoundHandlers,
	ctx context.Context,
	result results.OperationResult[S, error],
	err error,
	identity roundtypes.Identity,
	roundID roundtypes.RoundID,
	acceptedTopic string,
	rejectedTopic string,
) ([]handlerwrapper.Result, error) {
	if err != nil {
		if roundservice.Classify(err) != roundservice.KindInvariant {
			return nil, err
		}
		h.logger.ErrorContext(ctx, "Invariant failure answered as rejection",
			"topic", rejectedTopic,
			"identity", identity.String(),
			"error", err,
		)
		return []handlerwrapper.Result{rejection(rejectedTopic, identity, roundID, err)}, nil
	}

	if result.Failure != nil {
		return []handlerwrapper.Result{rejection(rejectedTopic, identity, roundID, *result.Failure)}, nil
	}
	if result.Success != nil {
		return []handlerwrapper.Result{{Topic: acceptedTopic, Payload: *result.Success}}, nil
	}
	return nil, errEmptyResult
}

func rejection(topic string, identity roundtypes.Identity, roundID roundtypes.RoundID, err error) handlerwrapper.Result {
	return handlerwrapper.Result{
		Topic: topic,
		Payload: roundevents.RejectedPayloadV1{
			Identity: identity,
			RoundID:  roundID,
			Reason:   err.Error(),
			Code:     roundservice.Code(err),
		},
	}
}

// HandleJoinRequested joins the token's identity with the attached amount.
func (h *RoundHandlers) HandleJoinRequested(ctx context.Context, payload *roundevents.JoinRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	identity, err := h.authenticate(ctx, payload.Token, payload.Identity)
	if err != nil {
		return h.refuse(ctx, roundevents.JoinRejectedV1, payload.Identity, payload.RoundID, err), nil
	}
	result, err := h.service.Join(ctx, roundservice.JoinRequest{
		Identity: identity,
		Paid:     payload.Amount,
		RoundID:  payload.RoundID,
	})
	return mapOperationResult(h, ctx, result, err, identity, payload.RoundID,
		roundevents.JoinAcceptedV1, roundevents.JoinRejectedV1)
}

// HandleDrawRequested draws for the token's identity.
func (h *RoundHandlers) HandleDrawRequested(ctx context.Context, payload *roundevents.DrawRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	identity, err := h.authenticate(ctx, payload.Token, payload.Identity)
	if err != nil {
		return h.refuse(ctx, roundevents.DrawRejectedV1, payload.Identity, payload.RoundID, err), nil
	}
	result, err := h.service.Draw(ctx, roundservice.DrawRequest{
		Identity: identity,
		RoundID:  payload.RoundID,
	})
	return mapOperationResult(h, ctx, result, err, identity, payload.RoundID,
		roundevents.DrawAcceptedV1, roundevents.DrawRejectedV1)
}

// HandleForceResolveRequested resolves the current round. The guard refuses
// any caller but the operator.
func (h *RoundHandlers) HandleForceResolveRequested(ctx context.Context, payload *roundevents.ForceResolveRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	identity, err := h.authenticate(ctx, payload.Token, payload.Identity)
	if err != nil {
		return h.refuse(ctx, roundevents.ForceResolveRejectedV1, payload.Identity, payload.RoundID, err), nil
	}
	result, err := h.service.ForceResolve(ctx, roundservice.ForceResolveRequest{
		Caller:  identity,
		RoundID: payload.RoundID,
	})
	return mapOperationResult(h, ctx, result, err, identity, payload.RoundID,
		roundevents.ForceResolveAcceptedV1, roundevents.ForceResolveRejectedV1)
}
