package authhandlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// ValidateRequest is the body of a token validation request over NATS.
type ValidateRequest struct {
	Token string `json:"token"`
}

// ValidateResponse answers a ValidateRequest.
type ValidateResponse struct {
	Valid     bool      `json:"valid"`
	Identity  string    `json:"identity,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// HandleNATSValidateRequest answers token validation requests so other
// services can resolve a bearer token to an identity.
func (h *AuthHandlers) HandleNATSValidateRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := json.Marshal(h.validate(ctx, msg.Data))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to marshal validate response", "error", err)
		return
	}
	if err := msg.Respond(reply); err != nil {
		h.logger.ErrorContext(ctx, "Failed to respond to validate request", "error", err)
	}
}

func (h *AuthHandlers) validate(ctx context.Context, data []byte) ValidateResponse {
	var req ValidateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ValidateResponse{Error: "invalid request"}
	}

	claims, err := h.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateResponse{Error: err.Error()}
	}

	return ValidateResponse{
		Valid:     true,
		Identity:  claims.Identity,
		Role:      claims.Role.String(),
		ExpiresAt: claims.ExpiresAt,
	}
}
