package authhandlers

import (
	"encoding/json"
	"errors"
	"net/http"

	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
)

// TokenRequest is the body of POST /api/auth/token.
type TokenRequest struct {
	Identity string `json:"identity"`
	Role     string `json:"role,omitempty"`
}

func (h *AuthHandlers) HandleHTTPToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.devTokens {
		http.NotFound(w, r)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.IssueToken(ctx, req.Identity, authdomain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrMissingIdentity), errors.Is(err, authservice.ErrInvalidRole):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, authservice.ErrNotOperator):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			h.logger.ErrorContext(ctx, "HTTP token issuance failed", "error", err)
			http.Error(w, "token issuance failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AuthHandlers) HandleHTTPWhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"identity":   claims.Identity,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}
