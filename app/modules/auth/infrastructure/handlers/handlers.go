package authhandlers

import (
	"log/slog"

	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
)

// AuthHandlers implements the Handlers interface.
type AuthHandlers struct {
	service   authservice.Service
	logger    *slog.Logger
	devTokens bool
}

// NewAuthHandlers creates a new AuthHandlers instance. Token issuance over
// HTTP is only served when devTokens is set.
func NewAuthHandlers(
	service authservice.Service,
	logger *slog.Logger,
	devTokens bool,
) Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{
		service:   service,
		logger:    logger,
		devTokens: devTokens,
	}
}
