package authrouter

import (
	"github.com/nats-io/nats.go"

	authhandlers "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/handlers"
)

const (
	// ValidateRequestSubject is the NATS subject for token validation requests.
	ValidateRequestSubject = "spinboard.auth.validate.requested.v1"

	// QueueGroup is the queue group name for load balancing.
	QueueGroup = "spinboard"
)

// Router manages NATS subscriptions for the auth module.
type Router struct {
	handlers    authhandlers.Handlers
	nc          *nats.Conn
	validateSub *nats.Subscription
}

// NewRouter creates a new auth router.
func NewRouter(handlers authhandlers.Handlers, nc *nats.Conn) *Router {
	return &Router{
		handlers: handlers,
		nc:       nc,
	}
}

// Start subscribes to all auth-related NATS subjects. Without a connection
// it does nothing.
func (r *Router) Start() error {
	if r.nc == nil {
		return nil
	}

	var err error
	r.validateSub, err = r.nc.QueueSubscribe(
		ValidateRequestSubject,
		QueueGroup,
		r.handlers.HandleNATSValidateRequest,
	)
	return err
}

// Stop unsubscribes from all NATS subjects.
func (r *Router) Stop() error {
	if r.validateSub != nil {
		return r.validateSub.Unsubscribe()
	}
	return nil
}
