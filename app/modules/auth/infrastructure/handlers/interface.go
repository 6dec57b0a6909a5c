package authhandlers

import (
	"net/http"

	"github.com/nats-io/nats.go"
)

// Handlers defines the HTTP and NATS surface of the auth module.
type Handlers interface {
	HandleHTTPToken(w http.ResponseWriter, r *http.Request)
	HandleHTTPWhoAmI(w http.ResponseWriter, r *http.Request)
	HandleNATSValidateRequest(msg *nats.Msg)
}
