package roundservice

import (
	"context"
	"errors"

	"github.com/Black-And-White-Club/spinboard/internal/invariant"
)

// Caller input rejections. State is never changed when one is returned.
var (
	ErrWrongFee         = errors.New("entry fee must be paid exactly")
	ErrAlreadyJoined    = errors.New("player already joined this round")
	ErrRoundFull        = errors.New("round is full")
	ErrNotAPlayer       = errors.New("caller has not joined this round")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrAlreadyDrawn     = errors.New("player already drew")
	ErrRoundNotCurrent  = errors.New("round is no longer current")
)

// Authorization rejections.
var (
	ErrUnauthorized       = errors.New("caller is not authorized")
	ErrReentrancyDetected = errors.New("reentrant call rejected")
)

var (
	// ErrRoundNotFound is returned for ids that are unknown or not yet resolved.
	ErrRoundNotFound = errors.New("round not found")

	// ErrEntropyUnavailable wraps a failed entropy source. The operation is
	// aborted and may be retried by the caller.
	ErrEntropyUnavailable = errors.New("entropy source unavailable")

	// ErrGuardTimeout means another mutation held the engine for too long.
	ErrGuardTimeout = errors.New("timed out waiting for round engine")
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindInput         Kind = "input"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindInvariant     Kind = "invariant"
	KindTransient     Kind = "transient"
)

// Classify returns the Kind of err. Anything unrecognised is transient.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case invariant.Is(err):
		return KindInvariant
	case errors.Is(err, ErrWrongFee),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrRoundFull),
		errors.Is(err, ErrNotAPlayer),
		errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrAlreadyDrawn),
		errors.Is(err, ErrRoundNotCurrent):
		return KindInput
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrReentrancyDetected):
		return KindAuthorization
	case errors.Is(err, ErrRoundNotFound):
		return KindNotFound
	default:
		return KindTransient
	}
}

var codes = []struct {
	err  error
	code string
}{
	{ErrWrongFee, "WrongFee"},
	{ErrAlreadyJoined, "AlreadyJoined"},
	{ErrRoundFull, "RoundFull"},
	{ErrNotAPlayer, "NotAPlayer"},
	{ErrNotEnoughPlayers, "NotEnoughPlayers"},
	{ErrAlreadyDrawn, "AlreadyDrawn"},
	{ErrRoundNotCurrent, "RoundNotCurrent"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrReentrancyDetected, "ReentrancyDetected"},
	{ErrRoundNotFound, "NotFound"},
	{ErrEntropyUnavailable, "EntropyUnavailable"},
	{ErrGuardTimeout, "Busy"},
	{context.DeadlineExceeded, "Timeout"},
	{context.Canceled, "Canceled"},
}

// Code is the stable wire name of err used in rejection payloads and HTTP
// bodies.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if invariant.Is(err) {
		return "InvariantViolation"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
