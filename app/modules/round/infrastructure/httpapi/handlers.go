package roundhttp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authhandlers "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/handlers"
	roundservice "github.com/Black-And-White-Club/spinboard/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/internal/results"
)

// RoundHandlers serves the round engine over HTTP.
type RoundHandlers struct {
	service  roundservice.Service
	entryFee roundtypes.Amount
	logger   *slog.Logger
}

// NewRoundHandlers creates a new RoundHandlers instance.
func NewRoundHandlers(service roundservice.Service, entryFee roundtypes.Amount, logger *slog.Logger) *RoundHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoundHandlers{
		service:  service,
		entryFee: entryFee,
		logger:   logger,
	}
}

// JoinInput is the body of POST /api/round/join.
type JoinInput struct {
	Amount  roundtypes.Amount  `json:"amount"`
	RoundID roundtypes.RoundID `json:"round_id,omitempty"`
}

// RoundInput is the optional body of draw and force-resolve. RoundID pins
// the request to the round the caller last saw.
type RoundInput struct {
	RoundID roundtypes.RoundID `json:"round_id,omitempty"`
}

// LobbyView is the waiting-room projection of the current round.
type LobbyView struct {
	RoundID              roundtypes.RoundID       `json:"round_id"`
	Label                string                   `json:"label"`
	EntryFee             roundtypes.Amount        `json:"entry_fee"`
	PooledAmount         roundtypes.Amount        `json:"pooled_amount"`
	Players              []roundtypes.PlayerEntry `json:"players"`
	AvailableSlots       int                      `json:"available_slots"`
	PlayersNeededToStart int                      `json:"players_needed_to_start"`
	CanStartDrawing      bool                     `json:"can_start_drawing"`
}

// ErrorBody is every non-2xx JSON response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Join enters the caller into the current round.
func (h *RoundHandlers) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var input JoinInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "Failed to decode request body")
		return
	}

	result, err := h.service.Join(r.Context(), roundservice.JoinRequest{
		Identity: identity,
		Paid:     input.Amount,
		RoundID:  input.RoundID,
	})
	writeResult(h, w, r, result, err)
}

// Draw records the caller's draw.
func (h *RoundHandlers) Draw(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	input, ok := decodeRoundInput(w, r)
	if !ok {
		return
	}

	result, err := h.service.Draw(r.Context(), roundservice.DrawRequest{
		Identity: identity,
		RoundID:  input.RoundID,
	})
	writeResult(h, w, r, result, err)
}

// ForceResolve resolves the current round among those who drew.
func (h *RoundHandlers) ForceResolve(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	input, ok := decodeRoundInput(w, r)
	if !ok {
		return
	}

	result, err := h.service.ForceResolve(r.Context(), roundservice.ForceResolveRequest{
		Caller:  identity,
		RoundID: input.RoundID,
	})
	writeResult(h, w, r, result, err)
}

// CurrentRound returns the open round.
func (h *RoundHandlers) CurrentRound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CurrentRound(r.Context()))
}

// Lobby returns the open round with its player list.
func (h *RoundHandlers) Lobby(w http.ResponseWriter, r *http.Request) {
	snap := h.service.CurrentRound(r.Context())

	players, err := h.service.RoundPlayers(r.Context(), snap.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// The round may have resolved between the two reads; the next one is empty.
	entries := []roundtypes.PlayerEntry{}
	if players.Success != nil {
		entries = *players.Success
	}

	writeJSON(w, http.StatusOK, LobbyView{
		RoundID:              snap.ID,
		Label:                snap.Label.String(),
		EntryFee:             h.entryFee,
		PooledAmount:         snap.PooledAmount,
		Players:              entries,
		AvailableSlots:       snap.AvailableSlots,
		PlayersNeededToStart: snap.PlayersNeededToStart,
		CanStartDrawing:      snap.CanStartDrawing,
	})
}

// GetRound returns a resolved round.
func (h *RoundHandlers) GetRound(w http.ResponseWriter, r *http.Request) {
	id, ok := roundIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetRound(r.Context(), id)
	writeResult(h, w, r, result, err)
}

// RoundPlayers lists the players of the current or a resolved round.
func (h *RoundHandlers) RoundPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := roundIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.RoundPlayers(r.Context(), id)
	writeResult(h, w, r, result, err)
}

// PlayerInfo reports an identity's standing in the current round.
func (h *RoundHandlers) PlayerInfo(w http.ResponseWriter, r *http.Request) {
	identity := roundtypes.Identity(chi.URLParam(r, "identity"))
	if identity == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "Invalid identity")
		return
	}
	writeJSON(w, http.StatusOK, h.service.PlayerInfo(r.Context(), identity))
}

// Stats returns the aggregate counters.
func (h *RoundHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats(r.Context()))
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (roundtypes.Identity, bool) {
	claims, ok := authhandlers.ClaimsFromContext(r.Context())
	if !ok || claims.Identity == "" {
		writeError(w, http.StatusUnauthorized, "Unauthenticated", "Missing caller identity")
		return "", false
	}
	return roundtypes.Identity(claims.Identity), true
}

func decodeRoundInput(w http.ResponseWriter, r *http.Request) (RoundInput, bool) {
	var input RoundInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "BadRequest", "Failed to decode request body")
		return input, false
	}
	return input, true
}

func roundIDParam(w http.ResponseWriter, r *http.Request) (roundtypes.RoundID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roundID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "BadRequest", "Invalid round ID")
		return 0, false
	}
	return roundtypes.RoundID(id), true
}

// writeResult answers with the success payload or the failure's status.
func writeResult[S any](h *RoundHandlers, w http.ResponseWriter, r *http.Request, result results.OperationResult[S, error], err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if result.Failure != nil {
		failure := *result.Failure
		writeError(w, StatusFor(failure), roundservice.Code(failure), failure.Error())
		return
	}
	if result.Success == nil {
		h.fail(w, r, errors.New("unexpected empty result from round service"))
		return
	}
	writeJSON(w, http.StatusOK, *result.Success)
}

func (h *RoundHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Round request failed",
			"path", r.URL.Path,
			"code", roundservice.Code(err),
			"error", err,
		)
		// Internal detail stays in the logs.
		writeError(w, status, roundservice.Code(err), http.StatusText(status))
		return
	}
	writeError(w, status, roundservice.Code(err), err.Error())
}

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch roundservice.Code(err) {
	case "WrongFee":
		return http.StatusUnprocessableEntity
	case "AlreadyJoined", "RoundFull", "NotAPlayer", "NotEnoughPlayers",
		"AlreadyDrawn", "RoundNotCurrent", "ReentrancyDetected":
		return http.StatusConflict
	case "Unauthorized":
		return http.StatusForbidden
	case "NotFound":
		return http.StatusNotFound
	case "EntropyUnavailable", "Busy", "Timeout", "Canceled":
		return http.StatusServiceUnavailable
	}
	if roundservice.Classify(err) == roundservice.KindTransient {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Error: msg, Code: code})
}
