package roundhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers the round API under /api. Mutations run behind
// authenticate, which must put the caller's claims on the request context.
func Routes(h *RoundHandlers, authenticate func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/api/round/current", h.CurrentRound)
		r.Get("/api/round/lobby", h.Lobby)
		r.Get("/api/rounds/{roundID}", h.GetRound)
		r.Get("/api/rounds/{roundID}/players", h.RoundPlayers)
		r.Get("/api/players/{identity}", h.PlayerInfo)
		r.Get("/api/stats", h.Stats)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/api/round/join", h.Join)
			r.Post("/api/round/draw", h.Draw)
			r.Post("/api/round/force-resolve", h.ForceResolve)
		})
	}
}
