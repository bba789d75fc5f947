package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// Public
	r.Get("/healthz", h.handleHealth)
	r.Get("/ws", h.Hub.ServeWs)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(h.opts.RequestTimeout))

		r.Get("/themes", h.handleListThemes)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireIdentity)

			// Themes
			r.Post("/themes", h.handleCreateTheme)
			r.Get("/categories", h.handleListCategories)
			r.Post("/categories", h.handleCreateCategory)

			// Rooms
			r.Post("/rooms", h.handleCreateRoom)
			r.Get("/rooms/{identifier}", h.handleGetRoom)
			r.Post("/rooms/{identifier}/join", h.handleJoinRoom)
			r.Get("/rooms/{identifier}/qr", h.handleRoomQR)
			r.Patch("/rooms/{roomID}/participants/me/ready", h.handleSetReady)
			r.Post("/rooms/{roomID}/start", h.handleStartGame)
			r.Post("/rooms/{roomID}/next-round", h.handleNextRound)

			// Rounds
			r.Post("/rooms/{roomID}/rounds/basta", h.handleSubmitRound)
			r.Post("/rooms/{roomID}/rounds/check", h.handleCheckRound)
			r.Get("/rooms/{roomID}/rounds/{round}/results", h.handleRoundResults)
		})
	})

	return r
}
