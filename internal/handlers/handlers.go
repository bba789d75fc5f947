package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/services"
)

// defaultRequestTimeout applies when Options leaves RequestTimeout unset
const defaultRequestTimeout = 30 * time.Second

// Authenticator guards routes that need a caller identity
type Authenticator interface {
	RequireIdentity(next http.Handler) http.Handler
}

// WebSocketServer upgrades change-feed connections
type WebSocketServer interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options holds the HTTP settings handlers need
type Options struct {
	// PublicURL is the externally reachable base URL used in invite links
	PublicURL      string
	RequestTimeout time.Duration
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Rooms   services.RoomServicer
	Themes  services.ThemeServicer
	Results services.ResultsServicer
	Auth    Authenticator
	Hub     WebSocketServer
	Health  HealthChecker
	Log     logger.Logger
	opts    Options
}

// New creates a new Handlers instance with all dependencies
func New(
	rooms services.RoomServicer,
	themes services.ThemeServicer,
	results services.ResultsServicer,
	authenticator Authenticator,
	hub WebSocketServer,
	health HealthChecker,
	log logger.Logger,
	opts Options,
) *Handlers {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Handlers{
		Rooms:   rooms,
		Themes:  themes,
		Results: results,
		Auth:    authenticator,
		Hub:     hub,
		Health:  health,
		Log:     log,
		opts:    opts,
	}
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Health.Ping(ctx); err != nil {
		h.Log.Warn("Health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "unreachable"})
		return
	}
	respondOK(w, HealthResponse{Status: "ok", Store: "ok"})
}
