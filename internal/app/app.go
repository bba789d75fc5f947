package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/basta/internal/auth"
	"github.com/abrezinsky/basta/internal/config"
	"github.com/abrezinsky/basta/internal/handlers"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/notify"
	"github.com/abrezinsky/basta/internal/repository"
	"github.com/abrezinsky/basta/internal/services"
	"github.com/abrezinsky/basta/internal/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// App holds all application dependencies
type App struct {
	cfg       *config.Config
	log       logger.Logger
	store     repository.Store
	handlers  *handlers.Handlers
	verifier  *auth.Verifier
	publicURL string
	brokers   []io.Closer
	stopHub   context.CancelFunc
}

// New opens the store, connects the configured brokers and wires services
// and handlers together.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	secret, err := jwtSecret(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, store: store}

	hubCtx, stopHub := context.WithCancel(context.Background())
	a.stopHub = stopHub
	hub := websocket.New(log)
	hub.Start(hubCtx)

	publishers := notify.Multi{hub}
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.DialNATS(cfg.Notify.NATSURL, cfg.Notify.NATSSubject, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		publishers = append(publishers, nc)
		a.brokers = append(a.brokers, nc)
		log.Info("Publishing room changes to NATS", "url", cfg.Notify.NATSURL, "subject", cfg.Notify.NATSSubject)
	}
	if cfg.Notify.RedisAddr != "" {
		rc, err := notify.DialRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.RedisPassword, cfg.Notify.RedisDB, cfg.Notify.RedisChannel)
		if err != nil {
			a.Close()
			return nil, err
		}
		publishers = append(publishers, rc)
		a.brokers = append(a.brokers, rc)
		log.Info("Publishing room changes to Redis", "addr", cfg.Notify.RedisAddr, "channel", cfg.Notify.RedisChannel)
	}

	repo := repository.NewNotifying(store, publishers, log)

	// Initialize services
	tracker := services.NewSubmissionTracker(log, repo)
	scorer := services.NewScoringEngine(log, repo)
	roomService := services.NewRoomService(log, repo, tracker, scorer)
	themeService := services.NewThemeService(log, repo)
	resultsService := services.NewResultsService(log, repo)

	a.verifier = auth.NewVerifier(secret, cfg.Auth.Audience, cfg.Auth.Issuer)
	a.publicURL = resolvePublicURL(cfg.HTTP.PublicURL, cfg.HTTP.Address, realNetworkProvider{})

	a.handlers = handlers.New(
		roomService,
		themeService,
		resultsService,
		a.verifier,
		hub,
		store,
		log,
		handlers.Options{PublicURL: a.publicURL, RequestTimeout: cfg.HTTP.RequestTimeout},
	)

	return a, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return repository.NewPostgres(ctx, cfg.DSN, repository.PostgresOptions{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			QueryTimeout:    cfg.QueryTimeout,
		})
	default:
		repo, err := repository.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		repo.SetQueryTimeout(cfg.QueryTimeout)
		return repo, nil
	}
}

// jwtSecret returns the configured signing secret. Local runs without one get
// a random secret, so tokens stop working after a restart.
func jwtSecret(cfg *config.Config, log logger.Logger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}
	if !cfg.IsLocal() {
		return "", errors.New("auth.jwt_secret (JWT_SECRET) is required outside local environments")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	log.Warn("JWT_SECRET not set, using a random secret for this run")
	return hex.EncodeToString(b), nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Verifier returns the token verifier, which can also sign tokens
func (a *App) Verifier() *auth.Verifier {
	return a.verifier
}

// PublicURL is the base URL printed in invite QR codes
func (a *App) PublicURL() string {
	return a.publicURL
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Address,
		Handler:           a.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "address", a.cfg.HTTP.Address, "public_url", a.publicURL,
			"db_driver", a.cfg.Database.Driver)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops the websocket hub and releases brokers and the store
func (a *App) Close() error {
	if a.stopHub != nil {
		a.stopHub()
	}
	var errs []error
	for _, b := range a.brokers {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
