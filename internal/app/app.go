package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-relay/internal/transport/http"
)

const presenceBuffer = 64

// App wires together core and transport layers.
type App struct {
	server          *transporthttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	names           *store.Directory
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		st        store.Store
		names     *store.Directory
		directory core.Directory
	)
	if cfg.DatabasePath != "" {
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		dir, err := store.NewDirectory(sqliteStore, cfg.DirectoryCacheTTL)
		if err != nil {
			_ = sqliteStore.Close()
			return nil, err
		}
		st = sqliteStore
		names = dir
		directory = dir
		logger.Info().
			Str("db_path", cfg.DatabasePath).
			Dur("cache_ttl", cfg.DirectoryCacheTTL).
			Msg("user directory initialized")
	}

	var authService *auth.Service
	if cfg.AuthEnabled() {
		authService = auth.NewService(cfg.JWT())
		logger.Info().Str("issuer", cfg.JWTIssuer).Msg("token authentication enabled")
	}

	hub := core.NewHub(directory, cfg.CoreOptions(), logger)
	server := transporthttp.NewServer(hub, authService, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		names:           names,
		log:             logger,
	}, nil
}

// Hub exposes the routing core, mainly for tests and tooling.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Handler returns the HTTP handler serving the WebSocket and REST routes.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	a.server.StartMaintenance(ctx.Done())

	events, cancelPresence := a.hub.Presence.Subscribe(presenceBuffer)
	defer cancelPresence()
	go a.logPresence(events)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting wirechat relay")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) logPresence(events <-chan core.PresenceEvent) {
	for ev := range events {
		state := "offline"
		if ev.Online {
			state = "online"
		}
		a.log.Info().Str("user_id", ev.UserID).Str("state", state).Msg("presence changed")
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.names != nil {
		a.names.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
