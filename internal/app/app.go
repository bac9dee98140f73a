package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/tcprelay/internal/auth"
	"github.com/vovakirdan/tcprelay/internal/config"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/metrics"
	transporthttp "github.com/vovakirdan/tcprelay/internal/transport/http"
	"github.com/vovakirdan/tcprelay/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	cfg     *config.Config
	relay   *tcp.Server
	admin   *stdhttp.Server
	journal *core.Journal
	log     *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := metrics.New()
	journal := core.NewJournal(cfg.Relay.JournalSize)
	hub := core.NewHub(journal, m, logger)
	relay := tcp.NewServer(cfg.Relay, hub, m, logger)

	a := &App{
		cfg:     cfg,
		relay:   relay,
		journal: journal,
		log:     logger,
	}

	if cfg.Admin.Enabled {
		authService := auth.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, JWTConfig(cfg))
		a.admin = transporthttp.NewServer(transporthttp.Deps{
			Relay:   relay,
			Journal: journal,
			Auth:    authService,
			Metrics: m,
		}, cfg, logger)
	}

	return a, nil
}

// JWTConfig derives token settings for the operator API.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.Admin.JWTSecret),
		Issuer:   cfg.Admin.JWTIssuer,
		Audience: cfg.Admin.JWTAudience,
		TTL:      cfg.Admin.TokenTTL,
	}
}

// Relay exposes the TCP relay, mainly for tests.
func (a *App) Relay() *tcp.Server {
	return a.relay
}

// Run starts the relay and the admin server and blocks until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.relay.Start(a.cfg.Relay.Address, a.cfg.Relay.Port, a.cfg.Relay.SharedKey); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.admin != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.admin.Addr).Msg("admin api listening")
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()
		return nil
	})

	return g.Wait()
}

func (a *App) shutdown() {
	if a.admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()

		a.log.Info().Msg("shutting down admin server")
		if err := a.admin.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("admin shutdown")
		}
	}

	a.log.Info().Msg("stopping relay")
	a.relay.Stop()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout > 0 {
		return a.cfg.ShutdownTimeout
	}
	return 5 * time.Second
}
