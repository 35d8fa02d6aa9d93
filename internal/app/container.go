package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"courier-driver-agent/internal/auth"
	"courier-driver-agent/internal/backoff"
	"courier-driver-agent/internal/config"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/gateway/dispatch"
	"courier-driver-agent/internal/http/diag"
	"courier-driver-agent/internal/localstore"
	"courier-driver-agent/internal/location"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/metrics"
	"courier-driver-agent/internal/presence"
	"courier-driver-agent/internal/session"
	"courier-driver-agent/internal/state"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbOpen    func(context.Context, string) (*sql.DB, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbOpen:    localstore.Open,
		logFatalf: log.Fatalf,
	}
}

// WithDBOpen sets the local database open function
func (b *ContainerBuilder) WithDBOpen(fn func(context.Context, string) (*sql.DB, error)) *ContainerBuilder {
	if fn != nil {
		b.dbOpen = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// build builds and returns a new dig container
func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStore(container, b.dbOpen); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerGateway(container); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	if err := registerSession(container); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := registerPresence(container); err != nil {
		return nil, fmt.Errorf("presence: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		prometheus.NewRegistry,
		func(reg *prometheus.Registry) *metrics.Metrics { return metrics.New(reg) },
	)
}

func registerStore(
	container *dig.Container,
	dbOpen func(context.Context, string) (*sql.DB, error),
) error {
	return provideAll(container,
		func(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
			return dbOpen(ctx, cfg.DBPath)
		},
		localstore.NewRepo,
		func(repo *localstore.Repo, logger logx.Logger) *auth.TokenSource {
			return auth.New(repo, logger)
		},
	)
}

func registerGateway(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config, tokens *auth.TokenSource) *dispatch.HTTPGateway {
			client := &http.Client{Timeout: cfg.Dispatch.Timeout}
			return dispatch.NewHTTPGateway(cfg.Dispatch.BaseURL, client, tokens)
		},
		func(
			cfg *config.Config,
			gw *dispatch.HTTPGateway,
			logger logx.Logger,
			m *metrics.Metrics,
		) *dispatch.RetryingGateway {
			return dispatch.NewRetryingGateway(gw, logger, m.GatewayRetries, dispatch.RetryConfig{
				MaxAttempts: cfg.Dispatch.MaxAttempts,
				BaseDelay:   cfg.Dispatch.RetryBaseDelay,
				MaxDelay:    cfg.Dispatch.RetryMaxDelay,
			})
		},
		func(gw *dispatch.RetryingGateway, repo *localstore.Repo, logger logx.Logger) *state.Store {
			return state.New(gw, repo, logger)
		},
	)
}

func registerSession(container *dig.Container) error {
	return provideAll(container,
		func(cfg *config.Config) session.Config {
			return session.Config{
				URL:       cfg.Realtime.WSURL,
				Heartbeat: cfg.Realtime.Heartbeat,
				Backoff: backoff.Policy{
					Base: cfg.Realtime.BackoffBase,
					Max:  cfg.Realtime.BackoffMax,
				},
			}
		},
		func(
			cfg *config.Config,
			scfg session.Config,
			tokens *auth.TokenSource,
			store *state.Store,
			logger logx.Logger,
			m *metrics.Metrics,
		) *session.Manager {
			dialer := session.WSDialer{WriteTimeout: cfg.Realtime.WriteTimeout}
			return session.New(dialer, tokens, store, scfg, backoff.RealClock{}, logger, session.Metrics{
				Reconnects:    m.SessionReconnects,
				FramesDropped: m.FramesDropped,
				LocationsSent: m.LocationsSent,
				Open:          m.SessionOpen,
			})
		},
	)
}

// autoGrant stands in for the device permission prompt on headless runs.
type autoGrant struct{}

func (autoGrant) Request(context.Context) error { return nil }

func registerPresence(container *dig.Container) error {
	return provideAll(container,
		func() location.Source {
			start := domain.Location{Latitude: 55.7558, Longitude: 37.6173}
			return location.NewSimulator(start, 2*time.Second)
		},
		func(
			cfg *config.Config,
			source location.Source,
			sess *session.Manager,
			store *state.Store,
			logger logx.Logger,
		) *presence.Controller {
			newFilter := func() *location.Filter {
				return location.NewFilter(
					cfg.Location.MinDistanceMeters,
					cfg.Location.MinInterval,
					backoff.RealClock{},
				)
			}
			return presence.NewController(autoGrant{}, source, sess, store, newFilter, logger)
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              cfg.DiagAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		func(logger logx.Logger, store *state.Store, sess *session.Manager, gw *dispatch.RetryingGateway) *diag.Handlers {
			return diag.NewHandlers(logger, store, sess, gw)
		},
		func(h *diag.Handlers, logger logx.Logger, reg *prometheus.Registry) http.Handler {
			return diag.NewRouter(h, logger, reg, diag.PprofConfig{})
		},
		serverProvider,
	)
}
