package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"go.uber.org/dig"

	"courier-driver-agent/internal/auth"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/localstore"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/metrics"
	"courier-driver-agent/internal/presence"
	"courier-driver-agent/internal/state"
)

// MustRun starts the agent using the provided DI container
func MustRun(container *dig.Container) {
	if err := run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

func run(container *dig.Container) error {
	return container.Invoke(func(
		ctx context.Context,
		server *http.Server,
		db *sql.DB,
		tokens *auth.TokenSource,
		repo *localstore.Repo,
		store *state.Store,
		ctrl *presence.Controller,
		m *metrics.Metrics,
		logger logx.Logger,
	) error {
		wasOnline := restoreState(ctx, tokens, repo, store, logger)
		stopGauge := watchActiveOrders(store, m)
		startServer(server, logger)

		if tokens.Authenticated() {
			if wasOnline {
				if err := ctrl.GoOnline(ctx); err != nil {
					logger.Warn("could not resume online state", logx.Err(err))
				}
			} else {
				reconcileAtBoot(ctx, store, ctrl, logger)
			}
		}

		waitForShutdown(ctx, logger)
		ctrl.GoOffline()
		stopGauge()
		gracefulShutdown(server, logger, 15*time.Second)
		closeResources(db, server, logger)
		return nil
	})
}

// restoreState rehydrates the token and the last persisted snapshot so the
// agent can answer /status before the first reconcile. It reports whether
// the courier was online when the process last stopped.
func restoreState(
	ctx context.Context,
	tokens *auth.TokenSource,
	repo *localstore.Repo,
	store *state.Store,
	logger logx.Logger,
) bool {
	if err := tokens.Restore(ctx); err != nil {
		logger.Warn("token restore failed", logx.Err(err))
	}
	orders, err := repo.LoadOrders(ctx)
	if err != nil {
		logger.Warn("order snapshot restore failed", logx.Err(err))
	} else {
		store.Restore(orders)
	}
	p, err := repo.LoadPresence(ctx)
	if err != nil {
		logger.Warn("presence restore failed", logx.Err(err))
		return false
	}
	return p == domain.PresenceOnline
}

// reconcileAtBoot runs the reconcile a restored authentication implies:
// the server may still hold active deliveries for a courier who last quit
// offline. A non-empty result forces presence online, in which case the
// epoch is started so the session and location watch come up with it.
func reconcileAtBoot(ctx context.Context, store *state.Store, ctrl *presence.Controller, logger logx.Logger) {
	if err := store.Reconcile(ctx); err != nil {
		logger.Warn("boot reconcile failed", logx.Err(err))
		return
	}
	if store.Presence() != domain.PresenceOnline {
		return
	}
	if err := ctrl.GoOnline(ctx); err != nil {
		logger.Warn("could not resume online state", logx.Err(err))
	}
}

// watchActiveOrders mirrors the active order count into the gauge. The
// returned stop func unsubscribes and waits for the loop to exit.
func watchActiveOrders(store *state.Store, m *metrics.Metrics) func() {
	snaps, cancel := store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snaps {
			m.ActiveOrders.Set(float64(len(snap.ActiveOrders)))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func startServer(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("diagnostics listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()
}

func waitForShutdown(ctx context.Context, logger logx.Logger) {
	<-ctx.Done()
	logger.Info("shutting down driver-agent")
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Err(err))
	}
}

func closeResources(db *sql.DB, server *http.Server, logger logx.Logger) {
	if err := server.Close(); err != nil {
		logger.Error("server close error", logx.Err(err))
	}
	if err := db.Close(); err != nil {
		logger.Error("db close error", logx.Err(err))
	}
}
