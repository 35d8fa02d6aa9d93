package app

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"courier-driver-agent/internal/auth"
	"courier-driver-agent/internal/config"
	"courier-driver-agent/internal/gateway/dispatch"
	"courier-driver-agent/internal/http/diag"
	"courier-driver-agent/internal/localstore"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/metrics"
	"courier-driver-agent/internal/presence"
	"courier-driver-agent/internal/session"
	"courier-driver-agent/internal/state"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DiagAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "agent.db"),
		Realtime: config.DefaultRealtime(),
		Dispatch: config.DefaultDispatch(),
		Location: config.DefaultLocationPolicy(),
	}
}

func setupTestContainer(t *testing.T) *dig.Container {
	t.Helper()

	c := dig.New()
	cfg := testConfig(t)

	providers := []struct {
		name     string
		provider any
	}{
		{"context", func() context.Context { return context.Background() }},
		{"logger", func() logx.Logger { return logx.Nop() }},
		{"config", func() *config.Config { return cfg }},
		{"registry", prometheus.NewRegistry},
		{"metrics", func(reg *prometheus.Registry) *metrics.Metrics { return metrics.New(reg) }},
	}
	for _, p := range providers {
		err := c.Provide(p.provider)
		require.NoErrorf(t, err, "provide %s", p.name)
	}

	require.NoError(t, registerStore(c, localstore.Open))
	require.NoError(t, registerGateway(c))
	require.NoError(t, registerSession(c))
	require.NoError(t, registerPresence(c))
	require.NoError(t, registerHTTP(c))

	return c
}

func verifyServer(t *testing.T, srv *http.Server) {
	t.Helper()

	require.NotNil(t, srv, "http.Server is nil")
	require.Equal(t, "127.0.0.1:0", srv.Addr)
	require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
	require.Greater(t, srv.ReadTimeout, time.Duration(0))
	require.Greater(t, srv.WriteTimeout, time.Duration(0))
	require.Greater(t, srv.IdleTimeout, time.Duration(0))
}

func TestContainer_ProvidesAgentGraph(t *testing.T) {
	t.Parallel()

	c := setupTestContainer(t)

	err := c.Invoke(func(
		srv *http.Server,
		db *sql.DB,
		tokens *auth.TokenSource,
		gw *dispatch.RetryingGateway,
		store *state.Store,
		sess *session.Manager,
		ctrl *presence.Controller,
		h *diag.Handlers,
	) {
		verifyServer(t, srv)
		require.NotNil(t, db)
		require.NotNil(t, tokens)
		require.NotNil(t, gw)
		require.NotNil(t, store)
		require.NotNil(t, sess)
		require.NotNil(t, ctrl)
		require.NotNil(t, h)
	})
	require.NoError(t, err)
}

func TestProvideAll_Success(t *testing.T) {
	t.Parallel()

	c := dig.New()

	err := provideAll(c,
		func() context.Context { return context.Background() },
		func() time.Duration { return 3 * time.Second },
	)
	require.NoError(t, err)

	err = c.Invoke(func(ctx context.Context, d time.Duration) {
		require.NotNil(t, ctx)
		require.Equal(t, 3*time.Second, d)
	})
	require.NoError(t, err)
}

func TestProvideAll_InvalidProvider(t *testing.T) {
	t.Parallel()

	c := dig.New()

	type bad struct{}
	err := provideAll(c, bad{})
	require.Error(t, err)
}

func TestRegisterStore_UsesDBOpen(t *testing.T) {
	t.Parallel()

	c := dig.New()
	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, c.Provide(func() context.Context { return ctx }))
	require.NoError(t, c.Provide(func() *config.Config { return cfg }))
	require.NoError(t, c.Provide(func() logx.Logger { return logx.Nop() }))

	opened := ""
	stubOpen := func(gotCtx context.Context, path string) (*sql.DB, error) {
		require.Equal(t, ctx, gotCtx)
		opened = path
		return localstore.Open(gotCtx, path)
	}

	require.NoError(t, registerStore(c, stubOpen))

	err := c.Invoke(func(db *sql.DB, repo *localstore.Repo, tokens *auth.TokenSource) {
		require.NotNil(t, db)
		require.NotNil(t, repo)
		require.NotNil(t, tokens)
	})
	require.NoError(t, err)
	require.Equal(t, cfg.DBPath, opened)
}

func TestContainerBuilder_MustBuild_LogsFatalOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	builder := NewContainerBuilder().
		WithDBOpen(localstore.Open).
		WithLogFatalf(func(format string, args ...interface{}) {
			require.FailNowf(t, "logFatalf must not be called", format, args...)
		})

	c := builder.MustBuild(ctx)
	require.NotNil(t, c)
}
