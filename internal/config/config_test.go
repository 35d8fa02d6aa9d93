package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"courier-driver-agent/internal/config"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	old := pflag.CommandLine
	oldArgs := os.Args
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	os.Args = []string{oldArgs[0]}
	t.Cleanup(func() {
		pflag.CommandLine = old
		os.Args = oldArgs
	})
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DIAG_ADDR", "AGENT_DB_PATH", "DISPATCH_API_URL", "DISPATCH_WS_URL",
		"HEARTBEAT_INTERVAL", "RECONNECT_BASE_DELAY", "RECONNECT_MAX_DELAY",
		"DISPATCH_TIMEOUT", "GATEWAY_RETRY_BASE_DELAY", "GATEWAY_RETRY_MAX_DELAY",
		"GATEWAY_MAX_ATTEMPTS", "LOCATION_MIN_INTERVAL", "LOCATION_MIN_DISTANCE_M",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, "127.0.0.1:6060", cfg.DiagAddr)
	require.Equal(t, "driver-agent.db", cfg.DBPath)

	require.Equal(t, "ws://localhost:8000/api/v1/drivers/ws", cfg.Realtime.WSURL)
	require.Equal(t, 25*time.Second, cfg.Realtime.Heartbeat)
	require.Equal(t, time.Second, cfg.Realtime.BackoffBase)
	require.Equal(t, 30*time.Second, cfg.Realtime.BackoffMax)

	require.Equal(t, "http://localhost:8000/api/v1", cfg.Dispatch.BaseURL)
	require.Equal(t, 4, cfg.Dispatch.MaxAttempts)

	require.Equal(t, float64(50), cfg.Location.MinDistanceMeters)
	require.Equal(t, 10*time.Second, cfg.Location.MinInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("DIAG_ADDR", "127.0.0.1:7070")
	t.Setenv("AGENT_DB_PATH", "/tmp/agent.db")
	t.Setenv("DISPATCH_API_URL", "http://dispatch:9000/api/v1")
	t.Setenv("DISPATCH_WS_URL", "ws://dispatch:9000/api/v1/drivers/ws")
	t.Setenv("HEARTBEAT_INTERVAL", "10s")
	t.Setenv("GATEWAY_MAX_ATTEMPTS", "2")
	t.Setenv("LOCATION_MIN_INTERVAL", "5s")
	t.Setenv("LOCATION_MIN_DISTANCE_M", "25")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, "127.0.0.1:7070", cfg.DiagAddr)
	require.Equal(t, "/tmp/agent.db", cfg.DBPath)
	require.Equal(t, "http://dispatch:9000/api/v1", cfg.Dispatch.BaseURL)
	require.Equal(t, "ws://dispatch:9000/api/v1/drivers/ws", cfg.Realtime.WSURL)
	require.Equal(t, 10*time.Second, cfg.Realtime.Heartbeat)
	require.Equal(t, 2, cfg.Dispatch.MaxAttempts)
	require.Equal(t, 5*time.Second, cfg.Location.MinInterval)
	require.Equal(t, float64(25), cfg.Location.MinDistanceMeters)
}

func TestLoad_InvalidDuration(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("HEARTBEAT_INTERVAL", "soon")

	cfg, err := config.Load()
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	resetFlags(t)
	clearEnv(t)

	t.Setenv("GATEWAY_MAX_ATTEMPTS", "0")

	cfg, err := config.Load()
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_FlagsParseError(t *testing.T) {
	oldArgs := os.Args
	oldCommandLine := pflag.CommandLine

	defer func() {
		os.Args = oldArgs
		pflag.CommandLine = oldCommandLine
	}()

	clearEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	pflag.CommandLine = fs
	os.Args = []string{"cmd", "--unknown-flag=1"}

	cfg, err := config.Load()

	require.Error(t, err)
	require.Nil(t, cfg)
	require.Contains(t, err.Error(), "parse flags")
}
