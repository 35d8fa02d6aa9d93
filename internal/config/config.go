package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Realtime stores the duplex session settings.
type Realtime struct {
	WSURL        string
	Heartbeat    time.Duration
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	WriteTimeout time.Duration
}

// Dispatch stores the REST gateway settings.
type Dispatch struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// LocationPolicy bounds how often position samples leave the device.
// A sample is emitted when either threshold trips.
type LocationPolicy struct {
	MinDistanceMeters float64
	MinInterval       time.Duration
}

// Config stores driver agent settings.
type Config struct {
	DiagAddr string
	DBPath   string
	Realtime Realtime
	Dispatch Dispatch
	Location LocationPolicy
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		DiagAddr: defaultDiagAddr,
		DBPath:   defaultDBPath,
		Realtime: DefaultRealtime(),
		Dispatch: DefaultDispatch(),
		Location: DefaultLocationPolicy(),
	}

	if v := os.Getenv("DIAG_ADDR"); v != "" {
		cfg.DiagAddr = v
	}
	if v := os.Getenv("AGENT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DISPATCH_API_URL"); v != "" {
		cfg.Dispatch.BaseURL = v
	}
	if v := os.Getenv("DISPATCH_WS_URL"); v != "" {
		cfg.Realtime.WSURL = v
	}

	var err error
	if cfg.Realtime.Heartbeat, err = envDuration("HEARTBEAT_INTERVAL", cfg.Realtime.Heartbeat); err != nil {
		return nil, err
	}
	if cfg.Realtime.BackoffBase, err = envDuration("RECONNECT_BASE_DELAY", cfg.Realtime.BackoffBase); err != nil {
		return nil, err
	}
	if cfg.Realtime.BackoffMax, err = envDuration("RECONNECT_MAX_DELAY", cfg.Realtime.BackoffMax); err != nil {
		return nil, err
	}
	if cfg.Dispatch.Timeout, err = envDuration("DISPATCH_TIMEOUT", cfg.Dispatch.Timeout); err != nil {
		return nil, err
	}
	if cfg.Dispatch.RetryBaseDelay, err = envDuration("GATEWAY_RETRY_BASE_DELAY", cfg.Dispatch.RetryBaseDelay); err != nil {
		return nil, err
	}
	if cfg.Dispatch.RetryMaxDelay, err = envDuration("GATEWAY_RETRY_MAX_DELAY", cfg.Dispatch.RetryMaxDelay); err != nil {
		return nil, err
	}
	if cfg.Dispatch.MaxAttempts, err = envInt("GATEWAY_MAX_ATTEMPTS", cfg.Dispatch.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Location.MinInterval, err = envDuration("LOCATION_MIN_INTERVAL", cfg.Location.MinInterval); err != nil {
		return nil, err
	}
	if cfg.Location.MinDistanceMeters, err = envFloat("LOCATION_MIN_DISTANCE_M", cfg.Location.MinDistanceMeters); err != nil {
		return nil, err
	}

	pflag.StringVar(&cfg.DiagAddr, "diag-addr", cfg.DiagAddr, "address for the local diagnostics server")
	pflag.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the local sqlite state file")
	pflag.StringVar(&cfg.Dispatch.BaseURL, "api-url", cfg.Dispatch.BaseURL, "dispatch REST base URL")
	pflag.StringVar(&cfg.Realtime.WSURL, "ws-url", cfg.Realtime.WSURL, "dispatch realtime websocket URL")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Dispatch.BaseURL == "" {
		return fmt.Errorf("dispatch base URL must not be empty")
	}
	if c.Realtime.WSURL == "" {
		return fmt.Errorf("realtime websocket URL must not be empty")
	}
	if c.Realtime.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", c.Realtime.Heartbeat)
	}
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("gateway max attempts must be positive, got %d", c.Dispatch.MaxAttempts)
	}
	if c.Location.MinInterval <= 0 {
		return fmt.Errorf("location min interval must be positive, got %v", c.Location.MinInterval)
	}
	return nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func envFloat(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}
