package config

import "time"

const (
	defaultDiagAddr = "127.0.0.1:6060"
	defaultDBPath   = "driver-agent.db"
)

var defaultRealtime = Realtime{
	WSURL:        "ws://localhost:8000/api/v1/drivers/ws",
	Heartbeat:    25 * time.Second,
	BackoffBase:  time.Second,
	BackoffMax:   30 * time.Second,
	WriteTimeout: 5 * time.Second,
}

var defaultDispatch = Dispatch{
	BaseURL:        "http://localhost:8000/api/v1",
	Timeout:        10 * time.Second,
	MaxAttempts:    4,
	RetryBaseDelay: 150 * time.Millisecond,
	RetryMaxDelay:  2 * time.Second,
}

var defaultLocationPolicy = LocationPolicy{
	MinDistanceMeters: 50,
	MinInterval:       10 * time.Second,
}

// DefaultRealtime returns the default realtime session settings.
func DefaultRealtime() Realtime {
	return defaultRealtime
}

// DefaultDispatch returns the default dispatch gateway settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultLocationPolicy returns the default location coalescing settings.
func DefaultLocationPolicy() LocationPolicy {
	return defaultLocationPolicy
}
