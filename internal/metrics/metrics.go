package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the agent's Prometheus collectors.
type Metrics struct {
	SessionReconnects prometheus.Counter
	FramesDropped     prometheus.Counter
	LocationsSent     prometheus.Counter
	GatewayRetries    prometheus.Counter
	ActiveOrders      prometheus.Gauge
	SessionOpen       prometheus.Gauge
}

// New builds the agent metric set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionReconnects: NewSessionReconnectsTotal(),
		FramesDropped:     NewSessionFramesDroppedTotal(),
		LocationsSent:     NewLocationUpdatesSentTotal(),
		GatewayRetries:    NewGatewayRetriesTotal(),
		ActiveOrders:      NewActiveOrders(),
		SessionOpen:       NewSessionOpen(),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionReconnects,
			m.FramesDropped,
			m.LocationsSent,
			m.GatewayRetries,
			m.ActiveOrders,
			m.SessionOpen,
		)
	}
	return m
}

// NewSessionReconnectsTotal returns a Prometheus counter for the number of reconnect attempts scheduled by the realtime session
func NewSessionReconnectsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_reconnects_total",
		Help: "Total number of reconnect attempts scheduled by the realtime session",
	})
}

// NewSessionFramesDroppedTotal returns a Prometheus counter for the number of inbound frames dropped as malformed or unknown
func NewSessionFramesDroppedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_frames_dropped_total",
		Help: "Total number of inbound frames dropped as malformed or unknown",
	})
}

// NewLocationUpdatesSentTotal returns a Prometheus counter for the number of location frames sent over the session
func NewLocationUpdatesSentTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "location_updates_sent_total",
		Help: "Total number of location frames sent over the session",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by the dispatch gateway
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by the dispatch gateway",
	})
}

// NewActiveOrders returns a Prometheus gauge for the current number of active orders
func NewActiveOrders() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_orders",
		Help: "Current number of active orders held by the courier",
	})
}

// NewSessionOpen returns a Prometheus gauge that is 1 while the realtime session is open
func NewSessionOpen() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_open",
		Help: "1 while the realtime session is open, 0 otherwise",
	})
}
