package session

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// Conn is one established duplex connection.
type Conn interface {
	// ReadMessage blocks until the next inbound frame or a transport error.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one text frame. Safe for concurrent use.
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a connection to the realtime endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// TokenSource supplies the bearer token, re-read at every dial so a token
// refresh is honored on the next retry.
type TokenSource interface {
	Token() (string, error)
}

// OfferSink receives server-pushed orders.
type OfferSink interface {
	SetIncomingOffer(order *domain.Order)
}

// Counter is an increment-only metric (prometheus.Counter satisfies it).
type Counter interface {
	Inc()
}

// Gauge is a settable metric (prometheus.Gauge satisfies it).
type Gauge interface {
	Set(v float64)
}

// Metrics are the session's observability hooks; any field may be nil.
type Metrics struct {
	Reconnects    Counter
	FramesDropped Counter
	LocationsSent Counter
	Open          Gauge
}

func (m Metrics) incReconnects() {
	if m.Reconnects != nil {
		m.Reconnects.Inc()
	}
}

func (m Metrics) incFramesDropped() {
	if m.FramesDropped != nil {
		m.FramesDropped.Inc()
	}
}

func (m Metrics) incLocationsSent() {
	if m.LocationsSent != nil {
		m.LocationsSent.Inc()
	}
}

func (m Metrics) setOpen(open bool) {
	if m.Open == nil {
		return
	}
	if open {
		m.Open.Set(1)
	} else {
		m.Open.Set(0)
	}
}
