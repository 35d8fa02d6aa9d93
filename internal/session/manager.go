package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"courier-driver-agent/internal/backoff"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
)

// State is the session connection state.
type State string

// List of possible session states
const (
	StateClosed       State = "closed"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
)

// Status is a snapshot of the session state machine.
type Status struct {
	State       State     `json:"state"`
	Attempt     int       `json:"attempt,omitempty"`
	NextRetryAt time.Time `json:"next_retry_at,omitempty"`
}

// Config stores session settings.
type Config struct {
	URL       string
	Heartbeat time.Duration
	Backoff   backoff.Policy
}

// Manager owns one logical duplex connection per online period. Run drives
// the Closed → Connecting → Open → Reconnecting loop until its context is
// cancelled; cancelling the context is the only way a new epoch starts.
type Manager struct {
	dialer  Dialer
	tokens  TokenSource
	offers  OfferSink
	cfg     Config
	clock   backoff.Clock
	logger  logx.Logger
	metrics Metrics

	// Timer hooks so tests drive reconnect and heartbeat scheduling
	// without real waits. The stop func releases the timer.
	newTimer  func(d time.Duration) (<-chan time.Time, func())
	newTicker func(d time.Duration) (<-chan time.Time, func())

	mu     sync.Mutex
	status Status
	conn   Conn
}

// New creates a session Manager.
func New(d Dialer, tokens TokenSource, offers OfferSink, cfg Config, clock backoff.Clock, logger logx.Logger, m Metrics) *Manager {
	if d == nil || tokens == nil || offers == nil {
		return nil
	}
	if clock == nil {
		clock = backoff.RealClock{}
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 25 * time.Second
	}
	return &Manager{
		dialer:  d,
		tokens:  tokens,
		offers:  offers,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: m,
		newTimer: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTimer(d)
			return t.C, func() { t.Stop() }
		},
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		status: Status{State: StateClosed},
	}
}

// Status returns a snapshot of the state machine.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Send transmits a position sample if the session is open. Samples are
// best-effort: when the session is not open, or the write fails, the sample
// is dropped without buffering or retry.
func (m *Manager) Send(loc domain.Location) {
	m.mu.Lock()
	conn := m.conn
	open := m.status.State == StateOpen
	m.mu.Unlock()
	if !open || conn == nil {
		return
	}

	frame, err := encodeLocation(loc)
	if err != nil {
		m.logger.Error("encode location", logx.Err(err))
		return
	}
	if err := conn.WriteMessage(frame); err != nil {
		m.logger.Debug("location send dropped", logx.Err(err))
		return
	}
	m.metrics.incLocationsSent()
}

// Run drives the session until ctx is cancelled. It always returns ctx's
// error; every other failure feeds the reconnect loop instead.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setClosed()

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.setStatus(Status{State: StateConnecting, Attempt: attempt})

		conn, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("session connect failed", logx.Int("attempt", attempt), logx.Err(err))
			if !m.waitRetry(ctx, attempt) {
				return ctx.Err()
			}
			attempt++
			continue
		}

		m.setOpen(conn)
		m.logger.Info("session open")
		attempt = 0

		err = m.serve(ctx, conn)
		m.clearOpen(conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("session lost", logx.Err(err))
		if !m.waitRetry(ctx, attempt) {
			return ctx.Err()
		}
		attempt++
	}
}

func (m *Manager) dial(ctx context.Context) (Conn, error) {
	token, err := m.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, err := m.dialer.Dial(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

// serve pumps the connection: a heartbeat ticker and a read loop. It returns
// when the transport fails or ctx is cancelled; the connection is closed
// either way.
func (m *Manager) serve(ctx context.Context, conn Conn) error {
	done := make(chan struct{})
	defer close(done)

	// Closing the conn is what unblocks ReadMessage.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	go m.heartbeat(ctx, conn, done)

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m.handleFrame(raw)
	}
}

func (m *Manager) heartbeat(ctx context.Context, conn Conn, done <-chan struct{}) {
	tick, stop := m.newTicker(m.cfg.Heartbeat)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-tick:
			if err := conn.WriteMessage(pingFrame); err != nil {
				// The read loop will observe the broken transport.
				_ = conn.Close()
				return
			}
		}
	}
}

// handleFrame processes one inbound frame in arrival order. The pong
// sentinel is discarded before any JSON decode; malformed or unknown frames
// are logged and dropped, never fatal to the session.
func (m *Manager) handleFrame(raw []byte) {
	if isPong(raw) {
		return
	}
	order, ok := decodeEnvelope(raw)
	if !ok {
		m.metrics.incFramesDropped()
		m.logger.Debug("frame dropped", logx.Int("size", len(raw)))
		return
	}
	m.logger.Info("new order pushed", logx.Int64("order_id", order.ID))
	m.offers.SetIncomingOffer(order)
}

// waitRetry blocks for the backoff delay of the given attempt. It returns
// false when ctx was cancelled while waiting.
func (m *Manager) waitRetry(ctx context.Context, attempt int) bool {
	delay := m.cfg.Backoff.Delay(attempt)
	m.setStatus(Status{
		State:       StateReconnecting,
		Attempt:     attempt,
		NextRetryAt: m.clock.Now().Add(delay),
	})
	m.metrics.incReconnects()

	wait, stop := m.newTimer(delay)
	defer stop()
	select {
	case <-ctx.Done():
		return false
	case <-wait:
		return true
	}
}

func (m *Manager) setStatus(st Status) {
	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
}

func (m *Manager) setOpen(conn Conn) {
	m.mu.Lock()
	m.status = Status{State: StateOpen}
	m.conn = conn
	m.mu.Unlock()
	m.metrics.setOpen(true)
}

func (m *Manager) clearOpen(conn Conn) {
	_ = conn.Close()
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	m.metrics.setOpen(false)
}

func (m *Manager) setClosed() {
	m.mu.Lock()
	m.status = Status{State: StateClosed}
	m.conn = nil
	m.mu.Unlock()
	m.metrics.setOpen(false)
}
