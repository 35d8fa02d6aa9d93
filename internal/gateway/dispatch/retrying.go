package dispatch

import (
	"context"
	"errors"
	"time"

	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
)

type gateway interface {
	MyDeliveries(context.Context) ([]domain.Order, error)
	Available(context.Context) ([]domain.Order, error)
	History(context.Context, int) ([]domain.Order, error)
	Accept(context.Context, int64) (*domain.Order, error)
	UpdateStatus(context.Context, int64, domain.OrderStatus) (*domain.Order, error)
}

type counter interface {
	Inc()
}

// RetryConfig describes the retry behavior of RetryingGateway.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway retries transient dispatch failures with exponential
// backoff. Accept is deliberately passed through without retries: a repeated
// POST after an ambiguous failure could double-claim an order.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingGateway wraps next with retry behavior; returns nil if next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg}
}

// MyDeliveries fetches the delivery list, retrying transient failures.
func (g *RetryingGateway) MyDeliveries(ctx context.Context) ([]domain.Order, error) {
	return retry(ctx, g, "MyDeliveries", func(ctx context.Context) ([]domain.Order, error) {
		return g.next.MyDeliveries(ctx)
	})
}

// Available fetches claimable orders, retrying transient failures.
func (g *RetryingGateway) Available(ctx context.Context) ([]domain.Order, error) {
	return retry(ctx, g, "Available", func(ctx context.Context) ([]domain.Order, error) {
		return g.next.Available(ctx)
	})
}

// History fetches completed deliveries, retrying transient failures.
func (g *RetryingGateway) History(ctx context.Context, limit int) ([]domain.Order, error) {
	return retry(ctx, g, "History", func(ctx context.Context) ([]domain.Order, error) {
		return g.next.History(ctx, limit)
	})
}

// Accept claims an order. Exactly-once-if-available: never retried.
func (g *RetryingGateway) Accept(ctx context.Context, id int64) (*domain.Order, error) {
	return g.next.Accept(ctx, id)
}

// UpdateStatus advances an order's status, retrying transient failures.
// The PATCH is idempotent from the caller's perspective.
func (g *RetryingGateway) UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error) {
	return retry(ctx, g, "UpdateStatus", func(ctx context.Context) (*domain.Order, error) {
		return g.next.UpdateStatus(ctx, id, next)
	})
}

func retry[T any](ctx context.Context, g *RetryingGateway, method string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(err) {
			break
		}
		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("dispatch gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return zero, lastErr
}

// isRetryable treats server-side and throttling responses, plus plain
// transport errors, as transient. Business rejections are final.
func isRetryable(err error) bool {
	var st *StatusError
	if errors.As(err, &st) {
		return st.Code >= 500 || st.Code == 429
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Anything that never reached the backend (dial, reset, timeout).
	return !IsBusiness(err)
}

// backoff computes the retry delay for an attempt.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
