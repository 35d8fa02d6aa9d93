package diag

import (
	"context"

	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/session"
	"courier-driver-agent/internal/state"
)

// StateSource exposes the current order-state snapshot.
type StateSource interface {
	Snapshot() state.Snapshot
}

// SessionSource exposes the realtime connection status.
type SessionSource interface {
	Status() session.Status
}

// DispatchSource exposes the backend's browse and history reads.
type DispatchSource interface {
	Available(ctx context.Context) ([]domain.Order, error)
	History(ctx context.Context, limit int) ([]domain.Order, error)
}
