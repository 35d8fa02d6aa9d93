package state

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// Gateway defines the dispatch operations required by the store.
type Gateway interface {
	MyDeliveries(ctx context.Context) ([]domain.Order, error)
	Accept(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error)
}

// SnapshotSink receives write-through copies of the active set for local
// persistence. It is never read back by the store itself.
type SnapshotSink interface {
	ReplaceOrders(ctx context.Context, orders []domain.Order) error
	SavePresence(ctx context.Context, p domain.Presence) error
}
