package presence

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// PermissionRequester asks the device for location access. Implementations
// return apperr.PermissionDenied (wrapped or bare) on refusal.
type PermissionRequester interface {
	Request(ctx context.Context) error
}

// Session is the realtime connection driven by one online period.
type Session interface {
	Run(ctx context.Context) error
	Send(loc domain.Location)
}

// Store receives presence, location and reconciliation effects.
type Store interface {
	SetPresence(p domain.Presence)
	SetLocation(loc *domain.Location)
	Reconcile(ctx context.Context) error
}
