package location

import (
	"context"

	"courier-driver-agent/internal/domain"
)

// Source produces a lazy, restartable stream of position samples. Watch may
// be called again after the previous stream's context ended; the returned
// channel closes when ctx does.
type Source interface {
	Watch(ctx context.Context) (<-chan domain.Location, error)
}
