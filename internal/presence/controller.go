package presence

import (
	"context"
	"fmt"
	"sync"

	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/location"
	"courier-driver-agent/internal/logx"
)

// Controller is the only component allowed to request location permission
// and to start or stop the location watch and the realtime session. The
// three are lifecycle-bound: one GoOnline starts them as a unit, one
// GoOffline tears them down before returning.
type Controller struct {
	perms     PermissionRequester
	source    location.Source
	session   Session
	store     Store
	newFilter func() *location.Filter
	logger    logx.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// NewController creates a presence Controller. newFilter builds a fresh
// coalescing filter per online period.
func NewController(
	perms PermissionRequester,
	source location.Source,
	session Session,
	store Store,
	newFilter func() *location.Filter,
	logger logx.Logger,
) *Controller {
	if perms == nil || source == nil || session == nil || store == nil {
		return nil
	}
	if newFilter == nil {
		newFilter = func() *location.Filter { return location.NewFilter(0, 0, nil) }
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Controller{
		perms:     perms,
		source:    source,
		session:   session,
		store:     store,
		newFilter: newFilter,
		logger:    logger,
	}
}

// Online reports whether an epoch is currently running.
func (c *Controller) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// GoOnline requests permission, starts the location watch and the session,
// and kicks off a reconcile. A second call supersedes the previous epoch:
// its timers and loops are fully stopped before the new ones start.
func (c *Controller) GoOnline(ctx context.Context) error {
	if err := c.perms.Request(ctx); err != nil {
		return fmt.Errorf("location permission: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	// The epoch outlives the GoOnline call; it ends only via GoOffline.
	epochCtx, cancel := context.WithCancel(context.Background())

	samples, err := c.source.Watch(epochCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start location watch: %w", err)
	}

	c.cancel = cancel
	wg := &sync.WaitGroup{}
	c.wg = wg

	c.store.SetPresence(domain.PresenceOnline)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := c.session.Run(epochCtx); err != nil && epochCtx.Err() == nil {
			c.logger.Error("session ended", logx.Err(err))
		}
	}()
	go func() {
		defer wg.Done()
		c.pump(samples)
	}()
	go func() {
		defer wg.Done()
		if err := c.store.Reconcile(epochCtx); err != nil && epochCtx.Err() == nil {
			c.logger.Warn("initial reconcile failed", logx.Err(err))
		}
	}()

	c.logger.Info("courier online")
	return nil
}

// GoOffline cancels the epoch and waits until every loop has exited: after
// it returns, no sample is sent and no reconnect fires. Calling it while
// already offline is a no-op.
func (c *Controller) GoOffline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.stopLocked()
	c.store.SetLocation(nil)
	c.store.SetPresence(domain.PresenceOffline)
	c.logger.Info("courier offline")
}

// stopLocked cancels the current epoch, if any, and waits for its loops.
func (c *Controller) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	if c.wg != nil {
		c.wg.Wait()
		c.wg = nil
	}
}

// pump forwards coalesced samples into the session and the local state.
// It exits when the source closes the channel (its context ended).
func (c *Controller) pump(samples <-chan domain.Location) {
	filter := c.newFilter()
	for loc := range samples {
		if !filter.Pass(loc) {
			continue
		}
		cp := loc
		c.store.SetLocation(&cp)
		c.session.Send(loc)
	}
}
