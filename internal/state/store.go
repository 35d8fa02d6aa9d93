package state

import (
	"context"
	"fmt"
	"sync"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/logx"
)

// Snapshot is an immutable copy of the courier-visible state.
type Snapshot struct {
	Presence      domain.Presence  `json:"presence"`
	Location      *domain.Location `json:"location,omitempty"`
	IncomingOffer *domain.Order    `json:"incoming_offer,omitempty"`
	ActiveOrders  []domain.Order   `json:"active_orders"`
	LastNotice    string           `json:"last_notice,omitempty"`
}

// Store is the single source of truth for courier-visible order state.
// All mutation goes through one mutex; gateway calls are made outside it so
// a slow network never blocks readers.
type Store struct {
	mu        sync.Mutex
	presence  domain.Presence
	location  *domain.Location
	offer     *domain.Order
	active    []domain.Order
	notice    string
	accepting map[int64]struct{}

	subs    map[int]chan Snapshot
	nextSub int

	gateway   Gateway
	snapshots SnapshotSink
	logger    logx.Logger
}

// New creates a Store. snapshots may be nil to disable local persistence.
func New(gw Gateway, snapshots SnapshotSink, logger logx.Logger) *Store {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Store{
		presence:  domain.PresenceOffline,
		accepting: make(map[int64]struct{}),
		subs:      make(map[int]chan Snapshot),
		gateway:   gw,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel carrying state snapshots and a cancel func.
// The channel holds only the latest snapshot; slow consumers see coalesced
// updates, never a backlog. Cancel closes the channel; cancelling twice is
// harmless.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// SetPresence sets the courier presence.
func (s *Store) SetPresence(p domain.Presence) {
	s.mu.Lock()
	s.presence = p
	s.notifyLocked()
	s.mu.Unlock()
	s.persistPresence(p)
}

// Presence returns the current courier presence.
func (s *Store) Presence() domain.Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// SetLocation sets the last known device position; nil clears it.
func (s *Store) SetLocation(loc *domain.Location) {
	s.mu.Lock()
	if loc == nil {
		s.location = nil
	} else {
		cp := *loc
		s.location = &cp
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// SetIncomingOffer replaces the pending offer unconditionally; nil clears it.
// Last write wins: a fresher push supersedes whatever was showing.
func (s *Store) SetIncomingOffer(order *domain.Order) {
	s.mu.Lock()
	if order == nil {
		s.offer = nil
	} else {
		cp := *order
		s.offer = &cp
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// ActiveOrders returns a copy of the active-order set.
func (s *Store) ActiveOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.active...)
}

// DismissNotice clears the last transient error notice.
func (s *Store) DismissNotice() {
	s.mu.Lock()
	s.notice = ""
	s.notifyLocked()
	s.mu.Unlock()
}

// DeclineOffer clears the pending offer locally. The backend has no decline
// endpoint; the server is never told and may offer the order to someone else
// on its own timeout.
func (s *Store) DeclineOffer() {
	s.SetIncomingOffer(nil)
}

// AcceptOffer claims the offered order. Capacity is checked before any
// network call; accepting an id already in the active set is a no-op. On a
// business rejection the offer is cleared anyway since the opportunity is
// assumed gone.
func (s *Store) AcceptOffer(ctx context.Context, id int64) error {
	s.mu.Lock()
	if s.indexOfLocked(id) >= 0 {
		s.mu.Unlock()
		return nil
	}
	if _, inFlight := s.accepting[id]; inFlight {
		s.mu.Unlock()
		return nil
	}
	// In-flight accepts count toward capacity or two concurrent calls
	// with distinct ids could overshoot the cap.
	if len(s.active)+len(s.accepting) >= domain.MaxActiveOrders {
		s.mu.Unlock()
		return apperr.Capacity
	}
	s.accepting[id] = struct{}{}
	s.mu.Unlock()

	order, err := s.gateway.Accept(ctx, id)

	s.mu.Lock()
	delete(s.accepting, id)
	if s.offer != nil && s.offer.ID == id {
		s.offer = nil
	}
	if err != nil {
		s.notice = fmt.Sprintf("order %d could not be accepted", id)
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Warn("accept offer failed", logx.Int64("order_id", id), logx.Err(err))
		return fmt.Errorf("accept offer %d: %w", id, err)
	}
	if s.indexOfLocked(order.ID) < 0 {
		s.active = append(s.active, *order)
	}
	s.notifyLocked()
	active := append([]domain.Order(nil), s.active...)
	s.mu.Unlock()

	s.logger.Info("offer accepted", logx.Int64("order_id", order.ID))
	s.persistOrders(active)
	return nil
}

// AdvanceStatus moves an active order to its next status via the gateway.
// assigned requests picked_up; any other active status requests delivered.
// The confirmed server representation is applied: delivered removes the
// order, anything else replaces it in place.
func (s *Store) AdvanceStatus(ctx context.Context, id int64) error {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return apperr.NotFound
	}
	next := s.active[idx].Status.Next()
	s.mu.Unlock()

	order, err := s.gateway.UpdateStatus(ctx, id, next)
	if err != nil {
		s.mu.Lock()
		s.notice = fmt.Sprintf("order %d status update failed", id)
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Warn("advance status failed",
			logx.Int64("order_id", id),
			logx.String("next_status", string(next)),
			logx.Err(err),
		)
		return fmt.Errorf("advance order %d to %s: %w", id, next, err)
	}

	s.mu.Lock()
	idx = s.indexOfLocked(id)
	if idx >= 0 {
		if order.Status == domain.StatusDelivered {
			s.active = append(s.active[:idx], s.active[idx+1:]...)
		} else {
			s.active[idx] = *order
		}
	}
	s.notifyLocked()
	active := append([]domain.Order(nil), s.active...)
	s.mu.Unlock()

	s.logger.Info("order status advanced",
		logx.Int64("order_id", id),
		logx.String("status", string(order.Status)),
	)
	s.persistOrders(active)
	return nil
}

// Reconcile re-derives the active set from the authoritative server list.
// It replaces activeOrders wholesale and forces presence online when the
// set is non-empty. Safe to call redundantly; last fetch wins.
func (s *Store) Reconcile(ctx context.Context) error {
	orders, err := s.gateway.MyDeliveries(ctx)
	if err != nil {
		s.logger.Warn("reconcile failed", logx.Err(err))
		return fmt.Errorf("reconcile: %w", err)
	}

	active := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Active() {
			active = append(active, o)
		}
	}

	s.mu.Lock()
	s.active = active
	forcedOnline := false
	if len(active) > 0 && s.presence != domain.PresenceOnline {
		s.presence = domain.PresenceOnline
		forcedOnline = true
	}
	p := s.presence
	s.notifyLocked()
	cp := append([]domain.Order(nil), active...)
	s.mu.Unlock()

	s.logger.Info("reconciled active orders", logx.Int("count", len(active)))
	s.persistOrders(cp)
	if forcedOnline {
		s.persistPresence(p)
	}
	return nil
}

// Restore seeds the active set from a local snapshot before the first
// reconcile. It never overwrites server-derived state: a no-op once the
// active set is populated.
func (s *Store) Restore(orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) > 0 {
		return
	}
	for _, o := range orders {
		if o.Active() && len(s.active) < domain.MaxActiveOrders {
			s.active = append(s.active, o)
		}
	}
	s.notifyLocked()
}

func (s *Store) indexOfLocked(id int64) int {
	for i := range s.active {
		if s.active[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Presence:     s.presence,
		ActiveOrders: append([]domain.Order(nil), s.active...),
		LastNotice:   s.notice,
	}
	if s.location != nil {
		cp := *s.location
		snap.Location = &cp
	}
	if s.offer != nil {
		cp := *s.offer
		snap.IncomingOffer = &cp
	}
	return snap
}

// notifyLocked pushes the latest snapshot to every subscriber, coalescing
// when a subscriber has not drained the previous one.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) persistOrders(orders []domain.Order) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.ReplaceOrders(context.Background(), orders); err != nil {
		s.logger.Warn("order snapshot persist failed", logx.Err(err))
	}
}

func (s *Store) persistPresence(p domain.Presence) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SavePresence(context.Background(), p); err != nil {
		s.logger.Warn("presence persist failed", logx.Err(err))
	}
}
