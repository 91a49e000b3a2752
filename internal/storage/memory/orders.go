package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// CreateOrder persists a new order. The store keeps its own copy; callers
// never share memory with it.
func (s *Store) CreateOrder(ctx context.Context, order *types.Order) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("%w: order %s", types.ErrAlreadyExists, order.ID)
	}
	s.orders[order.ID] = &orderEntry{o: *order}
	s.orderSeq = append(s.orderSeq, order.ID)
	return nil
}

// GetOrder retrieves a copy of the order by id.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	e, ok := s.lookupOrder(id)
	if !ok {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.o
	return &o, nil
}

// ListOrders returns orders matching the filter, created_at ascending.
func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, error) {
	snapshot := s.snapshotOrders()

	matched := snapshot[:0]
	for _, o := range snapshot {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Side != "" && o.Side != filter.Side {
			continue
		}
		if filter.Owner != "" && o.ProsumerAddress != filter.Owner {
			continue
		}
		matched = append(matched, o)
	}

	lo, hi := paginate(len(matched), filter.Page, filter.Limit)
	return matched[lo:hi], nil
}

// ActiveOrders returns Active, non-expired orders with remaining amount for
// one side, created_at ascending.
func (s *Store) ActiveOrders(ctx context.Context, side types.Side, now time.Time) ([]*types.Order, error) {
	snapshot := s.snapshotOrders()

	active := snapshot[:0]
	for _, o := range snapshot {
		if o.Side == side && o.Matchable(now) {
			active = append(active, o)
		}
	}
	return active, nil
}

// CancelOrder transitions an Active order to Cancelled. The ownership and
// status checks happen under the entry lock, so a concurrent settlement and
// a cancellation can never both win.
func (s *Store) CancelOrder(ctx context.Context, id uuid.UUID, requester string, admin bool) (*types.Order, error) {
	e, ok := s.lookupOrder(id)
	if !ok {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !admin && e.o.ProsumerAddress != requester {
		return nil, fmt.Errorf("%w: order %s is not owned by %q", types.ErrForbidden, id, requester)
	}
	if e.o.Status != types.OrderActive {
		return nil, fmt.Errorf("%w: order %s is %s", types.ErrInvalidState, id, e.o.Status)
	}

	e.o.Status = types.OrderCancelled
	e.o.UpdatedAt = time.Now().UTC()
	o := e.o
	return &o, nil
}

// ExpireDue sweeps past-expiry Active orders into the Expired status.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	s.ordersMu.RLock()
	entries := make([]*orderEntry, 0, len(s.orders))
	for _, e := range s.orders {
		entries = append(entries, e)
	}
	s.ordersMu.RUnlock()

	var swept int64
	for _, e := range entries {
		e.mu.Lock()
		if e.o.Status == types.OrderActive && e.o.IsExpired(now) {
			e.o.Status = types.OrderExpired
			e.o.UpdatedAt = now
			swept++
		}
		e.mu.Unlock()
	}
	return swept, nil
}

// snapshotOrders copies every order in creation order.
func (s *Store) snapshotOrders() []*types.Order {
	s.ordersMu.RLock()
	entries := make([]*orderEntry, 0, len(s.orderSeq))
	for _, id := range s.orderSeq {
		entries = append(entries, s.orders[id])
	}
	s.ordersMu.RUnlock()

	snapshot := make([]*types.Order, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		o := e.o
		e.mu.Unlock()
		snapshot = append(snapshot, &o)
	}
	return snapshot
}
