package orders

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps orders in process memory. Useful for tests and for
// running the watcher without configuring a database.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]LimitOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]LimitOrder)}
}

func (s *MemoryStore) Create(_ context.Context, order LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return LimitOrder{}, ErrNotFound
	}
	return order, nil
}

func (s *MemoryStore) List(_ context.Context) ([]LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LimitOrder, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order)
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status Status) ([]LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LimitOrder
	for _, order := range s.orders {
		if order.Status == status {
			out = append(out, order)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, from, to Status, trigger *Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if order.Status != from {
		return ErrConflict
	}
	order.Status = to
	if trigger != nil {
		t := *trigger
		order.Trigger = &t
	}
	s.orders[id] = order
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortByCreated(orders []LimitOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
