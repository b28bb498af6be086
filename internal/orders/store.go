package orders

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrConflict is returned when a compare-and-set transition observes a
	// status other than the one the caller expected. The losing writer must
	// re-read and give up or retry; it must never overwrite.
	ErrConflict = errors.New("order status conflict")
)

// Store is CRUD plus atomic status transitions for limit orders. All
// mutations of a given order serialize through Transition, which succeeds
// only when the stored status still equals from.
type Store interface {
	Create(ctx context.Context, order LimitOrder) error
	Get(ctx context.Context, id string) (LimitOrder, error)
	List(ctx context.Context) ([]LimitOrder, error)
	ListByStatus(ctx context.Context, status Status) ([]LimitOrder, error)
	Transition(ctx context.Context, id string, from, to Status, trigger *Trigger) error
	Delete(ctx context.Context, id string) error
	Close() error
}
