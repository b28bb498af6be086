// Package engine drives swap and bridge executions through their state
// machines. Each executor owns the state record it creates, emits every
// transition to its caller, and translates collaborator failures into a
// terminal error state with a machine-readable category.
package engine

import (
	"fmt"
	"sync"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

// Inflight rejects a second concurrent execution for the same logical key
// (chain + request id). Duplicate submissions would race the wallet for
// nonces and can double-sign.
type Inflight struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewInflight() *Inflight {
	return &Inflight{keys: make(map[string]bool)}
}

func executionKey(chainID int64, requestID string) string {
	return fmt.Sprintf("%d:%s", chainID, requestID)
}

func (r *Inflight) acquire(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys[key] {
		return xerr.New(xerr.CodeUsage, fmt.Sprintf("execution already in flight for %s", key))
	}
	r.keys[key] = true
	return nil
}

func (r *Inflight) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
}
