// Package idempotency guards against invoicing one order twice.
package idempotency

import (
	"context"
	"sync"
)

//go:generate mockgen -source=guard.go -destination=../mocks/mock_guard.go -package=mocks

// Guard records which orders were already handled.
type Guard interface {
	// HasProcessed reports whether orderID was handled before.
	HasProcessed(ctx context.Context, orderID int64) (bool, error)
	// MarkProcessed records orderID as handled. documentID is the remote
	// invoice id, or 0 when the marker only means "seen".
	MarkProcessed(ctx context.Context, orderID, documentID int64) error
}

// MemoryGuard is an in-process Guard. It lives as long as its owner.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[int64]int64
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[int64]int64)}
}

// HasProcessed implements Guard.
func (g *MemoryGuard) HasProcessed(_ context.Context, orderID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[orderID]
	return ok, nil
}

// MarkProcessed implements Guard.
func (g *MemoryGuard) MarkProcessed(_ context.Context, orderID, documentID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[orderID] = documentID
	return nil
}

// CheckAndMark marks orderID and reports whether it had been marked before.
// The check and the mark happen atomically.
func (g *MemoryGuard) CheckAndMark(orderID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[orderID]; ok {
		return true
	}
	g.seen[orderID] = 0
	return false
}

// Forget removes orderID so a later call may handle it again.
func (g *MemoryGuard) Forget(orderID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, orderID)
}

var _ Guard = (*MemoryGuard)(nil)
