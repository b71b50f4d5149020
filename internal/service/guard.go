package service

import (
	"fmt"
	"sync"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// Guard serializes destructive mutations per tree version. A second
// mutation against a version that already has one in flight fails fast
// with domain.ErrBusy instead of queueing.
type Guard struct {
	mu   sync.Mutex
	busy map[string]bool
}

func NewGuard() *Guard {
	return &Guard{busy: make(map[string]bool)}
}

// Acquire marks versionID busy. The returned release must be called once
// the mutation has finished, successfully or not.
func (g *Guard) Acquire(versionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[versionID] {
		return nil, fmt.Errorf("tree version %s: %w", versionID, domain.ErrBusy)
	}
	g.busy[versionID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, versionID)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether a mutation is in flight for versionID.
func (g *Guard) Busy(versionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[versionID]
}
