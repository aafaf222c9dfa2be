package shared

import (
	"errors"
	"sync"
)

// ErrSaveInFlight indicates a save is already running for the same customer.
var ErrSaveInFlight = errors.New("save already in flight for customer")

// SaveGuard prevents re-entrant create/update invocations for the same
// customer from a single process. The ledger assumes one local writer; the
// guard catches double submits from the calling surface, it is not a
// distributed lock.
type SaveGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSaveGuard constructs a SaveGuard.
func NewSaveGuard() *SaveGuard {
	return &SaveGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks the customer as having a save in flight. The returned release
// function must be called when the save finishes.
func (g *SaveGuard) Acquire(customerID string) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[customerID]; busy {
		return nil, ErrSaveInFlight
	}
	g.inFlight[customerID] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inFlight, customerID)
		g.mu.Unlock()
	}, nil
}
