package lending

import (
	"fmt"
	"sync"

	"github.com/elys-network/yieldvault/internal/types"
)

// Registry dispatches to the market registered for each provider tag.
type Registry struct {
	mu      sync.RWMutex
	markets [types.NumProviders]Market
}

func NewRegistry(markets ...Market) (*Registry, error) {
	r := &Registry{}
	for _, m := range markets {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register fails if the provider already has a market.
func (r *Registry) Register(m Market) error {
	p := m.Provider()
	if !p.Valid() {
		return fmt.Errorf("%w: provider %d", types.ErrInvalidAccount, uint8(p))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markets[p] != nil {
		return fmt.Errorf("%w: %s market already registered", types.ErrInvalidAccount, p)
	}
	r.markets[p] = m
	return nil
}

func (r *Registry) Get(p types.Provider) (Market, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: provider %d", types.ErrInvalidAccount, uint8(p))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.markets[p] == nil {
		return nil, fmt.Errorf("%w: no market for %s", types.ErrInsufficientAccounts, p)
	}
	return r.markets[p], nil
}

// Markets returns the registered markets in provider order.
func (r *Registry) Markets() []Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Market, 0, types.NumProviders)
	for _, m := range r.markets {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
