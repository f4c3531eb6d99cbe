// Package memory provides in-process storage implementations. Carts stored
// here live for the lifetime of the service process, matching the original
// session-scoped behavior.
package memory

import (
	"context"
	"sync"

	"github.com/myshop/storefront/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps carts in a mutex-guarded map keyed by customer ID.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string][]cart.LineItem
}

// NewCartStore returns an empty in-memory cart store.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string][]cart.LineItem)}
}

// Load returns the customer's cart, or a fresh empty cart when none exists.
// The returned cart is rebuilt from stored line items, so callers never
// share mutable state with the store.
func (s *CartStore) Load(_ context.Context, customerID string) (*cart.Cart, error) {
	s.mu.RLock()
	items, ok := s.carts[customerID]
	s.mu.RUnlock()
	if !ok {
		return cart.New(), nil
	}
	return cart.Restore(items)
}

// Save replaces the customer's stored cart with the given cart's items.
func (s *CartStore) Save(_ context.Context, customerID string, c *cart.Cart) error {
	items := c.Items()
	s.mu.Lock()
	s.carts[customerID] = items
	s.mu.Unlock()
	return nil
}

// Delete discards the customer's cart.
func (s *CartStore) Delete(_ context.Context, customerID string) error {
	s.mu.Lock()
	delete(s.carts, customerID)
	s.mu.Unlock()
	return nil
}
