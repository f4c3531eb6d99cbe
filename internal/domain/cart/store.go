package cart

import "context"

// Store persists carts keyed by customer ID. Whether carts survive a service
// restart depends on the chosen implementation: the in-memory store matches
// the original session-lifetime behavior, the postgres store makes carts
// durable.
type Store interface {
	// Load returns the customer's cart, or a new empty cart when none is
	// stored yet.
	Load(ctx context.Context, customerID string) (*Cart, error)

	// Save persists the customer's cart, replacing any previous state.
	Save(ctx context.Context, customerID string, c *Cart) error

	// Delete discards the customer's cart entirely. Deleting an absent cart
	// is a no-op.
	Delete(ctx context.Context, customerID string) error
}
