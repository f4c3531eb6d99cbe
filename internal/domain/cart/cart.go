// Package cart implements the shopping cart: an ordered set of line items
// unique by product ID, with derived totals recomputed on every mutation.
//
// All state is private and mutated only through the methods below, so the
// aggregate invariants (totalQuantity == sum of quantities, totalAmount ==
// sum of price*quantity, quantity >= 1 for every item) hold for every
// observable Cart value.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/myshop/storefront/internal/domain/product"
)

// Sentinel errors for cart input validation.
var (
	ErrInvalidProduct = fmt.Errorf("product id required")
)

// InvalidQuantityError indicates a quantity that is not a positive integer.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d", e.ProductID, e.Quantity)
}

// InvalidPriceError indicates a product carried a negative unit price.
type InvalidPriceError struct {
	ProductID string
	Price     decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price must not be negative for product %s, got %s", e.ProductID, e.Price)
}

// LineItem is one entry in the cart: a single product and its requested
// quantity. Name, Price, and Image are frozen at add time and never
// re-validated against the live catalog (snapshot policy).
type LineItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Image     product.Image
}

// Subtotal returns Price * Quantity for this line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart holds the line items and derived aggregates for one customer.
// The zero value is an empty, usable cart.
type Cart struct {
	items         []LineItem
	totalQuantity int
	totalAmount   decimal.Decimal
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{totalAmount: decimal.Zero}
}

// Restore rebuilds a cart from previously persisted line items. Aggregates
// are recomputed from the items rather than trusted from storage. Items with
// a duplicate product ID are merged; items failing validation are rejected.
func Restore(items []LineItem) (*Cart, error) {
	c := New()
	for _, li := range items {
		p := product.Product{
			ID:    li.ProductID,
			Name:  li.Name,
			Price: li.Price,
			Image: li.Image,
		}
		if err := c.Add(p, li.Quantity); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add puts qty units of p into the cart. If the product is already present
// its quantity is incremented (merge semantics); otherwise a new line item
// is appended. The product's name, price, and image are snapshotted as-is.
func (c *Cart) Add(p product.Product, qty int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if qty < 1 {
		return &InvalidQuantityError{ProductID: p.ID, Quantity: qty}
	}
	if p.Price.IsNegative() {
		return &InvalidPriceError{ProductID: p.ID, Price: p.Price}
	}

	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity += qty
	} else {
		c.items = append(c.items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
			Image:     p.Image,
		})
	}
	c.recompute()
	return nil
}

// UpdateQuantity replaces the quantity of the given product with an absolute
// value, which must be >= 1. It reports whether the product was present;
// an absent product is a no-op, not an error.
func (c *Cart) UpdateQuantity(productID string, qty int) (bool, error) {
	if qty < 1 {
		return false, &InvalidQuantityError{ProductID: productID, Quantity: qty}
	}
	i := c.index(productID)
	if i < 0 {
		return false, nil
	}
	c.items[i].Quantity = qty
	c.recompute()
	return true, nil
}

// AdjustQuantity applies a relative change to the given product's quantity.
// When the resulting quantity drops to zero or below, the line item is
// removed entirely, never left at a non-positive quantity. It reports
// whether the product was present.
func (c *Cart) AdjustQuantity(productID string, delta int) (bool, error) {
	i := c.index(productID)
	if i < 0 {
		return false, nil
	}
	next := c.items[i].Quantity + delta
	if next <= 0 {
		return c.Remove(productID), nil
	}
	return c.UpdateQuantity(productID, next)
}

// Remove deletes the line item for the given product regardless of its
// quantity. It reports whether anything was removed.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.recompute()
	return true
}

// Clear resets the cart to empty. Idempotent.
func (c *Cart) Clear() {
	c.items = nil
	c.recompute()
}

// Items returns a copy of the line items in insertion order. Mutating the
// returned slice does not affect the cart.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int { return len(c.items) }

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// TotalQuantity returns the sum of quantities across all line items.
func (c *Cart) TotalQuantity() int { return c.totalQuantity }

// TotalAmount returns the sum of price*quantity across all line items.
func (c *Cart) TotalAmount() decimal.Decimal { return c.totalAmount }

// Snapshot captures the cart's observable state at a point in time.
type Snapshot struct {
	Items         []LineItem
	TotalQuantity int
	TotalAmount   decimal.Decimal
}

// Snapshot returns an immutable copy of the cart's current state.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Items:         c.Items(),
		TotalQuantity: c.totalQuantity,
		TotalAmount:   c.totalAmount,
	}
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// recompute rebuilds both aggregates from the line items. Called after every
// mutation; aggregates are never settable independently.
func (c *Cart) recompute() {
	qty := 0
	amount := decimal.Zero
	for i := range c.items {
		qty += c.items[i].Quantity
		amount = amount.Add(c.items[i].Subtotal())
	}
	c.totalQuantity = qty
	c.totalAmount = amount
}
