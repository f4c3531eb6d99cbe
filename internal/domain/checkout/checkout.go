// Package checkout turns a finalized cart into an order on the remote
// order-processing API and clears the cart once the order is acknowledged.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/myshop/storefront/internal/domain/cart"
)

// ErrEmptyCart is returned when checkout is attempted with no items.
var ErrEmptyCart = errors.New("cart is empty")

// AddressError indicates a required delivery address field is missing.
type AddressError struct {
	Field string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address field %s is required", e.Field)
}

// Address is the delivery address for an order. Every field is required.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Validate reports the first missing field, if any.
func (a Address) Validate() error {
	for _, f := range []struct {
		name, value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	} {
		if f.value == "" {
			return &AddressError{Field: f.name}
		}
	}
	return nil
}

// OrderItem is one cart line reduced to the fields the order API records.
type OrderItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	ImageURL  string
}

// OrderRequest is the order-creation payload handed to the Gateway.
//
// Pricing policy is flat free-shipping/no-tax: Shipping and Tax are always
// zero and Total equals Subtotal.
type OrderRequest struct {
	Items         []OrderItem
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	TotalQuantity int
	Address       Address
	CustomerID    string
	OrderedAt     time.Time
	Status        string
}

// Confirmation is the order API's acknowledgement of a created order.
type Confirmation struct {
	OrderID string
	Status  string
}

// Gateway submits order-creation requests to the remote order API. A nil
// error means the remote service acknowledged the order.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Confirmation, error)
}

// Service coordinates order placement: it snapshots the customer's cart,
// submits it, and clears the cart exactly once on success. A failed
// submission leaves the cart untouched so the customer can resubmit; there
// is no automatic retry.
type Service struct {
	carts         cart.Store
	gateway       Gateway
	submitTimeout time.Duration
	now           func() time.Time
}

// NewService creates a checkout Service. submitTimeout bounds each
// order-submission call; zero disables the bound.
func NewService(carts cart.Store, gateway Gateway, submitTimeout time.Duration) *Service {
	return &Service{
		carts:         carts,
		gateway:       gateway,
		submitTimeout: submitTimeout,
		now:           time.Now,
	}
}

// PlaceOrder submits the customer's cart with the given delivery address.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, addr Address) (*Confirmation, error) {
	c, err := s.carts.Load(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	req := buildOrderRequest(c.Snapshot(), addr, customerID, s.now().UTC())

	submitCtx := ctx
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	conf, err := s.gateway.CreateOrder(submitCtx, req)
	if err != nil {
		// Cart stays as it was; the caller surfaces the failure.
		return nil, errors.Wrap(err, "submit order")
	}

	c.Clear()
	if err := s.carts.Save(ctx, customerID, c); err != nil {
		return nil, errors.Wrap(err, "clear cart after order")
	}

	return conf, nil
}

func buildOrderRequest(snap cart.Snapshot, addr Address, customerID string, orderedAt time.Time) OrderRequest {
	items := make([]OrderItem, len(snap.Items))
	for i, li := range snap.Items {
		items[i] = OrderItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     li.Price,
			Quantity:  li.Quantity,
			ImageURL:  li.Image.Thumbnail,
		}
	}

	subtotal := snap.TotalAmount.Round(2)
	return OrderRequest{
		Items:         items,
		Subtotal:      subtotal,
		Shipping:      decimal.Zero,
		Tax:           decimal.Zero,
		Total:         subtotal,
		TotalQuantity: snap.TotalQuantity,
		Address:       addr,
		CustomerID:    customerID,
		OrderedAt:     orderedAt,
		Status:        "pending",
	}
}
