package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/myshop/storefront/internal/domain/cart"
	"github.com/myshop/storefront/internal/domain/product"
)

const (
	getCartSQL = `SELECT items FROM carts WHERE customer_id = $1`

	upsertCartSQL = `INSERT INTO carts (customer_id, items, total_quantity, total_amount, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (customer_id) DO UPDATE
		SET items = EXCLUDED.items,
			total_quantity = EXCLUDED.total_quantity,
			total_amount = EXCLUDED.total_amount,
			updated_at = now()`

	deleteCartSQL = `DELETE FROM carts WHERE customer_id = $1`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by PostgreSQL. Line items live in a
// JSONB column; the aggregate columns are denormalized for reporting and
// recomputed from the items on load.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// lineItemRow is the JSONB representation of one cart line.
type lineItemRow struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Mobile    string          `json:"mobile,omitempty"`
	Tablet    string          `json:"tablet,omitempty"`
	Desktop   string          `json:"desktop,omitempty"`
}

// Load returns the customer's cart, or a fresh empty cart when no row exists.
func (s *CartStore) Load(ctx context.Context, customerID string) (*cart.Cart, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, getCartSQL, customerID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.New(), nil
		}
		return nil, fmt.Errorf("loading cart for %q: %w", customerID, err)
	}

	var rows []lineItemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding cart items for %q: %w", customerID, err)
	}

	items := make([]cart.LineItem, len(rows))
	for i, r := range rows {
		items[i] = cart.LineItem{
			ProductID: r.ProductID,
			Name:      r.Name,
			Price:     r.Price,
			Quantity:  r.Quantity,
			Image: product.Image{
				Thumbnail: r.Thumbnail,
				Mobile:    r.Mobile,
				Tablet:    r.Tablet,
				Desktop:   r.Desktop,
			},
		}
	}

	c, err := cart.Restore(items)
	if err != nil {
		return nil, fmt.Errorf("restoring cart for %q: %w", customerID, err)
	}
	return c, nil
}

// Save upserts the customer's cart row.
func (s *CartStore) Save(ctx context.Context, customerID string, c *cart.Cart) error {
	items := c.Items()
	rows := make([]lineItemRow, len(items))
	for i, li := range items {
		rows[i] = lineItemRow{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     li.Price,
			Quantity:  li.Quantity,
			Thumbnail: li.Image.Thumbnail,
			Mobile:    li.Image.Mobile,
			Tablet:    li.Image.Tablet,
			Desktop:   li.Image.Desktop,
		}
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding cart items for %q: %w", customerID, err)
	}

	_, err = s.pool.Exec(ctx, upsertCartSQL,
		customerID, raw, c.TotalQuantity(), c.TotalAmount(),
	)
	if err != nil {
		return fmt.Errorf("saving cart for %q: %w", customerID, err)
	}
	return nil
}

// Delete removes the customer's cart row. Deleting an absent cart is a no-op.
func (s *CartStore) Delete(ctx context.Context, customerID string) error {
	_, err := s.pool.Exec(ctx, deleteCartSQL, customerID)
	if err != nil {
		return fmt.Errorf("deleting cart for %q: %w", customerID, err)
	}
	return nil
}
