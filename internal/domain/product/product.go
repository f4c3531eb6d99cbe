package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist in the
// catalog.
var ErrNotFound = errors.New("product not found")

// Product is the catalog view of an item available for purchase. The catalog
// itself is owned by a remote service; this type only carries the fields the
// storefront needs for cart display and order submission.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Image    Image
}

// Image holds responsive image URLs for a product. Paths may be relative;
// the handler layer rewrites them against the configured image base URL.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Source provides read access to the product catalog.
type Source interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
