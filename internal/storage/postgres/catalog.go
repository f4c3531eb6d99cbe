package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/myshop/storefront/internal/domain/product"
)

const (
	listCachedProductsSQL = `SELECT id, name, price, category, image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM catalog_cache ORDER BY id`

	getCachedProductSQL = `SELECT id, name, price, category, image_thumbnail, image_mobile, image_tablet, image_desktop
		FROM catalog_cache WHERE id = $1`

	listCachedProductIDsSQL = `SELECT id FROM catalog_cache ORDER BY id`

	upsertCachedProductSQL = `INSERT INTO catalog_cache (id, name, price, category, image_thumbnail, image_mobile, image_tablet, image_desktop, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			image_thumbnail = EXCLUDED.image_thumbnail,
			image_mobile = EXCLUDED.image_mobile,
			image_tablet = EXCLUDED.image_tablet,
			image_desktop = EXCLUDED.image_desktop,
			updated_at = now()`
)

// CatalogCache stores product snapshots fetched from the remote catalog so
// repeated cart-add validations avoid a remote round trip.
type CatalogCache struct {
	pool *pgxpool.Pool
}

// NewCatalogCache returns a CatalogCache that uses the given pool.
func NewCatalogCache(pool *pgxpool.Pool) *CatalogCache {
	return &CatalogCache{pool: pool}
}

// List returns all cached products ordered by ID.
func (c *CatalogCache) List(ctx context.Context) ([]product.Product, error) {
	rows, err := c.pool.Query(ctx, listCachedProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing cached products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a cached product, or product.ErrNotFound when absent.
func (c *CatalogCache) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := c.pool.Query(ctx, getCachedProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting cached product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting cached product %q: %w", id, err)
	}
	return &p, nil
}

// ListIDs returns the IDs of all cached products. Used to seed the bloom
// prefilter at startup.
func (c *CatalogCache) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, listCachedProductIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing cached product ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Put upserts a product snapshot into the cache.
func (c *CatalogCache) Put(ctx context.Context, p product.Product) error {
	_, err := c.pool.Exec(ctx, upsertCachedProductSQL,
		p.ID, p.Name, p.Price, p.Category,
		p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop,
	)
	if err != nil {
		return fmt.Errorf("caching product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &price, &p.Category,
		&p.Image.Thumbnail, &p.Image.Mobile, &p.Image.Tablet, &p.Image.Desktop,
	)
	p.Price = price
	return p, err
}
