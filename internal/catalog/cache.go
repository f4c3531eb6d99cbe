package catalog

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"

	"github.com/myshop/storefront/internal/domain/product"
)

// Cache is the local product snapshot store fronting the remote catalog.
// Implemented by the postgres catalog cache.
type Cache interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id string) (*product.Product, error)
	ListIDs(ctx context.Context) ([]string, error)
	Put(ctx context.Context, p product.Product) error
}

// Expected catalog size for sizing the bloom filter. The filter is only an
// optimization; overflow just raises the false-positive rate.
const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.01
)

var _ product.Source = (*CachedSource)(nil)

// CachedSource is a read-through cache over the remote catalog client.
//
// A bloom filter tracks the IDs present in the local cache: an ID the filter
// has never seen cannot be cached, so those lookups skip the cache query and
// go straight to the remote service. Fetched products are written back to
// the cache and added to the filter.
type CachedSource struct {
	remote product.Source
	cache  Cache

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCachedSource wraps remote with the given cache.
func NewCachedSource(remote product.Source, cache Cache) *CachedSource {
	return &CachedSource{
		remote: remote,
		cache:  cache,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
}

// Warm seeds the bloom filter from the IDs already present in the cache.
// Call once at startup; lookups work correctly without it, just slower.
func (s *CachedSource) Warm(ctx context.Context) error {
	ids, err := s.cache.ListIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "list cached ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.filter.AddString(id)
	}
	return nil
}

// List always goes to the remote catalog: the full listing must reflect the
// live catalog, not a stale snapshot. Results refresh the cache best-effort.
func (s *CachedSource) List(ctx context.Context) ([]product.Product, error) {
	products, err := s.remote.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if err := s.cache.Put(ctx, p); err != nil {
			// Cache refresh failure must not fail the listing.
			continue
		}
		s.addToFilter(p.ID)
	}
	return products, nil
}

// GetByID serves from the local cache when possible, falling back to the
// remote catalog and writing the result back.
func (s *CachedSource) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if s.mightBeCached(id) {
		p, err := s.cache.GetByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, product.ErrNotFound) {
			return nil, err
		}
		// Bloom false positive; fall through to remote.
	}

	p, err := s.remote.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, *p); err == nil {
		s.addToFilter(id)
	}
	return p, nil
}

func (s *CachedSource) mightBeCached(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.TestString(id)
}

func (s *CachedSource) addToFilter(id string) {
	s.mu.Lock()
	s.filter.AddString(id)
	s.mu.Unlock()
}
