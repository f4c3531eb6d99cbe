// Package handler exposes the storefront API over HTTP: catalog proxying,
// cart mutations, and checkout.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/myshop/storefront/internal/domain/auth"
	"github.com/myshop/storefront/internal/domain/cart"
	"github.com/myshop/storefront/internal/domain/checkout"
	"github.com/myshop/storefront/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product and cart
	// responses. When empty, paths are returned as the catalog stores them.
	ImageBaseURL string
}

// Handler serves the storefront API, delegating business logic to the cart
// store, catalog source, and checkout service.
type Handler struct {
	products     product.Source
	carts        cart.Store
	checkout     *checkout.Service
	verifier     auth.Verifier
	imageBaseURL string

	cartMutations metric.Int64Counter
	ordersPlaced  metric.Int64Counter
}

// New constructs a Handler with the required dependencies. The meter provider
// feeds the cart-mutation and order counters.
func New(
	cfg Config,
	products product.Source,
	carts cart.Store,
	checkoutSvc *checkout.Service,
	verifier auth.Verifier,
	mp metric.MeterProvider,
) (*Handler, error) {
	meter := mp.Meter("github.com/myshop/storefront/internal/handler")

	cartMutations, err := meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Cart mutations by operation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart mutations counter")
	}
	ordersPlaced, err := meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Successfully placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}

	return &Handler{
		products:      products,
		carts:         carts,
		checkout:      checkoutSvc,
		verifier:      verifier,
		imageBaseURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		cartMutations: cartMutations,
		ordersPlaced:  ordersPlaced,
	}, nil
}

// Routes registers all API routes on mux. Catalog routes are public; cart
// and checkout routes require a verified identity.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.Handle("GET /api/cart", h.authenticated(h.getCart))
	mux.Handle("POST /api/cart/items", h.authenticated(h.addItem))
	mux.Handle("PATCH /api/cart/items/{id}", h.authenticated(h.updateItem))
	mux.Handle("POST /api/cart/items/{id}/adjust", h.authenticated(h.adjustItem))
	mux.Handle("DELETE /api/cart/items/{id}", h.authenticated(h.removeItem))
	mux.Handle("DELETE /api/cart", h.authenticated(h.clearCart))

	mux.Handle("POST /api/checkout", h.authenticated(h.placeOrder))
}

// imageURL resolves a possibly-relative image path against the configured
// base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return h.imageBaseURL + path
}
