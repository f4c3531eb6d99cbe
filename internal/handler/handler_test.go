package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/myshop/storefront/internal/domain/auth"
	"github.com/myshop/storefront/internal/domain/checkout"
	"github.com/myshop/storefront/internal/domain/product"
	"github.com/myshop/storefront/internal/storage/memory"
)

// --- Mocks ---

type mockCatalog struct {
	byID map[string]product.Product
}

func (m *mockCatalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

type mockVerifier struct{}

func (mockVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if token != "valid-token" {
		return nil, auth.ErrUnauthenticated
	}
	return &auth.Identity{CustomerID: "cust-1", Role: "customer"}, nil
}

type mockGateway struct {
	conf *checkout.Confirmation
	err  error
}

func (m *mockGateway) CreateOrder(_ context.Context, _ checkout.OrderRequest) (*checkout.Confirmation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conf, nil
}

// --- Setup ---

type fixture struct {
	mux   *http.ServeMux
	carts *memory.CartStore
}

func newFixture(t *testing.T, gw checkout.Gateway) *fixture {
	t.Helper()

	catalog := &mockCatalog{byID: map[string]product.Product{
		"p1": {
			ID:    "p1",
			Name:  "Widget",
			Price: decimal.RequireFromString("10.00"),
			Image: product.Image{Thumbnail: "/images/p1.jpg"},
		},
		"p2": {
			ID:    "p2",
			Name:  "Gadget",
			Price: decimal.RequireFromString("5.50"),
		},
	}}
	carts := memory.NewCartStore()
	if gw == nil {
		gw = &mockGateway{conf: &checkout.Confirmation{OrderID: "ord-1", Status: "pending"}}
	}
	svc := checkout.NewService(carts, gw, time.Second)

	h, err := New(
		Config{ImageBaseURL: "https://cdn.example.com"},
		catalog, carts, svc, mockVerifier{},
		noop.NewMeterProvider(),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Routes(mux)
	return &fixture{mux: mux, carts: carts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w, decoded
}

// --- Tests ---

func TestGetCart_EmptyByDefault(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
	assert.EqualValues(t, 0, body["totalQuantity"])
	assert.EqualValues(t, 0, body["totalAmount"])
}

func TestCartRoutes_RequireAuth(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProducts_ArePublic(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products/p1", nil)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Widget", body["name"])
	image := body["image"].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/images/p1.jpg", image["thumbnail"],
		"relative image paths are resolved against the base URL")
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["totalQuantity"])
	assert.EqualValues(t, 10, body["totalAmount"])
}

func TestAddItem_MergesAndTotals(t *testing.T) {
	f := newFixture(t, nil)

	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p2","quantity":1}`)
	w, body := f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":3}`)

	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	require.Len(t, items, 2, "adding an existing product must merge")
	assert.EqualValues(t, 6, body["totalQuantity"])
	assert.EqualValues(t, 55.5, body["totalAmount"])
}

func TestAddItem_UnknownProduct(t *testing.T) {
	f := newFixture(t, nil)

	w, body := f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", body["message"])
}

func TestAddItem_NegativeQuantityRejected(t *testing.T) {
	f := newFixture(t, nil)

	w, _ := f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":-2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	_, body := f.do(t, http.MethodGet, "/api/cart", "")
	assert.EqualValues(t, 0, body["totalQuantity"], "rejected input must not change the cart")
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)

	w, body := f.do(t, http.MethodPatch, "/api/cart/items/p1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, body["totalQuantity"])
	assert.EqualValues(t, 50, body["totalAmount"])
}

func TestUpdateItem_ZeroQuantityRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)

	w, _ := f.do(t, http.MethodPatch, "/api/cart/items/p1", `{"quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateItem_NotInCart(t *testing.T) {
	f := newFixture(t, nil)

	w, _ := f.do(t, http.MethodPatch, "/api/cart/items/p1", `{"quantity":5}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdjustItem_DecrementToZeroRemoves(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)

	w, body := f.do(t, http.MethodPost, "/api/cart/items/p1/adjust", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
	assert.EqualValues(t, 0, body["totalQuantity"])
	assert.EqualValues(t, 0, body["totalAmount"])
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":3}`)

	w, body := f.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])

	w, _ = f.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":3}`)

	w, body := f.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["totalQuantity"])

	// Clearing again is idempotent.
	w, _ = f.do(t, http.MethodDelete, "/api/cart", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

const checkoutBody = `{"address":{"street":"1 Main St","city":"Springfield","state":"IL","postalCode":"62701","country":"US"}}`

func TestCheckout_SuccessClearsCart(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)

	w, body := f.do(t, http.MethodPost, "/api/checkout", checkoutBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ord-1", body["orderId"])

	_, cartBody := f.do(t, http.MethodGet, "/api/cart", "")
	assert.Empty(t, cartBody["items"])
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	w, _ := f.do(t, http.MethodPost, "/api/checkout", checkoutBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_BadAddress(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1"}`)

	w, body := f.do(t, http.MethodPost, "/api/checkout",
		`{"address":{"street":"1 Main St","city":"Springfield","state":"IL","postalCode":"62701"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, body["message"], "country")
}

func TestCheckout_GatewayFailurePreservesCart(t *testing.T) {
	f := newFixture(t, &mockGateway{err: errors.New("boom")})
	f.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)

	w, _ := f.do(t, http.MethodPost, "/api/checkout", checkoutBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	_, cartBody := f.do(t, http.MethodGet, "/api/cart", "")
	assert.EqualValues(t, 2, cartBody["totalQuantity"], "failed submission keeps the cart intact")
}
