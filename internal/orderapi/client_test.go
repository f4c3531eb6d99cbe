package orderapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myshop/storefront/internal/domain/auth"
	"github.com/myshop/storefront/internal/domain/checkout"
)

func testOrderRequest() checkout.OrderRequest {
	return checkout.OrderRequest{
		Items: []checkout.OrderItem{
			{
				ProductID: "p1",
				Name:      "Widget",
				Price:     decimal.RequireFromString("10.00"),
				Quantity:  2,
				ImageURL:  "/images/p1.jpg",
			},
		},
		Subtotal:      decimal.RequireFromString("20.00"),
		Shipping:      decimal.Zero,
		Tax:           decimal.Zero,
		Total:         decimal.RequireFromString("20.00"),
		TotalQuantity: 2,
		Address: checkout.Address{
			Street:     "1 Main St",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		CustomerID: "cust-1",
		OrderedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Status:     "pending",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ord-42","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := auth.WithToken(context.Background(), "tok-123")

	conf, err := c.CreateOrder(ctx, testOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, "ord-42", conf.OrderID)
	assert.Equal(t, "pending", conf.Status)

	// Wire shape checks against the captured payload.
	assert.Equal(t, "cust-1", captured["customerId"])
	assert.Equal(t, "pending", captured["status"])
	assert.Equal(t, "2025-03-14T09:30:00Z", captured["orderedAt"])
	assert.EqualValues(t, 20, captured["subtotal"])
	assert.EqualValues(t, 0, captured["shipping"])
	assert.EqualValues(t, 0, captured["tax"])
	assert.EqualValues(t, 20, captured["total"])
	assert.EqualValues(t, 2, captured["totalQuantity"])

	items, ok := captured["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "p1", item["productId"])
	assert.Equal(t, "Widget", item["name"])
	assert.EqualValues(t, 10, item["price"])
	assert.EqualValues(t, 2, item["quantity"])

	addr, ok := captured["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "62701", addr["postalCode"])
	assert.Equal(t, "US", addr["country"])
}

func TestCreateOrder_AcceptsOrderIdSpelling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"ord-7"}`))
	}))
	defer srv.Close()

	conf, err := NewClient(srv.URL).CreateOrder(context.Background(), testOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, "ord-7", conf.OrderID)
}

func TestCreateOrder_ServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"message":"incomplete address"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateOrder(context.Background(), testOrderRequest())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusUnprocessableEntity, subErr.Status)
	assert.Equal(t, "incomplete address", subErr.Message)
}

func TestCreateOrder_UnparseableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateOrder(context.Background(), testOrderRequest())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "order submission failed", subErr.Message)
}

func TestCreateOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"id":"too-late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).CreateOrder(ctx, testOrderRequest())
	require.ErrorIs(t, err, ErrSubmitTimeout)
}

func TestCreateOrder_MissingOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateOrder(context.Background(), testOrderRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing order id")
}
