package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/myshop/storefront/internal/domain/cart"
)

// countMutation records one cart mutation in the meter.
func (h *Handler) countMutation(ctx context.Context, op string) {
	h.cartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// respondCart writes the cart state, the standard reply to every cart route.
func (h *Handler) respondCart(w http.ResponseWriter, status int, c *cart.Cart) {
	var e jx.Encoder
	h.encodeCart(&e, c.Snapshot())
	writeJSON(w, status, &e)
}

// getCart returns the customer's current cart with aggregates.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Load(r.Context(), customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// addItem puts a catalog product into the cart, merging quantities when the
// product is already present. Quantity defaults to 1.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx := r.Context()
	p, err := h.products.GetByID(ctx, req.ProductID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	c, err := h.carts.Load(ctx, customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := c.Add(*p, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.carts.Save(ctx, customerID(r), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.countMutation(ctx, "add")
	h.respondCart(w, http.StatusOK, c)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateItem replaces a line item's quantity with an absolute value.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	c, err := h.carts.Load(ctx, customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	found, err := c.UpdateQuantity(r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	if err := h.carts.Save(ctx, customerID(r), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.countMutation(ctx, "update")
	h.respondCart(w, http.StatusOK, c)
}

type adjustItemRequest struct {
	Delta int `json:"delta"`
}

// adjustItem applies a relative quantity change; reaching zero removes the
// line item.
func (h *Handler) adjustItem(w http.ResponseWriter, r *http.Request) {
	var req adjustItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	c, err := h.carts.Load(ctx, customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	found, err := c.AdjustQuantity(r.PathValue("id"), req.Delta)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	if err := h.carts.Save(ctx, customerID(r), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.countMutation(ctx, "adjust")
	h.respondCart(w, http.StatusOK, c)
}

// removeItem deletes a line item regardless of quantity.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.Load(ctx, customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if !c.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	if err := h.carts.Save(ctx, customerID(r), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.countMutation(ctx, "remove")
	h.respondCart(w, http.StatusOK, c)
}

// clearCart empties the customer's cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.Load(ctx, customerID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	c.Clear()
	if err := h.carts.Save(ctx, customerID(r), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.countMutation(ctx, "clear")
	h.respondCart(w, http.StatusOK, c)
}
