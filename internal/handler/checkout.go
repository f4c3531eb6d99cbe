package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/myshop/storefront/internal/domain/checkout"
)

type checkoutRequest struct {
	Address struct {
		Street     string `json:"street"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postalCode"`
		Country    string `json:"country"`
	} `json:"address"`
}

// placeOrder submits the customer's cart with the given delivery address.
// On success the cart has been cleared; on failure it is untouched and the
// customer may resubmit.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	conf, err := h.checkout.PlaceOrder(ctx, customerID(r), checkout.Address{
		Street:     req.Address.Street,
		City:       req.Address.City,
		State:      req.Address.State,
		PostalCode: req.Address.PostalCode,
		Country:    req.Address.Country,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.ordersPlaced.Add(ctx, 1)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(conf.OrderID)
	e.FieldStart("status")
	e.Str(conf.Status)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}
