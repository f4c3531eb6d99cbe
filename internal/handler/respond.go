package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/myshop/storefront/internal/domain/cart"
	"github.com/myshop/storefront/internal/domain/checkout"
	"github.com/myshop/storefront/internal/domain/product"
	"github.com/myshop/storefront/internal/orderapi"
)

// writeJSON sends the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError sends the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// writeDomainError maps domain and upstream errors onto HTTP responses.
// Unrecognized errors are logged and answered with a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr   *cart.InvalidQuantityError
		ipErr   *cart.InvalidPriceError
		addrErr *checkout.AddressError
		subErr  *orderapi.SubmissionError
	)

	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &ipErr):
		writeError(w, http.StatusUnprocessableEntity, ipErr.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &addrErr):
		writeError(w, http.StatusUnprocessableEntity, addrErr.Error())
	case errors.Is(err, orderapi.ErrSubmitTimeout):
		writeError(w, http.StatusGatewayTimeout, "order service did not respond, please try again")
	case errors.As(err, &subErr):
		// Client-class rejections carry the upstream message; everything else
		// is an upstream fault.
		if subErr.Status >= 400 && subErr.Status < 500 {
			writeError(w, http.StatusUnprocessableEntity, subErr.Message)
		} else {
			writeError(w, http.StatusBadGateway, subErr.Message)
		}
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// encodeImage writes a product image object, resolving relative paths.
func (h *Handler) encodeImage(e *jx.Encoder, img product.Image) {
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(h.imageURL(img.Thumbnail))
	e.FieldStart("mobile")
	e.Str(h.imageURL(img.Mobile))
	e.FieldStart("tablet")
	e.Str(h.imageURL(img.Tablet))
	e.FieldStart("desktop")
	e.Str(h.imageURL(img.Desktop))
	e.ObjEnd()
}

// encodeProduct writes one catalog product.
func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Raw([]byte(p.Price.String()))
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	h.encodeImage(e, p.Image)
	e.ObjEnd()
}

// encodeCart writes the full cart state with aggregates.
func (h *Handler) encodeCart(e *jx.Encoder, snap cart.Snapshot) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range snap.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(li.ProductID)
		e.FieldStart("name")
		e.Str(li.Name)
		e.FieldStart("price")
		e.Raw([]byte(li.Price.String()))
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.FieldStart("subtotal")
		e.Raw([]byte(li.Subtotal().String()))
		e.FieldStart("image")
		h.encodeImage(e, li.Image)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalQuantity")
	e.Int(snap.TotalQuantity)
	e.FieldStart("totalAmount")
	e.Raw([]byte(snap.TotalAmount.String()))
	e.ObjEnd()
}
