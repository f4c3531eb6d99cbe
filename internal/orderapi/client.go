// Package orderapi implements the checkout.Gateway against the remote
// order-processing service.
package orderapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/myshop/storefront/internal/domain/auth"
	"github.com/myshop/storefront/internal/domain/checkout"
)

// ErrSubmitTimeout indicates the order service did not answer within the
// configured submission timeout. The cart is preserved; the customer may
// resubmit manually.
var ErrSubmitTimeout = errors.New("order submission timed out")

// SubmissionError is a rejection from the order service (bad address,
// validation failure, server error). Message is surfaced to the customer.
type SubmissionError struct {
	Status  int
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order service rejected submission (status %d): %s", e.Status, e.Message)
}

var _ checkout.Gateway = (*Client)(nil)

// Client submits order-creation requests over HTTP. It performs a single
// fire-and-forget request per call: no client-side retry.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an order API client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateOrder POSTs the order to the remote service and parses the
// acknowledgement. The caller's bearer token, when present in ctx, is
// forwarded so the order service can authorize the customer.
func (c *Client) CreateOrder(ctx context.Context, req checkout.OrderRequest) (*checkout.Confirmation, error) {
	body := encodeOrderRequest(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := auth.TokenFromContext(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSubmitTimeout
		}
		return nil, errors.Wrap(err, "call order service")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read order response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SubmissionError{
			Status:  resp.StatusCode,
			Message: decodeErrorMessage(raw),
		}
	}

	conf, err := decodeConfirmation(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return conf, nil
}

// encodeOrderRequest builds the order-creation payload. Decimal amounts are
// written as raw JSON numbers so no float conversion happens on the wire.
func encodeOrderRequest(req checkout.OrderRequest) []byte {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range req.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("price")
		e.Raw([]byte(item.Price.String()))
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		if item.ImageURL != "" {
			e.FieldStart("image")
			e.Str(item.ImageURL)
		}
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	e.Raw([]byte(req.Subtotal.String()))
	e.FieldStart("shipping")
	e.Raw([]byte(req.Shipping.String()))
	e.FieldStart("tax")
	e.Raw([]byte(req.Tax.String()))
	e.FieldStart("total")
	e.Raw([]byte(req.Total.String()))
	e.FieldStart("totalQuantity")
	e.Int(req.TotalQuantity)

	e.FieldStart("address")
	e.ObjStart()
	e.FieldStart("street")
	e.Str(req.Address.Street)
	e.FieldStart("city")
	e.Str(req.Address.City)
	e.FieldStart("state")
	e.Str(req.Address.State)
	e.FieldStart("postalCode")
	e.Str(req.Address.PostalCode)
	e.FieldStart("country")
	e.Str(req.Address.Country)
	e.ObjEnd()

	e.FieldStart("customerId")
	e.Str(req.CustomerID)
	e.FieldStart("orderedAt")
	e.Str(req.OrderedAt.Format(time.RFC3339))
	e.FieldStart("status")
	e.Str(req.Status)

	e.ObjEnd()
	return e.Bytes()
}

// decodeConfirmation parses the order service acknowledgement. The order ID
// is required; both "id" and "orderId" spellings are accepted.
func decodeConfirmation(raw []byte) (*checkout.Confirmation, error) {
	var conf checkout.Confirmation
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id", "orderId":
			v, err := d.Str()
			if err != nil {
				return err
			}
			conf.OrderID = v
		case "status":
			v, err := d.Str()
			if err != nil {
				return err
			}
			conf.Status = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if conf.OrderID == "" {
		return nil, errors.New("order service response missing order id")
	}
	return &conf, nil
}

// decodeErrorMessage extracts the "message" field from an error body,
// falling back to a generic message when the body is not parseable.
func decodeErrorMessage(raw []byte) string {
	msg := ""
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		msg = v
		return nil
	})
	if err != nil || msg == "" {
		return "order submission failed"
	}
	return msg
}
